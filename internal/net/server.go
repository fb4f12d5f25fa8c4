package net

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/peterkuimelis/powercountdown/internal/game"
	"github.com/peterkuimelis/powercountdown/internal/play"
)

// Server hosts independent puzzle sessions for TCP clients. Every
// connection gets its own play.Controller.
type Server struct {
	Addr       string
	Puzzles    play.Puzzles
	Difficulty game.Difficulty
	Logger     *zap.Logger

	// ready, when set, receives the bound address once listening.
	ready chan<- string
}

// Run listens on s.Addr and serves connections until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	logger := s.logger()
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	logger.Info("waiting for players", zap.String("addr", ln.Addr().String()))
	if s.ready != nil {
		s.ready <- ln.Addr().String()
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		logger.Info("player connected", zap.String("remote", conn.RemoteAddr().String()))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.ServeConn(ctx, conn); err != nil {
				logger.Warn("session ended with error", zap.Error(err))
			}
		}()
	}
}

// ServeConn plays one session over conn and closes it when done.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	ctrl := play.NewController(s.Puzzles, nil, s.logger())
	cc := NewConnController(NewJSONTransport(conn), ctrl, s.logger())
	err := cc.Run(ctx, s.Difficulty)

	// Closing the connection first unblocks any push still in flight.
	cancel()
	conn.Close()
	ctrl.Close()

	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
