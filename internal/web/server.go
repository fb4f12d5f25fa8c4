package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/peterkuimelis/powercountdown/internal/game"
	pcdnet "github.com/peterkuimelis/powercountdown/internal/net"
	"github.com/peterkuimelis/powercountdown/internal/play"
)

//go:embed static
var staticFiles embed.FS

// DeckInfo is the JSON representation of the fixed deck for /api/deck.
type DeckInfo struct {
	Numbers      []float64       `json:"numbers"`
	Labels       []string        `json:"labels"`
	Difficulties []string        `json:"difficulties"`
	Default      string          `json:"default"`
	Operations   []OperationInfo `json:"operations"`
}

// OperationInfo describes one combine button.
type OperationInfo struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Server is the browser UI server. Every websocket is its own session.
type Server struct {
	puzzles    play.Puzzles
	difficulty game.Difficulty
	logger     *zap.Logger
	mux        *http.ServeMux
}

// NewServer creates a web server whose sessions start at difficulty d.
func NewServer(puzzles play.Puzzles, d game.Difficulty, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		puzzles:    puzzles,
		difficulty: d,
		logger:     logger,
		mux:        http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	staticFS, _ := fs.Sub(staticFiles, "static")

	s.mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		f, err := staticFS.Open("index.html")
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer f.Close()
		io.Copy(w, f.(io.Reader))
	})

	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.mux.HandleFunc("GET /api/deck", s.handleDeck)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	info := DeckInfo{
		Numbers: game.FixedDeck(),
		Default: s.difficulty.String(),
	}
	for _, v := range info.Numbers {
		info.Labels = append(info.Labels, game.FormatValue(v))
	}
	for _, d := range []game.Difficulty{game.DifficultyEasy, game.DifficultyMedium, game.DifficultyHard} {
		info.Difficulties = append(info.Difficulties, d.String())
	}
	for _, op := range []game.Operation{game.OpMultiply, game.OpPower, game.OpReciprocal} {
		info.Operations = append(info.Operations, OperationInfo{Name: op.String(), Symbol: op.Symbol()})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// handleWebSocket plays one session over the socket. The optional
// ?difficulty= query picks the first puzzle's difficulty.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	d := s.difficulty
	if q := r.URL.Query().Get("difficulty"); q != "" {
		var err error
		if d, err = game.ParseDifficulty(q); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow connections from any origin
	})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer wsConn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	ctrl := play.NewController(s.puzzles, nil, s.logger)
	logger := s.logger.With(zap.String("session", ctrl.ID()))
	logger.Info("browser connected", zap.String("remote", r.RemoteAddr))

	cc := pcdnet.NewConnController(&wsTransport{c: wsConn}, ctrl, s.logger)
	err = cc.Run(ctx, d)

	// Cancelling first unblocks any push still in flight.
	cancel()
	ctrl.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Debug("websocket session ended", zap.Error(err))
	}
	wsConn.Close(websocket.StatusNormalClosure, "session ended")
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hs.Shutdown(shutdownCtx)
	}()
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
