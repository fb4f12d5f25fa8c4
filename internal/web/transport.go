package web

import (
	"context"
	"io"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	pcdnet "github.com/peterkuimelis/powercountdown/internal/net"
)

// wsTransport carries protocol messages as one JSON text frame each.
type wsTransport struct {
	c *websocket.Conn
}

func (t *wsTransport) ReadMessage(ctx context.Context) (pcdnet.ClientMessage, error) {
	var msg pcdnet.ClientMessage
	if err := wsjson.Read(ctx, t.c, &msg); err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return msg, io.EOF
		}
		return msg, err
	}
	return msg, nil
}

func (t *wsTransport) WriteMessage(ctx context.Context, msg pcdnet.ServerMessage) error {
	return wsjson.Write(ctx, t.c, msg)
}
