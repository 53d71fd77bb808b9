package routes

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/CQUPT-CZL/LKG-GEN-sub001/internal/server/middleware"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/internal/session"
	"github.com/CQUPT-CZL/LKG-GEN-sub001/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	outboundBuffer = 256
)

var errSlowConsumer = errors.New("outbound buffer full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The console is same-origin in practice; CORS is already open on the
	// HTTP side, keep the socket consistent with it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GetConsoleSocketHandler upgrades the connection and binds it to a fresh
// session. The session loop, the socket reader, and the socket writer each
// run in their own goroutine; closing the socket cancels all three.
func GetConsoleSocketHandler(c echo.Context) error {
	cc := c.(*middleware.AppContext)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	id, err := gonanoid.New()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	outbound := make(chan session.Outbound, outboundBuffer)
	sess := session.New(session.Params{
		ID:      id,
		Backend: cc.App.Backend,
		Palette: cc.App.Palette,
		Metrics: cc.App.Metrics,
		Context: ctx,
		Send: func(msg session.Outbound) error {
			select {
			case outbound <- msg:
				return nil
			default:
				return errSlowConsumer
			}
		},
	})

	cc.App.Metrics.ActiveSessions.Inc()
	defer cc.App.Metrics.ActiveSessions.Dec()
	logger.Info("Console connected", "session", id, "remote", conn.RemoteAddr().String())
	defer logger.Info("Console disconnected", "session", id)

	go sess.Run()
	go writePump(ctx, cancel, conn, outbound)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg session.Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("Socket read failed", "session", id, "err", err)
			}
			return nil
		}
		sess.Deliver(msg)
	}
}

// writePump is the sole writer of the connection.
func writePump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, outbound <-chan session.Outbound) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-outbound:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
