package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quebracell/backend/internal/projection"
)

const (
	// Time allowed to write a message to the peer.
	wsWriteWait = 10 * time.Second

	// Send pings to peer with this period.
	wsPingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleListingsFeed streams dashboard snapshots over a websocket. The
// operator receives every listing, an owner only their own. One store
// subscription lives exactly as long as the connection; closing the
// dashboard cancels it immediately.
func (s *Server) handleListingsFeed(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()

	var view *projection.View
	if sess.IsOperator() {
		view, err = projection.NewAdminView(ctx, s.listings)
	} else {
		view, err = projection.NewOwnerView(ctx, s.listings, sess.UserID)
	}
	if err != nil {
		zap.L().Warn("listing feed subscription failed", zap.Error(err))
		return
	}

	// Reads are only consumed to detect the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	send := func() error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(view.Snapshot())
	}

	if err := send(); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-view.Done():
			return
		case <-view.Updates():
			if err := send(); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
