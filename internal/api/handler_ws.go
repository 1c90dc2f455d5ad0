package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/clickplanet/clickplanet/internal/broadcast"
	"github.com/clickplanet/clickplanet/internal/bus"
	"github.com/clickplanet/clickplanet/internal/clickpb"
)

const wsWriteTimeout = 10 * time.Second

// HandleListen returns a handler for GET /ws/listen: the server pushes
// one binary UpdateNotification frame per update, no framing header.
// Close codes: 1000 normal, 1011 server drop for backpressure.
func HandleListen(hub *broadcast.Hub, sessionQueueSize int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		session := broadcast.NewSession(uuid.NewString(), bus.AllTiles(), sessionQueueSize)
		hub.Attach(session)
		defer hub.Detach(session)

		ctx := r.Context()
		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case <-session.Done():
				conn.Close(websocket.StatusInternalError, "listener too slow, dropped")
				return
			case n := <-session.C():
				frame := clickpb.MarshalUpdateNotification(n)
				// A stalled transport must not wedge this pump: bound each
				// write so the backpressure drop path stays reachable.
				writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
				err := conn.Write(writeCtx, websocket.MessageBinary, frame)
				cancel()
				if err != nil {
					log.Printf("[api] ws write failed for session %s: %v", session.ID, err)
					return
				}
			}
		}
	}
}
