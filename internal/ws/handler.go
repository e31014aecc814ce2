package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/splitword/splitword-server/internal/protocol"
	"github.com/splitword/splitword-server/internal/registry"
	"github.com/splitword/splitword-server/internal/room"
)

const writeTimeout = 3 * time.Second

// Handler upgrades a connection, binds it to a room slot for its lifetime,
// and pumps messages both ways: a writer goroutine drains the room-side
// outbox into the socket while the request goroutine reads actions.
//
// Capacity errors (unknown room, full room) are reported once before the
// upgrade and the connection is refused. After the upgrade, malformed or
// unknown envelopes are dropped without a reply; this is a trust boundary,
// not a protocol to negotiate.
func Handler(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		name := r.URL.Query().Get("name")

		rm, client, err := reg.Join(code, name)
		switch {
		case errors.Is(err, registry.ErrNotFound):
			http.Error(w, "room not found", http.StatusNotFound)
			return
		case errors.Is(err, room.ErrFull):
			http.Error(w, "room is full", http.StatusConflict)
			return
		case err != nil:
			http.Error(w, "join failed", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			rm.Release(client)
			reg.Reap(code)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		defer func() {
			rm.Release(client)
			reg.Reap(code)
		}()

		// Writer: the outbox closes when the room unbinds this client,
		// either on disconnect or because it fell behind; closing the socket
		// then unblocks the reader below.
		writeCtx, writeCancel := context.WithCancel(context.Background())
		defer writeCancel()
		go func() {
			for msg := range client.Out() {
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Error("marshal event", zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					break
				}
			}
			conn.Close(websocket.StatusPolicyViolation, "write backlog")
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Clean close, going-away, or a dead socket: the deferred
				// release handles the room side either way.
				return
			}

			var msg protocol.ClientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			dispatch(rm, client, msg)
		}
	}
}

// dispatch translates an inbound envelope into a room operation. Unknown
// kinds and envelopes missing their slot index fall through silently.
func dispatch(rm *room.Room, c *room.Client, msg protocol.ClientMessage) {
	switch msg.Type {
	case protocol.ActPreviewLetter:
		rm.PreviewLetter(c, msg.Letter)
	case protocol.ActSubmitLetter:
		rm.SubmitLetter(c, msg.Letter)
	case protocol.ActFillSlot:
		if msg.Slot != nil {
			rm.AutoFill(c, *msg.Slot)
		}
	case protocol.ActClaimSlot:
		if msg.Slot != nil {
			rm.ClaimSlot(c, *msg.Slot)
		}
	case protocol.ActUnlockMySlot:
		rm.UnlockSlot(c)
	case protocol.ActRequestReset:
		rm.Reset(c)
	case protocol.ActSetName:
		rm.SetName(c, msg.Name)
	case protocol.ActSetColor:
		rm.SetColor(c, msg.Color)
	}
}
