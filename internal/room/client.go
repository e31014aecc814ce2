package room

import (
	"math/rand"

	"github.com/splitword/splitword-server/internal/protocol"
)

// Palette is the fixed set of roster colors a player may pick via setColor.
var Palette = []string{"red", "orange", "yellow", "green", "blue", "purple"}

var paletteSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Palette))
	for _, c := range Palette {
		m[c] = struct{}{}
	}
	return m
}()

// AutoOwner marks slots locked by the assist fill rather than a connection.
const AutoOwner = "auto"

const outboxSize = 16

// Client is the room-side handle for one live connection. Name and color are
// only read or written while holding the owning room's lock.
type Client struct {
	token string
	name  string
	color string
	out   chan protocol.ServerMessage
}

func newClient(name, color string) *Client {
	return &Client{
		token: randToken(8),
		name:  name,
		color: color,
		out:   make(chan protocol.ServerMessage, outboxSize),
	}
}

// Out is the event stream the gateway drains into the socket. The channel is
// closed when the client is unbound from its room.
func (c *Client) Out() <-chan protocol.ServerMessage { return c.out }

// Token is the opaque per-connection identifier stamped onto locked slots.
func (c *Client) Token() string { return c.token }

func randToken(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
