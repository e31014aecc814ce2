package registry

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"github.com/splitword/splitword-server/internal/room"
	"github.com/splitword/splitword-server/internal/words"
)

var ErrNotFound = errors.New("room not found")

const codeLen = 6

// Registry is the process-wide map of live rooms. One mutex serializes
// create, join, and reap: code minting is check-then-insert, and a room
// found by Join cannot be reaped before the connection binds, because both
// run under the same lock.
type Registry struct {
	catalog *words.Catalog
	log     *zap.Logger

	mu    sync.Mutex
	rooms map[string]*room.Room
}

func New(catalog *words.Catalog, log *zap.Logger) *Registry {
	return &Registry{
		catalog: catalog,
		log:     log,
		rooms:   make(map[string]*room.Room),
	}
}

// Create mints a unique code, retrying on collision against live rooms, and
// registers a fresh room with a newly drawn answer.
func (g *Registry) Create(maxRounds int) (*room.Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var code string
	for {
		c, err := generateCode()
		if err != nil {
			return nil, err
		}
		if _, taken := g.rooms[c]; !taken {
			code = c
			break
		}
		g.log.Debug("room code collision, regenerating")
	}

	r := room.New(code, maxRounds, g.catalog.DrawAnswer(), g.catalog, g.log)
	g.rooms[code] = r
	g.log.Info("room created", zap.String("room", code), zap.Int("maxRounds", maxRounds))
	return r, nil
}

// Get looks up a live room by code.
func (g *Registry) Get(code string) (*room.Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[code]
	return r, ok
}

// Join atomically looks up the room and binds a connection to it. Bind
// errors (room.ErrFull) pass through.
func (g *Registry) Join(code, name string) (*room.Room, *room.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[code]
	if !ok {
		return nil, nil, ErrNotFound
	}
	c, err := r.Bind(name)
	if err != nil {
		return nil, nil, err
	}
	return r, c, nil
}

// Reap removes the room if it has no connections and was never played.
func (g *Registry) Reap(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.rooms[code]
	if !ok {
		return
	}
	if r.Reapable() {
		delete(g.rooms, code)
		g.log.Info("room reaped", zap.String("room", code))
	}
}

func generateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, codeLen)
	for i := 0; i < codeLen; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
