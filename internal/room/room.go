package room

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/splitword/splitword-server/internal/protocol"
	"github.com/splitword/splitword-server/internal/score"
	"github.com/splitword/splitword-server/internal/words"
)

// NumSlots is the number of letter positions in the shared guess row.
const NumSlots = 5

var ErrFull = errors.New("room is full")

// Phase is the explicit room lifecycle state. A room mutates only while
// PhaseFilling; both terminal phases require an explicit reset to leave.
type Phase string

const (
	PhaseFilling   Phase = "filling"
	PhaseWon       Phase = "won"
	PhaseExhausted Phase = "exhausted"
)

// Slot is one letter position. While unlocked, Letter carries at most an
// ephemeral preview that never reaches evaluation.
type Slot struct {
	Locked bool
	Letter string
	Owner  string
}

// ResolvedGuess is one evaluated row. Invalid guesses are still scored and
// recorded, only flagged.
type ResolvedGuess struct {
	Guess   string
	Colors  []score.Mark
	Invalid bool
}

// Room is the single source of truth for one game session: the slot table,
// round progression, history, and the set of bound connections. All state is
// guarded by mu; no handler blocks on I/O inside it. Event fan-out pushes
// into per-client buffered outboxes, and a client that cannot keep up is
// dropped rather than stalling delivery to the rest of the room.
type Room struct {
	code      string
	maxRounds int
	catalog   *words.Catalog
	log       *zap.Logger

	mu      sync.Mutex
	phase   Phase
	answer  string
	round   int
	slots   [NumSlots]Slot
	history []ResolvedGuess
	clients map[int]*Client
}

// New creates a room in PhaseFilling with the given initial answer. Reset
// draws later answers from the catalog.
func New(code string, maxRounds int, answer string, catalog *words.Catalog, log *zap.Logger) *Room {
	return &Room{
		code:      code,
		maxRounds: maxRounds,
		catalog:   catalog,
		log:       log.With(zap.String("room", code)),
		phase:     PhaseFilling,
		answer:    answer,
		clients:   make(map[int]*Client),
	}
}

func (r *Room) Code() string { return r.code }

// Reapable reports whether the room may be garbage-collected: nobody
// connected and never played. A played room is kept so returning clients can
// still observe its history.
func (r *Room) Reapable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients) == 0 && len(r.history) == 0
}

// Bind attaches a connection to the lowest free slot, queues the initial
// snapshot for that connection only, and broadcasts the updated roster.
func (r *Room) Bind(name string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i := 0; i < NumSlots; i++ {
		if r.clients[i] == nil {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrFull
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("player %d", idx+1)
	}
	c := newClient(name, Palette[idx%len(Palette)])
	r.clients[idx] = c

	r.trySend(c, r.snapshotMsg(protocol.EvtJoin, idx))
	r.broadcast(r.rosterMsg())
	return c, nil
}

// Release detaches a connection. An unlocked slot is cleared; a locked slot
// keeps its letter so a disconnect never retroactively invalidates part of
// an in-flight guess. Safe to call more than once.
func (r *Room) Release(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.find(c)
	if !ok {
		return
	}
	delete(r.clients, idx)
	close(c.out)
	if !r.slots[idx].Locked && r.slots[idx].Letter != "" {
		r.slots[idx] = Slot{}
		r.broadcast(r.slotMsg(idx))
	}
	r.broadcast(r.rosterMsg())
}

// PreviewLetter sets or clears an ephemeral display letter on the caller's
// slot. Previews never affect evaluation; a preview racing a lock loses
// silently.
func (r *Room) PreviewLetter(c *Client, letter string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A caller still present in the client map is guaranteed an open outbox;
	// every operation resolves its binding before sending anything back.
	idx, ok := r.find(c)
	if !ok {
		return
	}
	if r.phase != PhaseFilling {
		r.sendError(c, "round is over")
		return
	}
	if r.slots[idx].Locked {
		return
	}
	if letter == "" {
		r.slots[idx].Letter = ""
		r.broadcast(r.slotMsg(idx))
		return
	}
	up, ok := normalizeLetter(letter)
	if !ok {
		r.sendError(c, "invalid letter")
		return
	}
	r.slots[idx].Letter = up
	r.broadcast(r.slotMsg(idx))
}

// SubmitLetter commits a letter into the caller's slot for the current
// round. The first writer wins: a submit against an already locked slot is a
// no-op with no broadcast, which makes duplicate submits idempotent.
func (r *Room) SubmitLetter(c *Client, letter string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.find(c)
	if !ok {
		return
	}
	if r.phase != PhaseFilling {
		r.sendError(c, "round is over")
		return
	}
	up, ok := normalizeLetter(letter)
	if !ok {
		r.sendError(c, "invalid letter")
		return
	}
	if r.slots[idx].Locked {
		return
	}
	r.slots[idx] = Slot{Locked: true, Letter: up, Owner: c.token}
	r.broadcast(r.slotMsg(idx))
	r.evaluate()
}

// AutoFill locks an unoccupied slot with the correct letter from the hidden
// answer, so an under-staffed room can still complete rows. Occupied slots
// belong to their players and are rejected.
func (r *Room) AutoFill(c *Client, idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.find(c); !ok {
		return
	}
	if r.phase != PhaseFilling {
		r.sendError(c, "round is over")
		return
	}
	if idx < 0 || idx >= NumSlots {
		r.sendError(c, "invalid slot")
		return
	}
	if r.clients[idx] != nil {
		r.sendError(c, "slot has a player")
		return
	}
	if r.slots[idx].Locked {
		return
	}
	r.ensureAnswer()
	r.slots[idx] = Slot{Locked: true, Letter: string(r.answer[idx]), Owner: AutoOwner}
	r.broadcast(r.slotMsg(idx))
	r.evaluate()
}

// ClaimSlot rebinds the caller to an unoccupied target slot. A player whose
// current slot is locked cannot move until the row resolves; that would
// abandon a committed letter mid-round.
func (r *Room) ClaimSlot(c *Client, target int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.find(c)
	if !ok {
		return
	}
	if target < 0 || target >= NumSlots {
		r.sendError(c, "invalid slot")
		return
	}
	if target == cur {
		return
	}
	if r.clients[target] != nil {
		r.sendError(c, "slot is occupied")
		return
	}
	if r.phase == PhaseFilling && r.slots[cur].Locked {
		r.sendError(c, "cannot leave a locked slot mid-round")
		return
	}

	if !r.slots[cur].Locked && r.slots[cur].Letter != "" {
		r.slots[cur] = Slot{}
		r.broadcast(r.slotMsg(cur))
	}
	delete(r.clients, cur)
	r.clients[target] = c
	r.broadcast(r.rosterMsg())
	t := target
	r.trySend(c, protocol.ServerMessage{Type: protocol.EvtSlotClaimed, Slot: &t})
}

// UnlockSlot retracts the caller's committed letter before the row resolves.
func (r *Room) UnlockSlot(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.find(c)
	if !ok {
		return
	}
	if r.phase != PhaseFilling {
		r.sendError(c, "round is over")
		return
	}
	if !r.slots[idx].Locked {
		return
	}
	r.slots[idx] = Slot{}
	r.broadcast(r.slotMsg(idx))
}

// Reset starts a fresh game from a terminal phase: new answer, cleared
// round, history, and slots. Players keep their slots, names, and colors.
// While a game is in progress it has no observable effect.
func (r *Room) Reset(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseFilling {
		return
	}
	r.phase = PhaseFilling
	r.answer = r.catalog.DrawAnswer()
	r.round = 0
	r.history = nil
	r.slots = [NumSlots]Slot{}

	r.broadcast(r.snapshotMsg(protocol.EvtReset, -1))
}

// SetName updates the caller's display name. Duplicates are allowed; the
// roster is advisory.
func (r *Room) SetName(c *Client, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.find(c); !ok {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 24 {
		r.sendError(c, "invalid name")
		return
	}
	c.name = name
	r.broadcast(r.rosterMsg())
}

// SetColor updates the caller's roster color. Anything outside the fixed
// palette is rejected, not coerced.
func (r *Room) SetColor(c *Client, color string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.find(c); !ok {
		return
	}
	if _, ok := paletteSet[color]; !ok {
		r.sendError(c, "invalid color")
		return
	}
	c.color = color
	r.broadcast(r.rosterMsg())
}

// evaluate runs after every lock-producing action, with mu held. Whichever
// submission lands fifth triggers exactly one evaluation; there is no
// separate "all ready" barrier.
func (r *Room) evaluate() {
	var unlocked []int
	for i := 0; i < NumSlots; i++ {
		if !r.slots[i].Locked {
			unlocked = append(unlocked, i)
		}
	}
	if len(unlocked) > 0 {
		r.broadcast(protocol.ServerMessage{Type: protocol.EvtWaiting, Waiting: unlocked})
		return
	}

	var b strings.Builder
	for i := 0; i < NumSlots; i++ {
		b.WriteString(r.slots[i].Letter)
	}
	guess := b.String()

	// Should be unreachable given per-slot validation; force-unlock the row
	// without consuming a round rather than scoring garbage.
	if len(guess) != NumSlots || !isUpperAlpha(guess) {
		r.log.Error("assembled guess is malformed, unlocking row", zap.String("guess", guess))
		r.slots = [NumSlots]Slot{}
		r.broadcast(protocol.ServerMessage{Type: protocol.EvtRowUnlocked, Slots: r.slotStates()})
		return
	}

	r.ensureAnswer()
	invalid := !r.catalog.IsAllowed(guess)
	colors := score.Score(guess, r.answer)
	correct := guess == r.answer
	r.history = append(r.history, ResolvedGuess{Guess: guess, Colors: colors, Invalid: invalid})

	r.broadcast(protocol.ServerMessage{
		Type:   protocol.EvtReveal,
		Result: &protocol.GuessResult{Guess: guess, Colors: colors, Correct: correct, Invalid: invalid},
	})

	if correct {
		r.phase = PhaseWon
		r.broadcast(protocol.ServerMessage{Type: protocol.EvtGameOver, Reason: "solved", Answer: r.answer})
		return
	}
	r.round++
	if r.round >= r.maxRounds {
		r.phase = PhaseExhausted
		r.broadcast(protocol.ServerMessage{Type: protocol.EvtGameOver, Reason: "out_of_rounds", Answer: r.answer})
		return
	}
	r.slots = [NumSlots]Slot{}
	r.broadcast(protocol.ServerMessage{Type: protocol.EvtNewRow, Round: r.round, Slots: r.slotStates()})
}

// ensureAnswer replaces a missing or malformed answer with a fresh draw so
// the room stays playable. Operators see it; players never do.
func (r *Room) ensureAnswer() {
	if len(r.answer) == NumSlots && isUpperAlpha(r.answer) {
		return
	}
	r.answer = r.catalog.DrawAnswer()
	r.log.Error("answer was invalid, drew a replacement")
}

func (r *Room) find(c *Client) (int, bool) {
	for i, bound := range r.clients {
		if bound == c {
			return i, true
		}
	}
	return 0, false
}

func (r *Room) slotStates() []protocol.SlotState {
	out := make([]protocol.SlotState, NumSlots)
	for i := 0; i < NumSlots; i++ {
		out[i] = protocol.SlotState{Index: i, Locked: r.slots[i].Locked, Letter: r.slots[i].Letter}
	}
	return out
}

func (r *Room) slotMsg(idx int) protocol.ServerMessage {
	s := protocol.SlotState{Index: idx, Locked: r.slots[idx].Locked, Letter: r.slots[idx].Letter}
	return protocol.ServerMessage{Type: protocol.EvtSlotUpdate, SlotState: &s}
}

func (r *Room) rosterMsg() protocol.ServerMessage {
	entries := make([]protocol.RosterEntry, NumSlots)
	for i := 0; i < NumSlots; i++ {
		entries[i] = protocol.RosterEntry{Slot: i}
		if c := r.clients[i]; c != nil {
			entries[i].Occupied = true
			entries[i].Name = c.name
			entries[i].Color = c.color
		}
	}
	return protocol.ServerMessage{Type: protocol.EvtRoster, Roster: entries}
}

// snapshotMsg builds a full-state message. slot >= 0 marks the recipient's
// assigned position (join); the answer rides along only once the game is no
// longer in progress.
func (r *Room) snapshotMsg(kind string, slot int) protocol.ServerMessage {
	msg := protocol.ServerMessage{
		Type:      kind,
		Room:      r.code,
		Phase:     string(r.phase),
		Round:     r.round,
		MaxRounds: r.maxRounds,
		Slots:     r.slotStates(),
	}
	if slot >= 0 {
		s := slot
		msg.Slot = &s
	}
	for _, h := range r.history {
		msg.History = append(msg.History, protocol.GuessResult{
			Guess:   h.Guess,
			Colors:  h.Colors,
			Correct: h.Guess == r.answer,
			Invalid: h.Invalid,
		})
	}
	if r.phase != PhaseFilling {
		msg.Answer = r.answer
	}
	return msg
}

func (r *Room) sendError(c *Client, reason string) {
	r.trySend(c, protocol.ServerMessage{Type: protocol.EvtError, Error: reason})
}

// trySend enqueues without blocking; a full outbox just drops the message
// for that one client.
func (r *Room) trySend(c *Client, msg protocol.ServerMessage) {
	select {
	case c.out <- msg:
	default:
	}
}

// broadcast fans out to every bound connection. A client whose outbox is
// full is unbound and its channel closed, so one stalled socket cannot hold
// up the room; its unlocked slot is cleared like any other departure.
func (r *Room) broadcast(msg protocol.ServerMessage) {
	for idx, c := range r.clients {
		select {
		case c.out <- msg:
		default:
			r.log.Warn("dropping slow client", zap.Int("slot", idx))
			delete(r.clients, idx)
			close(c.out)
			if !r.slots[idx].Locked {
				r.slots[idx] = Slot{}
			}
		}
	}
}

func normalizeLetter(s string) (string, bool) {
	up := strings.ToUpper(s)
	if len(up) != 1 || up[0] < 'A' || up[0] > 'Z' {
		return "", false
	}
	return up, true
}

func isUpperAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
