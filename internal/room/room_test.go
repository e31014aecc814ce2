package room

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/splitword/splitword-server/internal/protocol"
	"github.com/splitword/splitword-server/internal/score"
	"github.com/splitword/splitword-server/internal/words"
)

func testRoom(t *testing.T, answer string, maxRounds int) *Room {
	t.Helper()
	cat := words.Load("", "", zap.NewNop())
	return New("TEST42", maxRounds, answer, cat, zap.NewNop())
}

func bind(t *testing.T, r *Room, name string) *Client {
	t.Helper()
	c, err := r.Bind(name)
	if err != nil {
		t.Fatalf("bind %s: %v", name, err)
	}
	return c
}

// recvEvent receives one event with a timeout so tests never hang.
func recvEvent(t *testing.T, c *Client, within time.Duration) protocol.ServerMessage {
	t.Helper()
	select {
	case msg, ok := <-c.out:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return protocol.ServerMessage{} // unreachable
	}
}

// waitFor drains events until one of the wanted type arrives.
func waitFor(t *testing.T, c *Client, typ string) protocol.ServerMessage {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case msg, ok := <-c.out:
			if !ok {
				t.Fatalf("outbox closed while waiting for %q", typ)
			}
			if msg.Type == typ {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", typ)
		}
	}
}

func recvNone(t *testing.T, c *Client, within time.Duration) {
	t.Helper()
	select {
	case msg, ok := <-c.out:
		if !ok {
			t.Fatalf("outbox closed unexpectedly")
		}
		t.Fatalf("expected no event within %v, got %+v", within, msg)
	case <-time.After(within):
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.out:
		default:
			return
		}
	}
}

// lockRow binds enough players and submits word letter-by-letter, slot i
// getting word[i].
func lockRow(t *testing.T, r *Room, clients []*Client, word string) {
	t.Helper()
	for i, c := range clients {
		r.SubmitLetter(c, string(word[i]))
	}
}

func bindFive(t *testing.T, r *Room) []*Client {
	t.Helper()
	clients := make([]*Client, NumSlots)
	for i := range clients {
		clients[i] = bind(t, r, "")
	}
	for _, c := range clients {
		drain(c)
	}
	return clients
}

func TestBind_SendsSnapshotThenRoster(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	c := bind(t, r, "ada")

	join := recvEvent(t, c, 100*time.Millisecond)
	if join.Type != protocol.EvtJoin {
		t.Fatalf("want join first, got %q", join.Type)
	}
	if join.Slot == nil || *join.Slot != 0 {
		t.Fatalf("want slot 0, got %+v", join.Slot)
	}
	if join.MaxRounds != 5 || len(join.Slots) != NumSlots {
		t.Fatalf("bad snapshot: %+v", join)
	}
	if join.Answer != "" {
		t.Fatalf("answer leaked in join snapshot: %q", join.Answer)
	}

	roster := recvEvent(t, c, 100*time.Millisecond)
	if roster.Type != protocol.EvtRoster {
		t.Fatalf("want roster second, got %q", roster.Type)
	}
	if !roster.Roster[0].Occupied || roster.Roster[0].Name != "ada" {
		t.Fatalf("bad roster entry: %+v", roster.Roster[0])
	}
}

func TestBind_SixthConnectionRejected(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	bindFive(t, r)
	if _, err := r.Bind("late"); err != ErrFull {
		t.Fatalf("want ErrFull, got %v", err)
	}
}

func TestSubmit_FirstWriterWins(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	clients := bindFive(t, r)
	c0, c1 := clients[0], clients[1]

	r.SubmitLetter(c0, "a")
	if msg := recvEvent(t, c1, 100*time.Millisecond); msg.Type != protocol.EvtSlotUpdate ||
		msg.SlotState.Letter != "A" || !msg.SlotState.Locked {
		t.Fatalf("want locked slotUpdate A, got %+v", msg)
	}
	waitFor(t, c1, protocol.EvtWaiting)
	drain(c0)

	// Second submit against the locked slot: no state change, no broadcast.
	r.SubmitLetter(c0, "B")
	recvNone(t, c1, 50*time.Millisecond)

	r.mu.Lock()
	letter := r.slots[0].Letter
	r.mu.Unlock()
	if letter != "A" {
		t.Fatalf("first writer lost: slot holds %q", letter)
	}
}

func TestEvaluate_WaitingListsUnlockedIndices(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	clients := bindFive(t, r)

	r.SubmitLetter(clients[2], "X")
	msg := waitFor(t, clients[0], protocol.EvtWaiting)
	want := []int{0, 1, 3, 4}
	if len(msg.Waiting) != len(want) {
		t.Fatalf("waiting = %v, want %v", msg.Waiting, want)
	}
	for i := range want {
		if msg.Waiting[i] != want[i] {
			t.Fatalf("waiting = %v, want %v", msg.Waiting, want)
		}
	}
}

func TestEvaluate_ConcurrentFifthLockEvaluatesOnce(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	clients := bindFive(t, r)

	var wg sync.WaitGroup
	for i, c := range clients {
		wg.Add(1)
		go func(c *Client, letter string) {
			defer wg.Done()
			r.SubmitLetter(c, letter)
		}(c, string("CRANE"[i]))
	}
	wg.Wait()

	reveal := waitFor(t, clients[0], protocol.EvtReveal)
	if !reveal.Result.Correct || reveal.Result.Guess != "CRANE" {
		t.Fatalf("bad reveal: %+v", reveal.Result)
	}
	for _, m := range reveal.Result.Colors {
		if m != score.MarkCorrect {
			t.Fatalf("want all correct, got %v", reveal.Result.Colors)
		}
	}
	over := waitFor(t, clients[0], protocol.EvtGameOver)
	if over.Reason != "solved" || over.Answer != "CRANE" {
		t.Fatalf("bad gameOver: %+v", over)
	}
	// Exactly one evaluation: nothing further after the terminal event.
	recvNone(t, clients[0], 50*time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseWon {
		t.Fatalf("phase = %q, want won", r.phase)
	}
	if len(r.history) != 1 {
		t.Fatalf("history length %d, want 1", len(r.history))
	}
}

func TestEvaluate_InvalidWordScoredAndFlagged(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	clients := bindFive(t, r)

	lockRow(t, r, clients, "ZZZZZ")
	reveal := waitFor(t, clients[1], protocol.EvtReveal)
	if !reveal.Result.Invalid {
		t.Fatalf("expected invalid flag on %+v", reveal.Result)
	}
	if reveal.Result.Correct {
		t.Fatalf("ZZZZZ must not be correct")
	}
	newRow := waitFor(t, clients[1], protocol.EvtNewRow)
	if newRow.Round != 1 {
		t.Fatalf("round = %d, want 1", newRow.Round)
	}
	for _, s := range newRow.Slots {
		if s.Locked || s.Letter != "" {
			t.Fatalf("slot not cleared for new row: %+v", s)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) != 1 || !r.history[0].Invalid {
		t.Fatalf("invalid guess not recorded: %+v", r.history)
	}
}

func TestEvaluate_OutOfRounds(t *testing.T) {
	r := testRoom(t, "CRANE", 1)
	clients := bindFive(t, r)

	lockRow(t, r, clients, "SPEED")
	over := waitFor(t, clients[0], protocol.EvtGameOver)
	if over.Reason != "out_of_rounds" || over.Answer != "CRANE" {
		t.Fatalf("bad gameOver: %+v", over)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseExhausted {
		t.Fatalf("phase = %q, want exhausted", r.phase)
	}
}

func TestReset_OnlyEffectiveFromTerminal(t *testing.T) {
	r := testRoom(t, "CRANE", 1)
	clients := bindFive(t, r)

	// Mid-game reset is a silent no-op.
	r.Reset(clients[0])
	recvNone(t, clients[0], 50*time.Millisecond)

	lockRow(t, r, clients, "SPEED")
	waitFor(t, clients[0], protocol.EvtGameOver)
	for _, c := range clients {
		drain(c)
	}

	r.Reset(clients[0])
	msg := waitFor(t, clients[0], protocol.EvtReset)
	if msg.Phase != string(PhaseFilling) || msg.Round != 0 || len(msg.History) != 0 {
		t.Fatalf("bad reset snapshot: %+v", msg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase != PhaseFilling || r.round != 0 || r.history != nil {
		t.Fatalf("state not reset: phase=%q round=%d history=%v", r.phase, r.round, r.history)
	}
	if len(r.answer) != NumSlots {
		t.Fatalf("reset drew bad answer %q", r.answer)
	}
	for _, s := range r.slots {
		if s.Locked || s.Letter != "" {
			t.Fatalf("slots not cleared: %+v", r.slots)
		}
	}
}

func TestUnlock_RetractsCommittedLetter(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	clients := bindFive(t, r)
	c := clients[3]

	r.SubmitLetter(c, "Q")
	waitFor(t, c, protocol.EvtWaiting)
	r.UnlockSlot(c)
	msg := waitFor(t, c, protocol.EvtSlotUpdate)
	if msg.SlotState.Locked || msg.SlotState.Letter != "" {
		t.Fatalf("slot not cleared: %+v", msg.SlotState)
	}

	// The retraction must not have consumed a round.
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.round != 0 || len(r.history) != 0 {
		t.Fatalf("retraction consumed a round: round=%d history=%v", r.round, r.history)
	}
}

func TestClaim_OccupiedTargetRejectedWithoutSideEffects(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	c0 := bind(t, r, "one")
	c1 := bind(t, r, "two")
	drain(c0)
	drain(c1)

	r.ClaimSlot(c1, 0)
	msg := recvEvent(t, c1, 100*time.Millisecond)
	if msg.Type != protocol.EvtError {
		t.Fatalf("want error event, got %+v", msg)
	}
	recvNone(t, c0, 50*time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clients[0] != c0 || r.clients[1] != c1 {
		t.Fatalf("bindings changed by failed claim")
	}
}

func TestClaim_LockedSlotCannotBeAbandonedMidRound(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	c := bind(t, r, "one")
	drain(c)

	r.SubmitLetter(c, "C")
	drain(c)
	r.ClaimSlot(c, 3)
	msg := recvEvent(t, c, 100*time.Millisecond)
	if msg.Type != protocol.EvtError {
		t.Fatalf("want error event, got %+v", msg)
	}
}

func TestClaim_MovesPlayerAndClearsPreview(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	c0 := bind(t, r, "one")
	c1 := bind(t, r, "two")
	drain(c0)
	drain(c1)

	r.PreviewLetter(c1, "K")
	waitFor(t, c0, protocol.EvtSlotUpdate)
	drain(c1)

	r.ClaimSlot(c1, 4)

	// Vacated slot's preview is cleared for everyone.
	cleared := waitFor(t, c0, protocol.EvtSlotUpdate)
	if cleared.SlotState.Index != 1 || cleared.SlotState.Letter != "" {
		t.Fatalf("preview not cleared: %+v", cleared.SlotState)
	}
	roster := waitFor(t, c0, protocol.EvtRoster)
	if roster.Roster[1].Occupied || !roster.Roster[4].Occupied {
		t.Fatalf("roster not rebound: %+v", roster.Roster)
	}

	claimed := waitFor(t, c1, protocol.EvtSlotClaimed)
	if claimed.Slot == nil || *claimed.Slot != 4 {
		t.Fatalf("bad slotClaimed: %+v", claimed)
	}
	// Confirmation goes to the requester only.
	recvNone(t, c0, 50*time.Millisecond)
}

func TestAutoFill_UnboundSlotGetsAnswerLetter(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	c := bind(t, r, "solo")
	drain(c)

	r.AutoFill(c, 2)
	msg := waitFor(t, c, protocol.EvtSlotUpdate)
	if !msg.SlotState.Locked || msg.SlotState.Letter != "A" {
		t.Fatalf("want locked A at slot 2, got %+v", msg.SlotState)
	}

	r.mu.Lock()
	owner := r.slots[2].Owner
	r.mu.Unlock()
	if owner != AutoOwner {
		t.Fatalf("owner = %q, want %q", owner, AutoOwner)
	}
}

func TestAutoFill_BoundSlotRejected(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	c0 := bind(t, r, "one")
	c1 := bind(t, r, "two")
	drain(c0)
	drain(c1)

	r.AutoFill(c0, 1)
	msg := recvEvent(t, c0, 100*time.Millisecond)
	if msg.Type != protocol.EvtError {
		t.Fatalf("want error, got %+v", msg)
	}
	recvNone(t, c1, 50*time.Millisecond)
}

func TestAutoFill_CompletesUnderStaffedRow(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	c := bind(t, r, "solo")
	drain(c)

	r.SubmitLetter(c, "C")
	for i := 1; i < NumSlots; i++ {
		r.AutoFill(c, i)
	}
	over := waitFor(t, c, protocol.EvtGameOver)
	if over.Reason != "solved" {
		t.Fatalf("want solved, got %+v", over)
	}
}

func TestRelease_LockedSlotSurvivesDisconnect(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	c0 := bind(t, r, "one")
	c1 := bind(t, r, "two")
	drain(c0)
	drain(c1)

	r.SubmitLetter(c0, "C")
	r.Release(c0)

	roster := waitFor(t, c1, protocol.EvtRoster)
	if roster.Roster[0].Occupied {
		t.Fatalf("slot 0 still occupied after release")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.slots[0].Locked || r.slots[0].Letter != "C" {
		t.Fatalf("locked slot lost on disconnect: %+v", r.slots[0])
	}
}

func TestRelease_UnlockedSlotClearedOnDisconnect(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	c0 := bind(t, r, "one")
	c1 := bind(t, r, "two")
	drain(c0)
	drain(c1)

	r.PreviewLetter(c0, "W")
	r.Release(c0)

	cleared := waitFor(t, c1, protocol.EvtSlotUpdate)
	if cleared.SlotState.Index != 0 || cleared.SlotState.Letter != "" {
		t.Fatalf("preview survived disconnect: %+v", cleared.SlotState)
	}
}

func TestPreview_DoesNotAffectEvaluation(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	clients := bindFive(t, r)

	r.PreviewLetter(clients[0], "Q")
	msg := waitFor(t, clients[1], protocol.EvtSlotUpdate)
	if msg.SlotState.Locked || msg.SlotState.Letter != "Q" {
		t.Fatalf("want unlocked preview Q, got %+v", msg.SlotState)
	}

	// Clearing with the empty string.
	r.PreviewLetter(clients[0], "")
	msg = waitFor(t, clients[1], protocol.EvtSlotUpdate)
	if msg.SlotState.Letter != "" {
		t.Fatalf("preview not cleared: %+v", msg.SlotState)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.round != 0 || len(r.history) != 0 {
		t.Fatalf("preview reached evaluation")
	}
}

func TestSetColor_RejectsOutsidePalette(t *testing.T) {
	r := testRoom(t, "CRANE", 5)
	c := bind(t, r, "one")
	drain(c)

	r.SetColor(c, "magenta")
	msg := recvEvent(t, c, 100*time.Millisecond)
	if msg.Type != protocol.EvtError {
		t.Fatalf("want error, got %+v", msg)
	}

	r.SetColor(c, "green")
	roster := waitFor(t, c, protocol.EvtRoster)
	if roster.Roster[0].Color != "green" {
		t.Fatalf("color not applied: %+v", roster.Roster[0])
	}
}
