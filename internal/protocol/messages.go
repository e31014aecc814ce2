package protocol

import "github.com/splitword/splitword-server/internal/score"

// Inbound action kinds.
const (
	ActPreviewLetter = "previewLetter"
	ActSubmitLetter  = "submitLetter"
	ActFillSlot      = "fillSlot"
	ActClaimSlot     = "claimSlot"
	ActUnlockMySlot  = "unlockMySlot"
	ActRequestReset  = "requestReset"
	ActSetName       = "setName"
	ActSetColor      = "setColor"
)

// Outbound event kinds.
const (
	EvtJoin        = "join"
	EvtRoster      = "roster"
	EvtSlotUpdate  = "slotUpdate"
	EvtWaiting     = "waiting"
	EvtRowUnlocked = "rowUnlocked"
	EvtReveal      = "reveal"
	EvtGameOver    = "gameOver"
	EvtNewRow      = "newRow"
	EvtReset       = "reset"
	EvtError       = "error"
	EvtSlotClaimed = "slotClaimed"
)

// ClientMessage is the envelope for every inbound action. Slot is a pointer
// so index 0 is distinguishable from an absent field.
type ClientMessage struct {
	Type   string `json:"type"`
	Letter string `json:"letter,omitempty"`
	Slot   *int   `json:"slot,omitempty"`
	Name   string `json:"name,omitempty"`
	Color  string `json:"color,omitempty"`
}

// SlotState is the broadcast view of one letter position. Owner tokens stay
// server-side; clients only see occupancy via the roster.
type SlotState struct {
	Index  int    `json:"index"`
	Locked bool   `json:"locked"`
	Letter string `json:"letter"`
}

// RosterEntry describes who (if anyone) holds a slot.
type RosterEntry struct {
	Slot     int    `json:"slot"`
	Occupied bool   `json:"occupied"`
	Name     string `json:"name,omitempty"`
	Color    string `json:"color,omitempty"`
}

// GuessResult is one evaluated row.
type GuessResult struct {
	Guess   string       `json:"guess"`
	Colors  []score.Mark `json:"colors"`
	Correct bool         `json:"correct"`
	Invalid bool         `json:"invalid"`
}

// ServerMessage is the envelope for every outbound event; Type selects which
// payload fields are populated.
type ServerMessage struct {
	Type      string        `json:"type"`
	Room      string        `json:"room,omitempty"`
	Phase     string        `json:"phase,omitempty"`
	Slot      *int          `json:"slot,omitempty"`
	Round     int           `json:"round,omitempty"`
	MaxRounds int           `json:"maxRounds,omitempty"`
	SlotState *SlotState    `json:"slotState,omitempty"`
	Slots     []SlotState   `json:"slots,omitempty"`
	Roster    []RosterEntry `json:"roster,omitempty"`
	Waiting   []int         `json:"waiting,omitempty"`
	Result    *GuessResult  `json:"result,omitempty"`
	History   []GuessResult `json:"history,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Answer    string        `json:"answer,omitempty"`
	Error     string        `json:"error,omitempty"`
}
