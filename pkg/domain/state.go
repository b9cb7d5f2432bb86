package domain

import "time"

// Status defines the lifecycle of a workflow session.
type Status string

const (
	StatusProgress  Status = "progress"  // Waiting for more user input
	StatusCompleted Status = "completed" // Workflow finished for this session
	StatusError     Status = "error"     // A fatal error surfaced to the caller
)

// Service names the workflow this module implements.
const Service = "iptu_payment"

// Data is the durable, user-visible progress of the workflow. Every field
// here survives across turns and is what the routers reason about.
type Data struct {
	PropertyID         string          `json:"property_id,omitempty"`
	Year               int             `json:"year,omitempty"`
	Property           *PropertyInfo   `json:"property,omitempty"`
	Guides             *GuideSet       `json:"guides,omitempty"`
	ChosenGuide        string          `json:"chosen_guide,omitempty"`
	Installments       *InstallmentSet `json:"installments,omitempty"`
	ChosenInstallments []string        `json:"chosen_installments,omitempty"`
	Slips              []Slip          `json:"slips,omitempty"`
	Debt               *DebtInfo       `json:"debt,omitempty"`
}

// Internal is durable machine-only bookkeeping. It never appears in prompts
// and is cleared wholesale on a full reset.
type Internal struct {
	// GuidesConsulted guards the remote guide lookup so a re-entered turn
	// does not hit the upstream service twice for the same property/year.
	GuidesConsulted bool `json:"guides_consulted,omitempty"`

	// FailedAttempts counts, per property id, consecutive years for which
	// the guide lookup came back empty.
	FailedAttempts map[string]int `json:"failed_attempts,omitempty"`

	DataConfirmed bool  `json:"data_confirmed,omitempty"`
	SeparateSlips *bool `json:"separate_slips,omitempty"`

	// NextQuestion classifies what to offer after slips are generated:
	// "more_installments", "other_guides" or "neither". Recorded before the
	// follow-up prompt is shown.
	NextQuestion string `json:"next_question,omitempty"`

	WantsMoreInstallments bool `json:"wants_more_installments,omitempty"`
	WantsOtherGuide       bool `json:"wants_other_guide,omitempty"`
	WantsOtherProperty    bool `json:"wants_other_property,omitempty"`
}

// Prompt is a pending response: the question (or error) the workflow needs
// answered before it can advance. Setting it halts the current turn.
type Prompt struct {
	Description   string `json:"description"`
	ErrorMessage  string `json:"error_message,omitempty"`
	PayloadSchema string `json:"payload_schema,omitempty"`
	Data          any    `json:"data,omitempty"`
}

// Meta carries session timestamps.
type Meta struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State is the full session snapshot persisted between turns.
type State struct {
	SessionID string   `json:"session_id"`
	Service   string   `json:"service"`
	Status    Status   `json:"status"`
	Data      Data     `json:"data"`
	Internal  Internal `json:"internal"`
	Meta      Meta     `json:"meta"`

	// Payload is the raw input of the current turn. It is transient: the
	// engine clears it before every persist.
	Payload map[string]any `json:"-"`

	// Prompt is the pending response for the current turn, if any.
	Prompt *Prompt `json:"prompt,omitempty"`

	// Encrypted holds the sealed snapshot when the store is wrapped by the
	// encryption middleware. At rest it replaces Data, Internal and Prompt.
	Encrypted string `json:"encrypted,omitempty"`
}

// NewState creates a fresh session at the start of the workflow.
func NewState(sessionID string, now time.Time) *State {
	return &State{
		SessionID: sessionID,
		Service:   Service,
		Status:    StatusProgress,
		Meta:      Meta{CreatedAt: now, UpdatedAt: now},
	}
}

// HasPrompt reports whether a pending response is set.
func (s *State) HasPrompt() bool { return s.Prompt != nil }

// Ask sets a plain question prompt.
func (s *State) Ask(description, schema string) {
	s.Prompt = &Prompt{Description: description, PayloadSchema: schema}
}

// AskWithError sets a re-prompt that carries a validation or service error
// alongside the question.
func (s *State) AskWithError(description, errMsg, schema string) {
	s.Prompt = &Prompt{Description: description, ErrorMessage: errMsg, PayloadSchema: schema}
}

// FailedAttemptsFor returns the empty-result counter for a property id.
func (s *State) FailedAttemptsFor(propertyID string) int {
	return s.Internal.FailedAttempts[propertyID]
}

// BumpFailedAttempts increments and returns the empty-result counter for a
// property id.
func (s *State) BumpFailedAttempts(propertyID string) int {
	if s.Internal.FailedAttempts == nil {
		s.Internal.FailedAttempts = make(map[string]int)
	}
	s.Internal.FailedAttempts[propertyID]++
	return s.Internal.FailedAttempts[propertyID]
}

// ClearFailedAttempts drops the empty-result counter for a property id.
func (s *State) ClearFailedAttempts(propertyID string) {
	delete(s.Internal.FailedAttempts, propertyID)
}

// Touch updates the modification timestamp.
func (s *State) Touch(now time.Time) { s.Meta.UpdatedAt = now }
