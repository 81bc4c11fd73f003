package state

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidUser = errors.New("user id is empty")
)

// SessionState is the persistent conversation state for one end user.
// It records which catalog actions have fired, which were declined, and
// which single action is currently awaiting a user response.
type SessionState struct {
	UserID string `json:"user_id"`

	// History is the ordered list of fired action ids.
	History []string `json:"history,omitempty"`
	// Completed and Declined are terminal markers per action id.
	Completed map[string]bool `json:"completed,omitempty"`
	Declined  map[string]bool `json:"declined,omitempty"`

	// Awaiting names the action whose question is pending a user response.
	// At most one action awaits at a time.
	Awaiting string `json:"awaiting,omitempty"`

	// InstallmentOption is the bound payment option once confirmed.
	InstallmentOption string `json:"installment_option,omitempty"`
	// Slots holds action-specific chosen parameters before confirmation.
	Slots map[string]string `json:"slots,omitempty"`

	Concluded bool `json:"concluded,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSessionState(userID string, now time.Time) *SessionState {
	return &SessionState{
		UserID:    userID,
		Completed: make(map[string]bool, 8),
		Declined:  make(map[string]bool, 4),
		Slots:     make(map[string]string, 4),
		Version:   1,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// EnsureMaps makes sure the map fields are initialized after decoding.
func (s *SessionState) EnsureMaps() {
	if s.Completed == nil {
		s.Completed = make(map[string]bool, 8)
	}
	if s.Declined == nil {
		s.Declined = make(map[string]bool, 4)
	}
	if s.Slots == nil {
		s.Slots = make(map[string]string, 4)
	}
}

// MarkCompleted records an action as fired. Marking a completed action again
// is a no-op on history.
func (s *SessionState) MarkCompleted(actionID string, now time.Time) {
	s.EnsureMaps()
	if s.Completed[actionID] {
		return
	}
	s.Completed[actionID] = true
	s.History = append(s.History, actionID)
	s.Touch(now)
}

// MarkDeclined permanently excludes an action from future candidate scans.
func (s *SessionState) MarkDeclined(actionID string, now time.Time) {
	s.EnsureMaps()
	if s.Declined[actionID] {
		return
	}
	s.Declined[actionID] = true
	s.Touch(now)
}

func (s *SessionState) IsCompleted(actionID string) bool {
	return s != nil && s.Completed[actionID]
}

func (s *SessionState) IsDeclined(actionID string) bool {
	return s != nil && s.Declined[actionID]
}

// IsTerminal reports whether an action can no longer fire for this session.
func (s *SessionState) IsTerminal(actionID string) bool {
	return s.IsCompleted(actionID) || s.IsDeclined(actionID)
}

func (s *SessionState) SetSlot(key, val string) {
	s.EnsureMaps()
	s.Slots[key] = val
}

func (s *SessionState) Slot(key string) string {
	if s == nil || s.Slots == nil {
		return ""
	}
	return s.Slots[key]
}

// Clone returns a deep copy. The engine decides against a working copy so a
// failed save leaves the stored session untouched.
func (s *SessionState) Clone() *SessionState {
	if s == nil {
		return nil
	}
	cp := *s
	cp.History = append([]string(nil), s.History...)
	cp.Completed = make(map[string]bool, len(s.Completed))
	for k, v := range s.Completed {
		cp.Completed[k] = v
	}
	cp.Declined = make(map[string]bool, len(s.Declined))
	for k, v := range s.Declined {
		cp.Declined[k] = v
	}
	cp.Slots = make(map[string]string, len(s.Slots))
	for k, v := range s.Slots {
		cp.Slots[k] = v
	}
	return &cp
}

func (s *SessionState) Validate() error {
	if s.UserID == "" {
		return ErrInvalidUser
	}
	if s.Concluded && s.Awaiting != "" {
		return fmt.Errorf("concluded session must not await action %q", s.Awaiting)
	}
	if s.Awaiting != "" && s.Declined[s.Awaiting] {
		return fmt.Errorf("awaiting action %q is declined", s.Awaiting)
	}
	seen := make(map[string]bool, len(s.History))
	for _, id := range s.History {
		if seen[id] {
			return fmt.Errorf("history repeats action %q", id)
		}
		seen[id] = true
		if !s.Completed[id] {
			return fmt.Errorf("history has action %q without completion marker", id)
		}
	}
	return nil
}
