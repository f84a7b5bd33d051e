package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTransition is returned when an intercept is asked to move to a
// state its current state does not lead to.
var ErrInvalidTransition = errors.New("invalid intercept transition")

// InterceptKind names the event surface an intercept came from.
type InterceptKind string

const (
	KindNavigation InterceptKind = "navigation"
	KindLink       InterceptKind = "link"
	KindForm       InterceptKind = "form"
)

// InterceptState is the per-action state machine:
//
//	pending -> allowed | warned | blocked
//	warned  -> allowed   (user proceed)
//	blocked -> allowed   (trust-and-retry, or proceed-anyway for navigations)
type InterceptState string

const (
	StatePending InterceptState = "pending"
	StateAllowed InterceptState = "allowed"
	StateWarned  InterceptState = "warned"
	StateBlocked InterceptState = "blocked"
)

// Intercept records one intercepted navigation, link click or form submit.
type Intercept struct {
	ID        string         `json:"id"`
	TabID     int            `json:"tabId"`
	Kind      InterceptKind  `json:"kind"`
	URL       string         `json:"url"`
	State     InterceptState `json:"state"`
	Decision  *Decision      `json:"decision,omitempty"`
	Override  bool           `json:"override"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// NewIntercept starts a pending intercept with a fresh ID.
func NewIntercept(tabID int, kind InterceptKind, url string, now time.Time) *Intercept {
	return &Intercept{
		ID:        uuid.NewString(),
		TabID:     tabID,
		Kind:      kind,
		URL:       url,
		State:     StatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Resolve applies the first decision to a pending intercept.
func (i *Intercept) Resolve(d Decision, now time.Time) error {
	if i.State != StatePending {
		return fmt.Errorf("%w: resolve from %s", ErrInvalidTransition, i.State)
	}
	switch d.Action {
	case ActionAllow:
		i.State = StateAllowed
	case ActionWarn:
		i.State = StateWarned
	case ActionBlock:
		i.State = StateBlocked
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, d.Action)
	}
	i.Decision = &d
	i.UpdatedAt = now
	return nil
}

// Proceed records the user's explicit choice to continue. Warned intercepts
// always may; blocked ones only for top-level navigations (proceed anyway).
func (i *Intercept) Proceed(now time.Time) error {
	switch {
	case i.State == StateWarned:
	case i.State == StateBlocked && i.Kind == KindNavigation:
	default:
		return fmt.Errorf("%w: proceed from %s %s", ErrInvalidTransition, i.Kind, i.State)
	}
	i.State = StateAllowed
	i.Override = true
	i.UpdatedAt = now
	return nil
}

// Retry moves a blocked intercept to allowed after the domain has been
// trusted. d must be the re-evaluated decision and must allow.
func (i *Intercept) Retry(d Decision, now time.Time) error {
	if i.State != StateBlocked {
		return fmt.Errorf("%w: retry from %s", ErrInvalidTransition, i.State)
	}
	if d.Action != ActionAllow {
		return fmt.Errorf("%w: retry produced %s", ErrInvalidTransition, d.Action)
	}
	i.State = StateAllowed
	i.Decision = &d
	i.UpdatedAt = now
	return nil
}

// Terminal reports whether no further user transition is possible.
func (i *Intercept) Terminal() bool {
	return i.State == StateAllowed
}

// Clone returns a copy safe to hand outside the owning goroutine.
func (i *Intercept) Clone() Intercept {
	c := *i
	if i.Decision != nil {
		d := *i.Decision
		if d.Risk != nil {
			r := *d.Risk
			d.Risk = &r
		}
		c.Decision = &d
	}
	return c
}
