package workflow

import (
	"time"

	"github.com/bitfantasy/vgp/internal/vgp/entity"
)

// EntityKind record type governed by the status lifecycle
type EntityKind string

const (
	KindNonConformity    EntityKind = "non_conformity"
	KindCorrectiveAction EntityKind = "corrective_action"
)

type edge struct {
	from, to string
}

// edge -> requires validation permission
var transitions = map[EntityKind]map[edge]bool{
	KindNonConformity: {
		{entity.StatusOpen, entity.StatusInProgress}:   false,
		{entity.StatusInProgress, entity.StatusClosed}: true,
	},
	KindCorrectiveAction: {
		{entity.StatusOpen, entity.StatusInProgress}:      false,
		{entity.StatusInProgress, entity.StatusClosed}:    true,
		{entity.StatusInProgress, entity.StatusValidated}: true,
	},
}

var knownStates = map[string]bool{
	entity.StatusOpen:       true,
	entity.StatusInProgress: true,
	entity.StatusClosed:     true,
	entity.StatusValidated:  true,
}

// ParseKind validates an entity kind coming from the outside.
func ParseKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	if _, ok := transitions[k]; !ok {
		return "", Validation("unknown entity kind %q", s)
	}
	return k, nil
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(kind EntityKind, status string) bool {
	for e := range transitions[kind] {
		if e.from == status {
			return false
		}
	}
	return true
}

// CheckTransition decides whether caller may move a record of kind from one
// state to another. Order: central authorization, state vocabulary, edge
// existence, then the edge's own role guard. A target no edge leads to, an
// unknown status or a known one the kind cannot reach (an NC to VALIDEE),
// is an invalid transition.
func CheckTransition(kind EntityKind, from, to string, caller Caller) error {
	if err := Authorize(caller, ActionTransition); err != nil {
		return err
	}
	edges, ok := transitions[kind]
	if !ok {
		return Validation("unknown entity kind %q", kind)
	}
	if !knownStates[to] {
		return InvalidTransition("%s cannot reach unknown status %q", kind, to)
	}
	if IsTerminal(kind, from) {
		return InvalidTransition("%s is already %s", kind, from)
	}
	needsValidation, ok := edges[edge{from, to}]
	if !ok {
		return InvalidTransition("%s cannot move from %s to %s", kind, from, to)
	}
	if needsValidation && !caller.CanValidate() {
		return Forbidden("moving %s to %s requires manager or admin role", kind, to)
	}
	return nil
}

// TransitionNonConformity applies a checked transition to nc.
func TransitionNonConformity(nc *entity.NonConformity, to string, caller Caller, now time.Time) error {
	if err := CheckTransition(KindNonConformity, nc.Status, to, caller); err != nil {
		return err
	}
	nc.Status = to
	if to == entity.StatusClosed {
		closed := now
		nc.ClosedAt = &closed
	}
	return nil
}

// TransitionCorrectiveAction applies a checked transition to ca. Closing
// stamps closed_at; validating also records the validator.
func TransitionCorrectiveAction(ca *entity.CorrectiveAction, to string, caller Caller, now time.Time) error {
	if err := CheckTransition(KindCorrectiveAction, ca.Status, to, caller); err != nil {
		return err
	}
	ca.Status = to
	switch to {
	case entity.StatusClosed:
		closed := now
		ca.ClosedAt = &closed
	case entity.StatusValidated:
		closed := now
		validator := caller.UserID
		ca.ClosedAt = &closed
		ca.ValidatedBy = &validator
	}
	return nil
}
