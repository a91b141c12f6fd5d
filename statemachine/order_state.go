package statemachine

import (
	"fmt"
	"strings"

	"feasto-api/models"
)

// Transition defines a forward state change in the order lifecycle
type Transition struct {
	From models.OrderStatus `json:"from"`
	To   models.OrderStatus `json:"to"`
}

// forwardTransitions is the happy path. Cancellation is added for every
// non-terminal state below.
var forwardTransitions = []Transition{
	{From: models.StatusPending, To: models.StatusConfirmed},
	{From: models.StatusConfirmed, To: models.StatusPreparing},
	{From: models.StatusPreparing, To: models.StatusReady},
	{From: models.StatusReady, To: models.StatusOutForDelivery},
	{From: models.StatusOutForDelivery, To: models.StatusDelivered},
}

var terminalStates = map[models.OrderStatus]bool{
	models.StatusDelivered: true,
	models.StatusCancelled: true,
}

var validTransitions = func() []Transition {
	all := append([]Transition(nil), forwardTransitions...)
	for _, s := range models.OrderStatuses {
		if !terminalStates[s] {
			all = append(all, Transition{From: s, To: models.StatusCancelled})
		}
	}
	return all
}()

// Build a lookup map for O(1) validation
var transitionMap = func() map[Transition]bool {
	m := make(map[Transition]bool, len(validTransitions))
	for _, t := range validTransitions {
		m[t] = true
	}
	return m
}()

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status models.OrderStatus) bool {
	return terminalStates[status]
}

// TerminalStates returns the terminal statuses in lifecycle order.
func TerminalStates() []models.OrderStatus {
	var out []models.OrderStatus
	for _, s := range models.OrderStatuses {
		if terminalStates[s] {
			out = append(out, s)
		}
	}
	return out
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	for _, t := range validTransitions {
		if t.From == status {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// CanTransition checks the forward table. Re-applying the current status is
// allowed so repeated updates stay idempotent.
func CanTransition(from, to models.OrderStatus) error {
	if from == to || transitionMap[Transition{From: from, To: to}] {
		return nil
	}
	return fmt.Errorf("invalid transition: %s -> %s. Valid transitions from %s are: %s",
		from, to, from, describeValidFrom(from))
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return append([]Transition(nil), validTransitions...)
}
