package telemetry

import (
	"time"

	"github.com/keyfold/keyfold/internal/tree"
)

// EventType distinguishes the two kinds of recorded events.
type EventType string

const (
	// EventAction is the execution of a leaf action.
	EventAction EventType = "action"
	// EventGroup is a navigation into a group.
	EventGroup EventType = "group"
)

// Execution is one immutable telemetry record. It is the JSON-Lines wire
// form; records are never rewritten once appended.
type Execution struct {
	ActionType  string    `json:"actionType"`
	ActionValue string    `json:"actionValue"`
	ActionLabel string    `json:"actionLabel,omitempty"`
	KeyPath     string    `json:"keyPath"`
	EventType   EventType `json:"eventType"`
	Timestamp   time.Time `json:"timestamp"`
}

// statsKey identifies the aggregate bucket for this record: the key path
// when the action is reachable by keys, otherwise a type+value composite so
// unkeyed actions still aggregate.
func (e Execution) statsKey() string {
	if e.KeyPath != "" {
		return e.KeyPath
	}
	return e.ActionType + "|" + e.ActionValue
}

// newExecution builds the record for a leaf action.
func newExecution(action *tree.Node, keyPath string, at time.Time) Execution {
	return Execution{
		ActionType:  string(action.Type),
		ActionValue: action.Value,
		ActionLabel: action.Label,
		KeyPath:     keyPath,
		EventType:   EventAction,
		Timestamp:   at,
	}
}

// newNavigation builds the record for entering a group.
func newNavigation(group *tree.Node, keyPath string, at time.Time) Execution {
	return Execution{
		ActionType:  string(tree.TypeGroup),
		ActionValue: group.DisplayName(),
		ActionLabel: group.Label,
		KeyPath:     keyPath,
		EventType:   EventGroup,
		Timestamp:   at,
	}
}
