package results

import (
	"fmt"
	"strings"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomeWarning Outcome = "WARNING"
)

func ParseOutcome(raw string) (Outcome, error) {
	switch o := Outcome(strings.ToUpper(strings.TrimSpace(raw))); o {
	case OutcomeSuccess, OutcomeFailure, OutcomeWarning:
		return o, nil
	default:
		return "", fmt.Errorf("unknown outcome: %s", raw)
	}
}

// Entry is one recorded outcome for a node.
type Entry struct {
	Batch   string  `json:"batch,omitempty"`
	NodeID  string  `json:"node"`
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message,omitempty"`
	// Handler is the id of the handler that produced the entry, if any.
	Handler string `json:"handler,omitempty"`
	// Event names the dispatch the entry was recorded for, e.g. "node.begin".
	Event string `json:"event,omitempty"`
}

func NewEntry(nodeID string, outcome Outcome, message string) Entry {
	return Entry{NodeID: nodeID, Outcome: outcome, Message: message}
}

func FailureEntry(nodeID string, message string) Entry {
	return NewEntry(nodeID, OutcomeFailure, message)
}

func WarningEntry(nodeID string, message string) Entry {
	return NewEntry(nodeID, OutcomeWarning, message)
}

func SuccessEntry(nodeID string, message string) Entry {
	return NewEntry(nodeID, OutcomeSuccess, message)
}
