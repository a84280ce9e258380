package output

import "metadataexporter/internal/results"

const (
	EventRunStarted    = "run.started"
	EventBatchStarted  = "batch.started"
	EventNodeStarted   = "node.started"
	EventNodeResult    = "node.result"
	EventNodeFinished  = "node.finished"
	EventBatchFinished = "batch.finished"
	EventRunFinished   = "run.finished"
)

// Event is a lifecycle record for NDJSON streaming output.
//
// In NDJSON mode, sinks emit Events (one JSON object per line), including:
// - run.started
// - batch.started
// - node.started / node.result / node.finished
// - batch.finished
// - run.finished
//
// JSON mode remains an aggregate of results.Entry values.
type Event struct {
	Type     string `json:"type"`
	RunID    string `json:"run_id,omitempty"`
	Batch    string `json:"batch,omitempty"`
	Node     string `json:"node,omitempty"`
	NodeType string `json:"node_type,omitempty"`
	*results.Entry
	Batches  int    `json:"batches,omitempty"`
	Nodes    int    `json:"nodes,omitempty"`
	Handlers int    `json:"handlers,omitempty"`
	Failures int    `json:"failures,omitempty"`
	Warnings int    `json:"warnings,omitempty"`
	Success  *bool  `json:"success,omitempty"`
	Error    string `json:"error,omitempty"`
	ExitCode int    `json:"exit_code,omitempty"`
}

func eventFromEntry(e results.Entry) Event {
	return Event{Type: EventNodeResult, Batch: e.Batch, Node: e.NodeID, Entry: &e}
}
