package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"metadataexporter/internal/batch"
	"metadataexporter/internal/handlers"
	"metadataexporter/internal/output"
	"metadataexporter/internal/results"
	"metadataexporter/internal/tree"

	"github.com/sirupsen/logrus"
)

// Dispatch names recorded on result entries.
const (
	DispatchNodeBegin = "node.begin"
	DispatchAttribute = "node.attribute"
	DispatchNodeEnd   = "node.end"
)

// NodeIterator yields the nodes of one batch in pre-order. Next returns
// io.EOF once the walk is exhausted. *tree.Iterator implements it.
type NodeIterator interface {
	Next() (tree.Node, error)
}

// EventSink receives lifecycle events and result entries while a batch is
// walked. *output.Manager implements it.
type EventSink interface {
	Write(v any) error
}

// Runner walks one batch and dispatches every node event to its handlers.
//
// Handler errors never stop the walk: they are classified by the policy and
// recorded in the collector. Only structural iterator errors and
// cancellation are returned from Run.
type Runner struct {
	iter          NodeIterator
	handlers      []handlers.Handler
	results       *results.Collector
	policy        results.Policy
	batch         batch.Batch
	sink          EventSink
	log           *logrus.Entry
	recordSuccess bool

	nodes int
}

type RunnerOption func(*Runner)

func WithPolicy(p results.Policy) RunnerOption {
	return func(r *Runner) { r.policy = p }
}

func WithBatch(b batch.Batch) RunnerOption {
	return func(r *Runner) { r.batch = b }
}

func WithEventSink(s EventSink) RunnerOption {
	return func(r *Runner) { r.sink = s }
}

func WithLogger(l *logrus.Entry) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// WithRecordSuccess makes the runner add a SUCCESS entry for every node that
// ended without any other entry.
func WithRecordSuccess(enabled bool) RunnerOption {
	return func(r *Runner) { r.recordSuccess = enabled }
}

func NewRunner(iter NodeIterator, hs []handlers.Handler, collector *results.Collector, opts ...RunnerOption) *Runner {
	r := &Runner{
		iter:     iter,
		handlers: hs,
		results:  collector,
		policy:   results.PolicyForgiving,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Nodes returns how many nodes have been begun so far.
func (r *Runner) Nodes() int {
	return r.nodes
}

// openNode is a node whose NodeEnd is still pending, plus the number of entries
// recorded for it.
type openNode struct {
	node    tree.Node
	entries int
}

func (r *Runner) Run(ctx context.Context) (err error) {
	if r.iter == nil {
		return errors.New("runner has no iterator")
	}
	if r.results == nil {
		return errors.New("runner has no result collector")
	}

	batchID := r.batchID()
	r.emit(output.Event{Type: output.EventBatchStarted, Batch: batchID, Handlers: len(r.handlers)})
	defer func() {
		r.closeHandlers()
		r.finish(err)
	}()

	var stack []*openNode
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("walk of %s interrupted: %w", r.describeBatch(), ctxErr)
		}

		node, nextErr := r.iter.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return nextErr
		}

		for len(stack) > 0 && stack[len(stack)-1].node.Depth >= node.Depth {
			r.end(ctx, stack[len(stack)-1])
			stack = stack[:len(stack)-1]
		}

		cur := &openNode{node: node}
		r.begin(ctx, cur)
		if node.Type.HasChildren() {
			stack = append(stack, cur)
			continue
		}
		r.end(ctx, cur)
	}

	for i := len(stack) - 1; i >= 0; i-- {
		r.end(ctx, stack[i])
	}
	return nil
}

func (r *Runner) begin(ctx context.Context, cur *openNode) {
	r.nodes++
	node := cur.node
	r.log.WithFields(logrus.Fields{"node": node.RelPath, "type": node.Type}).Debug("node begin")
	r.emit(output.Event{Type: output.EventNodeStarted, Batch: r.batchID(), Node: node.ID(), NodeType: node.Type.String()})

	for _, h := range r.handlers {
		r.dispatch(cur, h, DispatchNodeBegin, func() error {
			return h.HandleNodeBegin(ctx, node)
		})
	}
	for _, attr := range node.Attributes {
		for _, h := range r.handlers {
			r.dispatch(cur, h, DispatchAttribute, func() error {
				return h.HandleAttribute(ctx, node, attr)
			})
		}
	}
}

func (r *Runner) end(ctx context.Context, cur *openNode) {
	node := cur.node
	for _, h := range r.handlers {
		r.dispatch(cur, h, DispatchNodeEnd, func() error {
			return h.HandleNodeEnd(ctx, node)
		})
	}
	if r.recordSuccess && cur.entries == 0 {
		r.record(cur, results.Entry{
			Batch:   r.batchID(),
			NodeID:  node.ID(),
			Outcome: results.OutcomeSuccess,
			Event:   DispatchNodeEnd,
		})
	}
	r.emit(output.Event{Type: output.EventNodeFinished, Batch: r.batchID(), Node: node.ID(), NodeType: node.Type.String()})
}

// dispatch runs one handler callback, converting errors and panics into
// result entries for the node.
func (r *Runner) dispatch(cur *openNode, h handlers.Handler, event string, call func() error) {
	err := safeCall(call)
	if err == nil {
		return
	}
	outcome := r.policy.Classify(err)
	r.log.WithFields(logrus.Fields{
		"handler": h.ID(),
		"node":    cur.node.RelPath,
		"event":   event,
	}).Debugf("%s: %v", outcome, err)

	r.record(cur, results.Entry{
		Batch:   r.batchID(),
		NodeID:  cur.node.ID(),
		Outcome: outcome,
		Message: fmt.Sprintf("%s: %v", h.ID(), err),
		Handler: h.ID(),
		Event:   event,
	})
}

func (r *Runner) record(cur *openNode, e results.Entry) {
	cur.entries++
	r.results.Add(e)
	r.emit(e)
}

func safeCall(call func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return call()
}

func (r *Runner) closeHandlers() {
	for _, h := range r.handlers {
		c, ok := h.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			r.log.WithField("handler", h.ID()).Warnf("failed to release handler resources: %v", err)
		}
	}
}

func (r *Runner) finish(err error) {
	sum := r.results.Summary()
	success := err == nil && sum.Success
	ev := output.Event{
		Type:     output.EventBatchFinished,
		Batch:    r.batchID(),
		Nodes:    r.nodes,
		Failures: sum.Failures,
		Warnings: sum.Warnings,
		Success:  &success,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	r.emit(ev)
}

func (r *Runner) emit(v any) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Write(v); err != nil {
		r.log.Debugf("failed to write event: %v", err)
	}
}

func (r *Runner) batchID() string {
	if r.batch.ID == "" {
		return ""
	}
	return r.batch.FullID()
}

func (r *Runner) describeBatch() string {
	if id := r.batchID(); id != "" {
		return id
	}
	return "batch"
}
