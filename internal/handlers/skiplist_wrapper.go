package handlers

import (
	"context"
	"io"

	"metadataexporter/internal/tree"
)

// SkipListWrapper wraps a Handler to provide skip.* options for every handler.
type SkipListWrapper struct {
	Handler
	skipList SkipList
}

// Unwrap returns the wrapped handler.
func (w *SkipListWrapper) Unwrap() Handler {
	return w.Handler
}

func (w *SkipListWrapper) HandleNodeBegin(ctx context.Context, node tree.Node) error {
	if skipped, _ := w.skipList.IsSkipped(node); skipped {
		return nil
	}
	return w.Handler.HandleNodeBegin(ctx, node)
}

func (w *SkipListWrapper) HandleAttribute(ctx context.Context, node tree.Node, attr tree.Attribute) error {
	if skipped, _ := w.skipList.IsSkipped(node); skipped {
		return nil
	}
	return w.Handler.HandleAttribute(ctx, node, attr)
}

func (w *SkipListWrapper) HandleNodeEnd(ctx context.Context, node tree.Node) error {
	if skipped, _ := w.skipList.IsSkipped(node); skipped {
		return nil
	}
	return w.Handler.HandleNodeEnd(ctx, node)
}

// Close releases resources of the inner handler if it holds any.
func (w *SkipListWrapper) Close() error {
	if c, ok := w.Handler.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Prepare runs the inner handler's Prepare if it has one.
func (w *SkipListWrapper) Prepare() error {
	if p, ok := w.Handler.(Preparer); ok {
		return p.Prepare()
	}
	return nil
}

// Options returns the combined options of the skip list and the inner handler (if configurable).
func (w *SkipListWrapper) Options() []Option {
	opts := w.skipList.Options()
	if ch, ok := w.Handler.(ConfigurableHandler); ok {
		opts = append(opts, ch.Options()...)
	}
	return opts
}

// Configure configures the skip list and the inner handler (if configurable).
func (w *SkipListWrapper) Configure(opts map[string]string) error {
	if err := w.skipList.Configure(opts); err != nil {
		return err
	}
	ch, ok := w.Handler.(ConfigurableHandler)
	if !ok {
		return nil
	}
	inner := make(map[string]string, len(opts))
	for k, v := range opts {
		if k == "skip.paths" || k == "skip.types" {
			continue
		}
		inner[k] = v
	}
	return ch.Configure(inner)
}
