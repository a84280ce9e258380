package handlers

import (
	"context"

	"metadataexporter/internal/batch"
	"metadataexporter/internal/checksum"
	"metadataexporter/internal/tree"

	"github.com/sirupsen/logrus"
)

// Handler reacts to the events of a batch walk.
//
// A nil error means the event was handled. Returning a *results.Warning flags
// a condition without failing the batch; any other error (or a panic) is
// recorded as a failure for the node. Handlers never stop the walk.
type Handler interface {
	ID() string
	Title() string
	Description() string

	HandleNodeBegin(ctx context.Context, node tree.Node) error
	HandleAttribute(ctx context.Context, node tree.Node, attr tree.Attribute) error
	HandleNodeEnd(ctx context.Context, node tree.Node) error
}

type Option struct {
	Name        string
	Description string
	Default     string
}

type ConfigurableHandler interface {
	Handler
	Options() []Option
	Configure(opts map[string]string) error
}

// Preparer is implemented by handlers that must check their environment
// before any batch is walked. A Prepare error is a configuration error.
type Preparer interface {
	Prepare() error
}

// Env is what a handler instance gets to know about the walk it serves.
// Every batch gets its own handler instances.
type Env struct {
	Batch          batch.Batch
	Root           string
	OutputLocation string
	TransformMode  bool
	Verifier       checksum.Verifier
	Digests        *checksum.Cache
	Logger         *logrus.Entry
}

// Log returns the env logger, falling back to the standard logrus logger.
func (e Env) Log() *logrus.Entry {
	if e.Logger != nil {
		return e.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Factory builds a handler for one batch walk.
type Factory func(env Env) Handler

// Nop implements the event methods as no-ops. Embed it to implement only the
// events a handler cares about.
type Nop struct{}

func (Nop) HandleNodeBegin(ctx context.Context, node tree.Node) error {
	return nil
}

func (Nop) HandleAttribute(ctx context.Context, node tree.Node, attr tree.Attribute) error {
	return nil
}

func (Nop) HandleNodeEnd(ctx context.Context, node tree.Node) error {
	return nil
}
