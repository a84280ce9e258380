// Package logger configures the process-wide logrus logger.
package logger

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

type LogOptions struct {
	// Verbose switches the level to debug.
	Verbose bool
	// DisableColor disables colored levels. Colors are also off when Output
	// is not a terminal.
	DisableColor bool
	// Output defaults to stderr so stdout stays free for structured streams.
	Output io.Writer
}

func Init(options LogOptions) {
	if options.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	out := options.Output
	if out == nil {
		out = os.Stderr
	}
	logrus.SetOutput(out)

	logrus.SetFormatter(&Formatter{
		DisableColor: options.DisableColor || !isTerminal(out),
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
