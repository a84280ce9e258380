package results

import (
	"errors"
	"fmt"
	"strings"
)

// Warning is returned by handlers to flag a condition that should be reported
// without failing the batch, e.g. a missing checksum sidecar.
type Warning struct {
	Message string
}

func (w *Warning) Error() string {
	return w.Message
}

func Warnf(format string, args ...any) error {
	return &Warning{Message: fmt.Sprintf(format, args...)}
}

func IsWarning(err error) bool {
	var w *Warning
	return errors.As(err, &w)
}

// Policy decides how a handler error is classified.
type Policy string

const (
	// PolicyForgiving keeps warnings as warnings; every other error fails.
	PolicyForgiving Policy = "forgiving"
	// PolicyStrict treats every handler error, warnings included, as a failure.
	PolicyStrict Policy = "strict"
)

func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return PolicyForgiving, nil
	case PolicyForgiving, PolicyStrict:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported warning policy: %s (must be one of: forgiving, strict)", raw)
	}
}

// Classify maps a handler error to an outcome. A nil error is a success.
func (p Policy) Classify(err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if p != PolicyStrict && IsWarning(err) {
		return OutcomeWarning
	}
	return OutcomeFailure
}
