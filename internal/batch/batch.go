package batch

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Batch identifies one unit of digitized material. The pair is opaque to the
// walk; it is passed through to handlers, logs and output events.
type Batch struct {
	ID              string `json:"batch_id"`
	RoundTripNumber int    `json:"round_trip"`
}

var dirNamePattern = regexp.MustCompile(`^B([^-/\\]+)-RT([0-9]+)$`)

// FullID returns the conventional directory name, e.g. "B400022028241-RT1".
func (b Batch) FullID() string {
	return fmt.Sprintf("B%s-RT%d", b.ID, b.RoundTripNumber)
}

func (b Batch) String() string {
	return b.FullID()
}

func (b Batch) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("batch id must not be empty")
	}
	if b.RoundTripNumber < 1 {
		return fmt.Errorf("round trip number must be >= 1, got %d", b.RoundTripNumber)
	}
	return nil
}

// ParseDirName parses a name following the B<batchId>-RT<roundTrip> convention.
func ParseDirName(name string) (Batch, error) {
	m := dirNamePattern.FindStringSubmatch(strings.TrimSpace(name))
	if m == nil {
		return Batch{}, fmt.Errorf("%q does not follow the B<batchId>-RT<roundTrip> naming convention", name)
	}
	rt, err := strconv.Atoi(m[2])
	if err != nil {
		return Batch{}, fmt.Errorf("invalid round trip in %q: %w", name, err)
	}
	b := Batch{ID: m[1], RoundTripNumber: rt}
	if err := b.Validate(); err != nil {
		return Batch{}, fmt.Errorf("invalid batch directory name %q: %w", name, err)
	}
	return b, nil
}

// FromPath parses the batch identity from the last element of a directory path.
func FromPath(dir string) (Batch, error) {
	return ParseDirName(filepath.Base(filepath.Clean(dir)))
}
