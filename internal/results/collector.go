package results

// Collector accumulates the outcomes of one walk.
//
// Entries are appended in the order they are reported and never change
// afterwards. A Collector has a single writer: the runner that owns it. Share
// it across goroutines only behind external synchronisation.
type Collector struct {
	tool    string
	version string
	entries []Entry
}

// NewCollector creates an empty collector. capacityHint only sizes the
// initial allocation; the collector never truncates.
func NewCollector(tool, version string, capacityHint int) *Collector {
	if capacityHint < 0 {
		capacityHint = 0
	}
	return &Collector{
		tool:    tool,
		version: version,
		entries: make([]Entry, 0, capacityHint),
	}
}

func (c *Collector) Tool() string    { return c.tool }
func (c *Collector) Version() string { return c.version }

func (c *Collector) AddResult(nodeID string, outcome Outcome, message string) {
	c.Add(NewEntry(nodeID, outcome, message))
}

func (c *Collector) Add(e Entry) {
	c.entries = append(c.entries, e)
}

// IsSuccess reports whether no FAILURE has been recorded. Warnings do not
// affect the verdict.
func (c *Collector) IsSuccess() bool {
	for _, e := range c.entries {
		if e.Outcome == OutcomeFailure {
			return false
		}
	}
	return true
}

// Entries returns a copy of all entries in recording order.
func (c *Collector) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Collector) Failures() []Entry {
	return c.filter(OutcomeFailure)
}

func (c *Collector) Warnings() []Entry {
	return c.filter(OutcomeWarning)
}

func (c *Collector) Len() int {
	return len(c.entries)
}

func (c *Collector) filter(o Outcome) []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Outcome == o {
			out = append(out, e)
		}
	}
	return out
}

// Summary holds per-outcome counts.
type Summary struct {
	Successes int  `json:"successes"`
	Failures  int  `json:"failures"`
	Warnings  int  `json:"warnings"`
	Success   bool `json:"success"`
}

func (c *Collector) Summary() Summary {
	s := Summary{Success: true}
	for _, e := range c.entries {
		switch e.Outcome {
		case OutcomeSuccess:
			s.Successes++
		case OutcomeFailure:
			s.Failures++
			s.Success = false
		case OutcomeWarning:
			s.Warnings++
		}
	}
	return s
}
