package output

import (
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// ProgressSink shows a spinner with the number of walked nodes. The total is
// unknown up front because the iterator is lazy.
type ProgressSink struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func NewProgressSink(w io.Writer) *ProgressSink {
	if w == nil {
		w = os.Stderr
	}
	return &ProgressSink{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("walking"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		),
	}
}

func (s *ProgressSink) Write(v any) error {
	ev, ok := v.(Event)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case EventBatchStarted:
		s.bar.Describe(ev.Batch)
	case EventNodeStarted:
		if err := s.bar.Add(1); err != nil {
			logrus.Debugf("failed to increment progress bar: %v", err)
		}
	}
	return nil
}

func (s *ProgressSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bar.Finish()
}
