package main

import (
	"fmt"

	"github.com/schollz/progressbar/v3"

	"github.com/mgomes/rangedl"
)

// barSink renders the Total row on a single progress bar; per-part rows
// are ignored and not displayed.
type barSink struct {
	bar       *progressbar.ProgressBar
	transient bool
}

func newBarSink(transient bool) *barSink {
	return &barSink{transient: transient}
}

func (s *barSink) UpdatePart(num int, completed, total, speed int64, state rangedl.PartState) {}

func (s *barSink) UpdateTotal(completed, total, speed int64, status string) {
	if s.bar == nil {
		s.bar = progressbar.DefaultBytes(total, "downloading")
	}
	if total > 0 {
		s.bar.ChangeMax64(total)
	}
	s.bar.Describe(fmt.Sprintf("%s (%s/s)", status, rangedl.FormatBytes(speed)))
	_ = s.bar.Set64(completed)
}

func (s *barSink) Close() {
	if s.bar == nil {
		return
	}
	_ = s.bar.Finish()
	if s.transient {
		_ = s.bar.Clear()
	}
}
