// Package anomaly wires the pattern trie into a stateful log-shape
// detector: a named trie that is either learning new log shapes or
// matching incoming lines against what it has already learned.
package anomaly

import (
	"fmt"
	"sync"
	"time"

	"github.com/fidde/patterntrie/internal/config"
	"github.com/fidde/patterntrie/pkg/patterntrie"
)

// Event describes one line that failed to match a detector's trie.
type Event struct {
	DetectorName string
	Line         string
	Description  patterntrie.SampleDescription
	Observed     time.Time
}

// Mode selects whether ingested lines are learned or matched.
type Mode int

const (
	// ModeDetect matches each ingested line against the trie; a
	// mismatch produces an Event.
	ModeDetect Mode = iota
	// ModeTraining learns every ingested line into the trie.
	ModeTraining
)

// Detector owns one named pattern trie and the mode it currently runs in.
// Learn mutates exclusively; Ingest in ModeDetect only reads, so many
// goroutines can call Ingest concurrently with each other, just not with
// a concurrent SetMode(ModeTraining) ingestion.
type Detector struct {
	name string
	mode Mode

	mu   sync.RWMutex
	trie *patterntrie.Trie

	tuning config.TuningConfig
}

// New creates a Detector with a fresh, empty trie.
func New(name string, mode Mode, tuning config.TuningConfig) *Detector {
	if len(tuning.ExtraCalendarWeekdays) > 0 || len(tuning.ExtraCalendarMonths) > 0 {
		patterntrie.RegisterCalendarWords(tuning.ExtraCalendarWeekdays, tuning.ExtraCalendarMonths)
	}

	threshold := tuning.ConvergeThreshold
	if threshold <= 0 {
		threshold = config.DefaultTuningConfig().ConvergeThreshold
	}

	return &Detector{
		name:   name,
		mode:   mode,
		trie:   patterntrie.NewWithConvergeThreshold(threshold),
		tuning: tuning,
	}
}

// FromTrie wraps an already-learned trie (typically one restored from a
// snapshot) in a Detector.
func FromTrie(name string, mode Mode, tuning config.TuningConfig, t *patterntrie.Trie) *Detector {
	return &Detector{name: name, mode: mode, trie: t, tuning: tuning}
}

// Name returns the detector's name.
func (d *Detector) Name() string {
	return d.name
}

// Mode returns the detector's current mode.
func (d *Detector) Mode() Mode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.mode
}

// SetMode switches the detector between training and detection.
func (d *Detector) SetMode(m Mode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mode = m
}

// Trie returns the underlying trie, for snapshotting.
func (d *Detector) Trie() *patterntrie.Trie {
	return d.trie
}

// Learn teaches the detector's trie a batch of sample lines regardless of
// the current mode.
func (d *Detector) Learn(samples []string) error {
	if err := d.trie.Learn(samples); err != nil {
		return fmt.Errorf("learning samples for detector %q: %w", d.name, err)
	}
	return nil
}

// Match reports whether line fits a shape the trie already knows.
func (d *Detector) Match(line string) bool {
	return d.trie.Match(line)
}

// Describe explains how line deviates from the trie's learned shapes.
func (d *Detector) Describe(line string) patterntrie.SampleDescription {
	return d.trie.Describe(line)
}

// Ingest processes one incoming line according to the detector's current
// mode. In ModeTraining it is learned; in ModeDetect a non-matching line
// produces an Event, and a matching line produces no event.
func (d *Detector) Ingest(line string) (*Event, error) {
	d.mu.RLock()
	mode := d.mode
	d.mu.RUnlock()

	if mode == ModeTraining {
		if err := d.Learn([]string{line}); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if d.Match(line) {
		return nil, nil
	}
	return &Event{
		DetectorName: d.name,
		Line:         line,
		Description:  d.Describe(line),
	}, nil
}

// IngestBatch runs Ingest over every line, collecting the resulting events
// in order. A line that causes a training error aborts the batch.
func (d *Detector) IngestBatch(lines []string) ([]*Event, error) {
	var events []*Event
	for _, line := range lines {
		ev, err := d.Ingest(line)
		if err != nil {
			return events, err
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	return events, nil
}
