package anomaly

import (
	"testing"

	"github.com/fidde/patterntrie/internal/config"
)

func TestDetectorTrainingThenDetect(t *testing.T) {
	d := New("web", ModeTraining, config.DefaultTuningConfig())

	for _, line := range []string{"request id=1 ok", "request id=2 ok", "request id=3 ok"} {
		ev, err := d.Ingest(line)
		if err != nil {
			t.Fatalf("Ingest during training: %v", err)
		}
		if ev != nil {
			t.Errorf("training mode should never produce an event, got %+v", ev)
		}
	}

	d.SetMode(ModeDetect)

	if ev, err := d.Ingest("request id=4 ok"); err != nil || ev != nil {
		t.Errorf("expected a learned shape to detect cleanly, got ev=%+v err=%v", ev, err)
	}

	ev, err := d.Ingest("request id=4 failed")
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if ev == nil {
		t.Fatal("expected an anomaly event for an unlearned shape")
	}
	if ev.DetectorName != "web" {
		t.Errorf("DetectorName = %q, want %q", ev.DetectorName, "web")
	}
	if len(ev.Description) == 0 {
		t.Error("expected a non-empty description for a mismatched line")
	}
}

func TestDetectorIngestBatch(t *testing.T) {
	d := New("batch", ModeDetect, config.DefaultTuningConfig())
	if err := d.Learn([]string{"ping", "pong"}); err != nil {
		t.Fatalf("Learn: %v", err)
	}

	events, err := d.IngestBatch([]string{"ping", "pong", "crash"})
	if err != nil {
		t.Fatalf("IngestBatch: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Line != "crash" {
		t.Errorf("event line = %q, want %q", events[0].Line, "crash")
	}
}

func TestDetectorRegistersExtraCalendarWords(t *testing.T) {
	tuning := config.DefaultTuningConfig()
	tuning.ExtraCalendarWeekdays = []string{"onsdag"}
	d := New("calendar", ModeTraining, tuning)
	if err := d.Learn([]string{"job ran on onsdag"}); err != nil {
		t.Fatalf("Learn: %v", err)
	}
}
