package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/tapesched/pkg/schedule"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("x") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("x") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("x") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestStage(t *testing.T) {
	var buf bytes.Buffer
	st := newStage(newLogger(&buf, log.InfoLevel))

	time.Sleep(10 * time.Millisecond)
	st.done("Loaded 3 requests")

	if !strings.Contains(buf.String(), "Loaded 3 requests (") {
		t.Errorf("stage.done() output = %q", buf.String())
	}
}

func TestLoggerContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext should fall back to log.Default()")
	}

	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)
	if got := loggerFromContext(withLogger(context.Background(), custom)); got != custom {
		t.Error("loggerFromContext should return the attached logger")
	}
}

func TestSearchLogger(t *testing.T) {
	var buf bytes.Buffer
	s := newSearchLogger(newLogger(&buf, log.DebugLevel), "annealing", 0)

	s.onProgress(schedule.Progress{Iteration: 3, BestCost: 900})
	s.onProgress(schedule.Progress{Iteration: 8, BestCost: 700})
	s.onProgress(schedule.Progress{Iteration: 100, BestCost: 700, Done: true})
	s.done(1000, 700)

	out := buf.String()
	for _, want := range []string{
		"first improvement at iteration 3, cost 900",
		"improved to 700",
		"stopped after 100 iterations",
		"Refined: cost 1000 → 700 (2 improvements)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("search log missing %q in:\n%s", want, out)
		}
	}
}

func TestSearchLoggerNoImprovement(t *testing.T) {
	var buf bytes.Buffer
	s := newSearchLogger(newLogger(&buf, log.InfoLevel), "tabu", time.Second)
	s.onProgress(schedule.Progress{Iteration: 10, BestCost: 500, Done: true})
	s.done(500, 500)

	out := buf.String()
	if !strings.Contains(out, "Greedy schedule kept: cost 500") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "--time-limit") {
		t.Errorf("expected a time limit hint in %q", out)
	}
}

func TestSearchLoggerHeartbeat(t *testing.T) {
	var buf bytes.Buffer
	s := newSearchLogger(newLogger(&buf, log.InfoLevel), "annealing", 0)

	s.onProgress(schedule.Progress{Iteration: 1, BestCost: 900})
	if strings.Contains(buf.String(), "Searching...") {
		t.Fatalf("heartbeat logged before it was due: %q", buf.String())
	}

	s.every = 0
	s.onProgress(schedule.Progress{Iteration: 2, BestCost: 900})
	if !strings.Contains(buf.String(), "Searching... 0s elapsed, best cost 900") {
		t.Errorf("heartbeat missing from %q", buf.String())
	}
}
