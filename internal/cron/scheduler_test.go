package cron_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/parley-chat/parley/internal/cron"
)

type stubJob struct {
	name     string
	schedule string
	runs     int
	err      error
}

func (j *stubJob) Name() string                { return j.name }
func (j *stubJob) Schedule() string            { return j.schedule }
func (j *stubJob) Run(_ context.Context) error { j.runs++; return j.err }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestScheduler_AddJob_Duplicate(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(testLogger())
	if err := s.AddJob(&stubJob{name: "sweep", schedule: "0 * * * *"}); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := s.AddJob(&stubJob{name: "sweep", schedule: "0 * * * *"}); err == nil {
		t.Fatal("expected duplicate job name error")
	}
}

func TestScheduler_StartRejectsInvalidSchedule(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(testLogger())
	if err := s.AddJob(&stubJob{name: "bad", schedule: "not a schedule"}); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := s.Start(); err == nil {
		_ = s.Stop(context.Background())
		t.Fatal("expected Start to reject invalid schedule")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(testLogger())
	if err := s.AddJob(&stubJob{name: "sweep", schedule: "0 * * * *"}); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestScheduler_JobErrorDoesNotStopScheduler(t *testing.T) {
	t.Parallel()

	s := cron.NewScheduler(testLogger())
	if err := s.AddJob(&stubJob{name: "failing", schedule: "* * * * *", err: errors.New("boom")}); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// A failing job must not tear down the scheduler; Stop still works.
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
