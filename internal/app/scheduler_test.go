package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/raysh454/trygglink/internal/store"
	"github.com/raysh454/trygglink/internal/testutil"
)

func TestNewScheduler_RegistersConfiguredJobs(t *testing.T) {
	t.Parallel()
	jobs := NewJobs(JobsConfig{}, store.NewMemoryStore(), nil, nil, &testutil.DummyLogger{})

	s, err := NewScheduler(context.Background(), JobsConfig{DeepScanSchedule: "@every 30s", PurgeSchedule: "@daily"}, jobs, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s.Entries() != 2 {
		t.Errorf("entries = %d, want 2", s.Entries())
	}

	s, err = NewScheduler(context.Background(), JobsConfig{}, jobs, &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if s.Entries() != 0 {
		t.Errorf("empty schedules should disable jobs, entries = %d", s.Entries())
	}
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	t.Parallel()
	jobs := NewJobs(JobsConfig{}, store.NewMemoryStore(), nil, nil, &testutil.DummyLogger{})

	if _, err := NewScheduler(context.Background(), JobsConfig{DeepScanSchedule: "every now and then"}, jobs, &testutil.DummyLogger{}); err == nil {
		t.Error("expected error for invalid deep scan schedule")
	}
	if _, err := NewScheduler(context.Background(), JobsConfig{PurgeSchedule: "@sometimes"}, jobs, &testutil.DummyLogger{}); err == nil {
		t.Error("expected error for invalid purge schedule")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	t.Parallel()
	jobs := NewJobs(JobsConfig{}, store.NewMemoryStore(), nil, nil, &testutil.DummyLogger{})
	s, err := NewScheduler(context.Background(), JobsConfig{DeepScanSchedule: "@every 1h"}, jobs, &testutil.DummyLogger{})
	if err != nil {
		t.Fatal(err)
	}

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop: %v", err)
	}
}

func TestCronLogger_Fields(t *testing.T) {
	t.Parallel()
	logger := &testutil.DummyLogger{}
	cl := cronLogger{logger}

	cl.Info("schedule", "entry", 1, "dangling")
	cl.Error(errors.New("boom"), "panic")

	if len(logger.Debugs) != 1 || logger.Debugs[0] != "cron: schedule" {
		t.Errorf("debugs = %v", logger.Debugs)
	}
	if len(logger.Errors) != 1 || logger.Errors[0] != "cron: panic" {
		t.Errorf("errors = %v", logger.Errors)
	}
	if got := kvFields([]interface{}{"a", 1, "b"}); len(got) != 1 || got[0].Key != "a" {
		t.Errorf("kvFields = %+v", got)
	}
}
