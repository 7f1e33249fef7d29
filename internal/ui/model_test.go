package ui

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"promptreel/internal/progress"
)

func TestWorkersStartEachJobOnce(t *testing.T) {
	var starts [2]atomic.Int32
	jobs := []Job{
		{ID: "first", Run: func(context.Context, progress.Reporter) (string, error) {
			starts[0].Add(1)
			return "a.mp4", nil
		}},
		{ID: "second", Run: func(context.Context, progress.Reporter) (string, error) {
			starts[1].Add(1)
			return "b.mp4", nil
		}},
	}
	m := NewModel(context.Background(), jobs, Options{Workers: 1})

	_ = m.startNextWorkersCmd()()
	if !m.jobs["first"].started {
		t.Fatal("first job not started")
	}
	if m.jobs["second"].started {
		t.Fatal("second job started ahead of its worker slot")
	}
	// Re-running the scheduler while the worker is busy must not start
	// anything else.
	_ = m.startNextWorkersCmd()()
	if m.jobs["second"].started {
		t.Fatal("second job started while the single worker was busy")
	}

	next, _ := m.Update(jobResultMsg{R: progress.Result{JobID: "first", OutputPath: "a.mp4"}})
	m = next.(Model)
	_ = m.startNextWorkersCmd()()
	if !m.jobs["second"].started {
		t.Fatal("second job not started after the first finished")
	}

	next, _ = m.Update(jobResultMsg{R: progress.Result{JobID: "second", OutputPath: "b.mp4"}})
	m = next.(Model)
	if msg := m.startNextWorkersCmd()(); msg == nil {
		t.Fatal("scheduler did not signal completion with all jobs done")
	}

	waitFor(t, func() bool {
		return starts[0].Load() == 1 && starts[1].Load() == 1
	})
	// A settled scheduler must not have relaunched anything.
	time.Sleep(20 * time.Millisecond)
	if starts[0].Load() != 1 || starts[1].Load() != 1 {
		t.Fatalf("job runs: %d/%d, want 1/1", starts[0].Load(), starts[1].Load())
	}
}

func TestJobResultIsAppliedOnce(t *testing.T) {
	m := NewModel(context.Background(), []Job{{ID: "only", Run: nil}}, Options{})
	m.jobs["only"].started = true

	next, _ := m.Update(jobResultMsg{R: progress.Result{JobID: "only", OutputPath: "out.mp4", Bytes: 42}})
	m = next.(Model)
	if !m.jobs["only"].done || m.jobs["only"].outputPath != "out.mp4" {
		t.Fatalf("result not applied: %+v", m.jobs["only"])
	}

	// A duplicate result (the runner's safety net after the builder
	// already reported) must not overwrite the recorded outcome.
	next, _ = m.Update(jobResultMsg{R: progress.Result{JobID: "only", Err: context.Canceled}})
	m = next.(Model)
	if m.jobs["only"].err != nil || m.jobs["only"].outputPath != "out.mp4" {
		t.Fatalf("duplicate result overwrote the outcome: %+v", m.jobs["only"])
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
