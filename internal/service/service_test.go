package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"foodprice/internal/service"
)

// ─────────────────────────────────────────────────────────────
// RunGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunGuard_Acquire(t *testing.T) {
	var g service.ExportedRunGuard

	release, err := g.Acquire("data/bronze/metadata.yaml")
	if err != nil {
		t.Fatalf("expected first Acquire to succeed: %v", err)
	}
	if _, err := g.Acquire("data/bronze/metadata.yaml"); !errors.Is(err, service.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress for same manifest, got %v", err)
	}
	other, err := g.Acquire("data/other/metadata.yaml")
	if err != nil {
		t.Fatalf("expected Acquire for different manifest to succeed: %v", err)
	}
	release()
	other()

	release, err = g.Acquire("data/bronze/metadata.yaml")
	if err != nil {
		t.Fatalf("expected Acquire to succeed after release: %v", err)
	}
	release()
}

func TestRunGuard_SamePathDifferentSpelling(t *testing.T) {
	var g service.ExportedRunGuard
	dir := t.TempDir()

	release, err := g.Acquire(filepath.Join(dir, "bronze", "metadata.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	t.Chdir(dir)
	for _, p := range []string{"bronze/metadata.yaml", "./bronze/../bronze/metadata.yaml"} {
		if _, err := g.Acquire(p); !errors.Is(err, service.ErrRunInProgress) {
			t.Errorf("Acquire(%q): expected ErrRunInProgress, got %v", p, err)
		}
	}
}

func TestRunGuard_ReleaseTwice(t *testing.T) {
	var g service.ExportedRunGuard

	release, err := g.Acquire("m.yaml")
	if err != nil {
		t.Fatal(err)
	}
	release()
	release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	g.WaitAll(ctx)
	if ctx.Err() != nil {
		t.Fatal("WaitAll blocked after release")
	}
}

func TestRunGuard_WaitAll(t *testing.T) {
	var g service.ExportedRunGuard

	release, err := g.Acquire("m.yaml")
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		release()
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

func TestRunGuard_WaitAll_ContextCancel(t *testing.T) {
	var g service.ExportedRunGuard
	release, err := g.Acquire("stuck.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	g.WaitAll(ctx)
	if time.Since(start) > time.Second {
		t.Fatal("WaitAll did not honour context cancellation")
	}
}

func TestMockEmitter_RecordsEvents(t *testing.T) {
	emitter := &service.MockEmitter{}
	if len(emitter.Events()) != 0 {
		t.Fatalf("expected 0 initial events, got %d", len(emitter.Events()))
	}
	emitter.Emit(context.Background(), service.EventRunFinished, "x")
	events := emitter.Events()
	if len(events) != 1 || events[0].Event != service.EventRunFinished || events[0].Data != "x" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
