package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// ErrRunInProgress is returned when a run for the same manifest is already active.
var ErrRunInProgress = errors.New("run already in progress")

// ExportedRunGuard is an exported alias so _test packages can test the guard.
type ExportedRunGuard = runGuard

// runGuard admits one run per manifest at a time. Manifests are identified
// by their cleaned absolute path, so "data/bronze/metadata.yaml" and
// "./data/../data/bronze/metadata.yaml" share a slot.
type runGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

func manifestKey(manifestPath string) string {
	if abs, err := filepath.Abs(manifestPath); err == nil {
		return abs
	}
	return filepath.Clean(manifestPath)
}

// Acquire claims manifestPath. The returned release must be called once the
// run ends; calling it again is a no-op.
func (g *runGuard) Acquire(manifestPath string) (release func(), err error) {
	key := manifestKey(manifestPath)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, manifestPath)
	}
	g.running[key] = struct{}{}
	g.wg.Add(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.running, key)
			g.mu.Unlock()
			g.wg.Done()
		})
	}, nil
}

// WaitAll blocks until every claimed manifest is released or ctx is done.
func (g *runGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
