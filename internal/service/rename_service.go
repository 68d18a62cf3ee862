package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"foodprice/internal/domain"
	"foodprice/internal/manifest"
	"foodprice/internal/renamer"
)

// ─────────────────────────────────────────────────────────────
// RenameService: runs the renamer and owns its triggers
// ─────────────────────────────────────────────────────────────

// Trigger names recorded in run history.
const (
	TriggerManual   = "manual"
	TriggerWatch    = "watch"
	TriggerSchedule = "schedule"
	TriggerMCP      = "mcp"
)

// RunRequest describes one rename run.
type RunRequest struct {
	ManifestPath   string   `json:"manifestPath"`
	NewColumnNames []string `json:"newColumnNames"`
	TargetFolder   string   `json:"targetFolder"`
	Trigger        string   `json:"trigger,omitempty"`
}

// RenameService runs rename jobs, records their history and re-runs them
// on file changes or a cron schedule.
type RenameService struct {
	store   domain.RunLogStore // nil disables history
	emitter EventEmitter       // nil disables notifications
	log     *slog.Logger
	guard runGuard

	// Debounce is how long the watcher waits after the last change event
	// before starting a run.
	Debounce time.Duration

	mu          sync.Mutex
	watchCancel context.CancelFunc
	watchDone   chan struct{}
	watcher     *fsnotify.Watcher
	cronSched   *cron.Cron
}

// NewRenameService creates a RenameService. store and emitter may be nil.
func NewRenameService(store domain.RunLogStore, emitter EventEmitter, logger *slog.Logger) *RenameService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RenameService{
		store:    store,
		emitter:  emitter,
		log:      logger,
		Debounce: 500 * time.Millisecond,
	}
}

// ── Run ────────────────────────────────────────────────────

// Run executes one rename synchronously and records it in history.
func (s *RenameService) Run(ctx context.Context, req RunRequest) (*renamer.Result, error) {
	release, err := s.guard.Acquire(req.ManifestPath)
	if err != nil {
		return nil, err
	}
	defer release()

	r := renamer.New(renamer.Options{
		NewColumnNames: req.NewColumnNames,
		TargetFolder:   req.TargetFolder,
		Logger:         s.log,
	})

	start := time.Now()
	result, runErr := r.Run(ctx, req.ManifestPath)
	runLog := newRunLog(req, r.TargetFolder(), start, result, runErr)
	if s.store != nil {
		if err := s.store.CreateRunLog(runLog); err != nil {
			s.log.Error("history: failed to record run", "manifest", req.ManifestPath, "error", err)
		}
	}
	if s.emitter != nil {
		s.emitter.Emit(ctx, EventRunFinished, *runLog)
	}
	return result, runErr
}

func newRunLog(req RunRequest, target string, start time.Time, result *renamer.Result, runErr error) *domain.RunLog {
	trigger := req.Trigger
	if trigger == "" {
		trigger = TriggerManual
	}
	runLog := &domain.RunLog{
		ManifestPath: req.ManifestPath,
		TargetFolder: target,
		Trigger:      trigger,
		StartedAt:    start,
		FinishedAt:   time.Now(),
		Status:       domain.RunSuccess,
	}
	if result != nil {
		runLog.FilesWritten = len(result.Files)
		runLog.RowsWritten = result.RowsWritten()
	}
	if runErr != nil {
		runLog.Status = domain.RunError
		runLog.Error = runErr.Error()
	}
	return runLog
}

// runLogged is Run for background triggers: failures are logged, not returned.
func (s *RenameService) runLogged(ctx context.Context, req RunRequest, trigger string) {
	req.Trigger = trigger
	s.log.Info(trigger+": running", "manifest", req.ManifestPath)
	if _, err := s.Run(ctx, req); err != nil {
		s.log.Error(trigger+": run failed", "manifest", req.ManifestPath, "error", err)
	}
}

// History returns up to limit recorded runs, newest first. An empty
// manifestPath lists every manifest.
func (s *RenameService) History(manifestPath string, limit int) ([]domain.RunLog, error) {
	if s.store == nil {
		return nil, fmt.Errorf("run history is disabled")
	}
	return s.store.ListRunLogs(manifestPath, limit)
}

// ── Triggers (cron + file watch) ──────────────────────────

// Schedule runs req on the cron expression expr until Stop is called.
func (s *RenameService) Schedule(ctx context.Context, expr string, req RunRequest) error {
	c := cron.New()
	if _, err := c.AddFunc(expr, func() { s.runLogged(ctx, req, TriggerSchedule) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cronSched != nil {
		s.cronSched.Stop()
	}
	c.Start()
	s.cronSched = c
	s.log.Info("schedule: started", "expr", expr, "manifest", req.ManifestPath)
	return nil
}

// Watch re-runs req whenever the manifest or one of the raw files it lists
// is written or created. The watched set is refreshed after every run so
// files added to the manifest are picked up.
func (s *RenameService) Watch(ctx context.Context, req RunRequest) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	w := &watchSet{watcher: watcher, dirs: make(map[string]bool), log: s.log}
	if err := w.refresh(req.ManifestPath); err != nil {
		watcher.Close()
		return err
	}

	s.mu.Lock()
	s.stopWatcherLocked()
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.watcher = watcher
	s.watchCancel = cancel
	s.watchDone = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-watchCtx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if !w.matches(event.Name) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(s.Debounce)
				fire = timer.C
			case <-fire:
				fire = nil
				s.runLogged(watchCtx, req, TriggerWatch)
				if err := w.refresh(req.ManifestPath); err != nil {
					s.log.Error("watch: refresh failed", "error", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Error("watch: error", "error", err)
			}
		}
	}()

	s.log.Info("watch: started", "manifest", req.ManifestPath, "files", len(w.paths))
	return nil
}

// WaitRunning blocks until all running jobs finish or ctx is cancelled.
func (s *RenameService) WaitRunning(ctx context.Context) {
	s.guard.WaitAll(ctx)
}

// Stop tears down the watcher and scheduler. It is safe to call repeatedly.
func (s *RenameService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatcherLocked()
	if s.cronSched != nil {
		<-s.cronSched.Stop().Done()
		s.cronSched = nil
	}
}

func (s *RenameService) stopWatcherLocked() {
	if s.watchCancel != nil {
		s.watchCancel()
		<-s.watchDone
		s.watchCancel = nil
		s.watchDone = nil
	}
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
}

// watchSet tracks which files trigger a run. It is only touched from the
// watch goroutine after setup.
type watchSet struct {
	watcher *fsnotify.Watcher
	paths   map[string]bool
	dirs    map[string]bool
	log     *slog.Logger
}

func (w *watchSet) matches(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	return w.paths[abs]
}

// refresh recomputes the watched files from the manifest. An unreadable
// manifest still leaves the manifest itself watched so a fix triggers a run.
func (w *watchSet) refresh(manifestPath string) error {
	files := []string{manifestPath}
	if extra, err := manifestFiles(manifestPath); err != nil {
		w.log.Warn("watch: cannot list raw files", "manifest", manifestPath, "error", err)
	} else {
		files = append(files, extra...)
	}

	paths := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", f, err)
		}
		paths[abs] = true

		// Watching directories survives editors that replace files on save.
		dir := filepath.Dir(abs)
		if w.dirs[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			if f == manifestPath {
				return fmt.Errorf("watch dir %q: %w", dir, err)
			}
			w.log.Warn("watch: cannot watch dir", "dir", dir, "error", err)
			continue
		}
		w.dirs[dir] = true
	}
	w.paths = paths
	return nil
}

// manifestFiles lists the raw file paths referenced by the manifest.
func manifestFiles(manifestPath string) ([]string, error) {
	doc, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	entries, err := doc.Entries()
	if err != nil {
		return nil, err
	}
	sourceDir := manifest.SourceDir(manifestPath)
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		name, err := e.FileName()
		if err != nil {
			return nil, err
		}
		files = append(files, manifest.ResolveFile(sourceDir, name))
	}
	return files, nil
}
