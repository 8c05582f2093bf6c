package cli

import (
	"github.com/sam-mfb/graft/pkg/engine"
)

// engineReporter adapts engine.Event notifications onto a Logger and a
// ProgressManager task, so the same progress/logging machinery used for
// other long-running operations drives the patch engine's phase-by-phase
// reporting.
type engineReporter struct {
	logger   *Logger
	task     ProgressReporter
	lastFile string
}

// NewEngineReporter returns an engine.Reporter that logs each phase
// transition and per-entry action, driving a progress task sized to
// entryCount file-level events.
func NewEngineReporter(logger *Logger, progress *ProgressManager, entryCount int) *engineReporter {
	return &engineReporter{
		logger: logger,
		task:   progress.NewTask("apply", int64(entryCount)),
	}
}

func (r *engineReporter) Report(e engine.Event) {
	if e.File == "" {
		r.logger.Info("phase: %s", e.Phase)
		return
	}

	if e.File != r.lastFile {
		r.lastFile = e.File
		r.task.Increment(1)
	}
	r.task.SetMessage(e.File)
	r.logger.Debug("%s %s: %s", e.Phase, e.Action, e.File)
}

// Finish completes the underlying progress task. Call after Apply/Rollback
// returns, success or failure.
func (r *engineReporter) Finish() {
	r.task.Finish()
}
