package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sam-mfb/graft/pkg/hash"
	"github.com/sam-mfb/graft/pkg/manifest"
)

// Rollback restores targetDir to its pre-patch state using the persisted
// backup directory and the manifest at manifestPath. Unless force is true,
// it first confirms the target is in the expected post-apply state (so it
// refuses to rollback an already-rolled-back or externally modified
// target); backup integrity is always validated, regardless of force,
// since a corrupted backup must never overwrite a live target. Whenever
// Rollback returns an error, reporter first receives an ActionFailed event
// carrying that error.
func Rollback(targetDir, manifestPath string, force bool, reporter Reporter) (err error) {
	defer func() {
		if err != nil {
			report(reporter, Event{Phase: "error", Action: ActionFailed, Err: err})
		}
	}()

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	backupDir := filepath.Join(targetDir, BackupDirName)
	if info, err := os.Stat(backupDir); err != nil || !info.IsDir() {
		return &RollbackFailedError{Reason: "backup directory missing", Err: fmt.Errorf("%s", backupDir)}
	}

	if !force {
		if err := validatePostApplyState(targetDir, m); err != nil {
			return err
		}
	}

	if err := validateBackupIntegrity(backupDir, m); err != nil {
		return err
	}

	for _, e := range m.Entries {
		if err := rollbackEntry(targetDir, backupDir, e, reporter); err != nil {
			return &RollbackFailedError{Reason: fmt.Sprintf("restore %q", e.File), Err: err}
		}
	}

	return nil
}

// validatePostApplyState confirms every entry's target is in the state the
// forward apply would have left it in: Patch/Add targets hash to
// final_hash, Delete targets are absent. A mismatch means the target was
// never patched, already rolled back, or modified out from under us.
func validatePostApplyState(targetDir string, m *manifest.Manifest) error {
	for _, e := range m.Entries {
		path := filepath.Join(targetDir, e.File)

		switch e.Operation {
		case manifest.KindPatch, manifest.KindAdd:
			actual, err := hashIfExists(path)
			if err != nil {
				return &RollbackFailedError{Reason: fmt.Sprintf("%q: not in post-apply state", e.File), Err: err}
			}
			if actual != e.FinalHash {
				return &RollbackFailedError{Reason: fmt.Sprintf("%q: not in post-apply state", e.File), Err: fmt.Errorf("hash mismatch: expected %s, got %s", e.FinalHash, actual)}
			}

		case manifest.KindDelete:
			if exists(path) {
				return &RollbackFailedError{Reason: fmt.Sprintf("%q: expected absent, still present", e.File), Err: fmt.Errorf("post-apply state check failed")}
			}
		}
	}
	return nil
}

// validateBackupIntegrity confirms that every backup file the rollback will
// rely on still holds the exact pre-patch bytes. Patch entries always
// require a backup, since their target was required to exist at apply
// time. Delete entries only require one if the file existed pre-patch (an
// idempotent delete over an already-absent file leaves no backup); its
// absence here is not an error.
func validateBackupIntegrity(backupDir string, m *manifest.Manifest) error {
	for _, e := range m.Entries {
		if e.Operation != manifest.KindPatch && e.Operation != manifest.KindDelete {
			continue
		}

		backupPath := filepath.Join(backupDir, e.File)
		backupExists := exists(backupPath)

		if e.Operation == manifest.KindPatch && !backupExists {
			return &RollbackFailedError{Reason: fmt.Sprintf("%q: backup missing", e.File), Err: fmt.Errorf("expected backup at %s", backupPath)}
		}
		if !backupExists {
			continue
		}

		actual, err := hash.SumFile(backupPath)
		if err != nil {
			return &RollbackFailedError{Reason: fmt.Sprintf("%q: backup unreadable", e.File), Err: err}
		}
		if actual != e.OriginalHash {
			return &RollbackFailedError{Reason: fmt.Sprintf("%q: backup corrupted", e.File), Err: fmt.Errorf("hash mismatch: expected %s, got %s", e.OriginalHash, actual)}
		}
	}
	return nil
}
