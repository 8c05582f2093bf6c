// Package engine implements the patch engine's five-phase apply state
// machine (validate -> backup -> apply -> verify -> commit/rollback) and its
// inverse, rollback-from-backup. It is the correctness-critical core of the
// system: every mutation is hash-verified, and a failed Apply leaves the
// target directory byte-identical to its pre-call state (barring the one
// unsafe exit, RollbackFailedError).
package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sam-mfb/graft/pkg/diff"
	"github.com/sam-mfb/graft/pkg/fileops"
	"github.com/sam-mfb/graft/pkg/hash"
	"github.com/sam-mfb/graft/pkg/manifest"
)

// BackupDirName is the conventional leaf name of the backup directory the
// engine creates under the target directory.
const BackupDirName = ".patch-backup"

// Apply drives the manifest loaded from patchDir/manifest.json through the
// five phases against targetDir. On success, the backup directory is left
// in place so a later Rollback can undo the patch. On any phase-3 failure,
// every entry applied so far is rolled back from the backup before the
// original error is returned. Whenever Apply returns an error, reporter
// first receives an ActionFailed event carrying that error.
func Apply(targetDir, patchDir string, reporter Reporter) (err error) {
	defer func() {
		if err != nil {
			report(reporter, Event{Phase: "error", Action: ActionFailed, Err: err})
		}
	}()

	m, err := manifest.Load(filepath.Join(patchDir, "manifest.json"))
	if err != nil {
		return err
	}

	backupDir := filepath.Join(targetDir, BackupDirName)

	report(reporter, Event{Phase: "validate"})
	if err := validate(targetDir, m, reporter); err != nil {
		return err
	}

	report(reporter, Event{Phase: "backup"})
	if err := backup(targetDir, backupDir, m, reporter); err != nil {
		return err
	}

	report(reporter, Event{Phase: "apply"})
	if err := applyAndVerify(targetDir, patchDir, backupDir, m, reporter); err != nil {
		return err
	}

	report(reporter, Event{Phase: "commit"})
	return nil
}

// validate runs phase 1: every entry's precondition must hold before any
// mutation occurs.
func validate(targetDir string, m *manifest.Manifest, reporter Reporter) error {
	for _, e := range m.Entries {
		path := filepath.Join(targetDir, e.File)
		report(reporter, Event{Phase: "validate", File: e.File, Action: ActionValidating})

		switch e.Operation {
		case manifest.KindPatch:
			actual, err := hashIfExists(path)
			if err != nil {
				return &ValidationFailedError{File: e.File, Reason: fmt.Sprintf("target missing or unreadable: %v", err)}
			}
			if actual != e.OriginalHash {
				return &ValidationFailedError{File: e.File, Reason: fmt.Sprintf("hash mismatch: expected %s, got %s", e.OriginalHash, actual)}
			}

		case manifest.KindAdd:
			report(reporter, Event{Phase: "validate", File: e.File, Action: ActionCheckingNotExists})
			if exists(path) {
				return &ValidationFailedError{File: e.File, Reason: "target already exists"}
			}

		case manifest.KindDelete:
			if !exists(path) {
				continue // idempotent delete
			}
			actual, err := hash.SumFile(path)
			if err != nil {
				return &ValidationFailedError{File: e.File, Reason: fmt.Sprintf("unreadable: %v", err)}
			}
			if actual != e.OriginalHash {
				return &ValidationFailedError{File: e.File, Reason: fmt.Sprintf("hash mismatch: expected %s, got %s", e.OriginalHash, actual)}
			}

		default:
			return &ValidationFailedError{File: e.File, Reason: fmt.Sprintf("unknown operation %q", e.Operation)}
		}
	}
	return nil
}

// backup runs phase 2: snapshot every Patch/Delete target that currently
// exists into the backup directory, fully, before any apply step runs.
func backup(targetDir, backupDir string, m *manifest.Manifest, reporter Reporter) error {
	for _, e := range m.Entries {
		if e.Operation == manifest.KindAdd {
			continue
		}
		path := filepath.Join(targetDir, e.File)
		if !exists(path) {
			continue
		}
		report(reporter, Event{Phase: "backup", File: e.File, Action: ActionBackingUp})
		if err := fileops.BackupFile(path, backupDir); err != nil {
			return &BackupFailedError{File: e.File, Reason: "copy to backup directory", Err: err}
		}
	}
	return nil
}

// applyAndVerify runs phase 3: each entry's apply step followed immediately
// by its verify step, rolling back every previously applied entry and
// surfacing the original error on first failure.
func applyAndVerify(targetDir, patchDir, backupDir string, m *manifest.Manifest, reporter Reporter) error {
	applied := make([]manifest.Entry, 0, len(m.Entries))

	for _, e := range m.Entries {
		if err := applyEntry(targetDir, patchDir, e, reporter); err != nil {
			return failAndRollback(targetDir, backupDir, applied, err, reporter)
		}
		if err := verifyEntry(targetDir, e); err != nil {
			return failAndRollback(targetDir, backupDir, applied, err, reporter)
		}
		applied = append(applied, e)
	}
	return nil
}

func applyEntry(targetDir, patchDir string, e manifest.Entry, reporter Reporter) error {
	path := filepath.Join(targetDir, e.File)

	switch e.Operation {
	case manifest.KindPatch:
		report(reporter, Event{Phase: "apply", File: e.File, Action: ActionPatching})
		old, err := os.ReadFile(path)
		if err != nil {
			return &ApplyFailedError{File: e.File, Reason: "read target", Err: err}
		}
		artifact, err := os.ReadFile(filepath.Join(patchDir, "diffs", e.File+".diff"))
		if err != nil {
			return &ApplyFailedError{File: e.File, Reason: "read diff artifact", Err: err}
		}
		if e.DiffHash != "" && hash.Sum(artifact) != e.DiffHash {
			return &ApplyFailedError{File: e.File, Reason: "diff artifact hash mismatch", Err: fmt.Errorf("corrupted artifact")}
		}
		newBytes, err := diff.ApplyDiff(old, artifact)
		if err != nil {
			return &ApplyFailedError{File: e.File, Reason: "apply diff", Err: err}
		}
		if err := writeAtomic(path, newBytes); err != nil {
			return &ApplyFailedError{File: e.File, Reason: "write target", Err: err}
		}

	case manifest.KindAdd:
		report(reporter, Event{Phase: "apply", File: e.File, Action: ActionAdding})
		data, err := os.ReadFile(filepath.Join(patchDir, "additions", e.File))
		if err != nil {
			return &ApplyFailedError{File: e.File, Reason: "read addition", Err: err}
		}
		if err := writeAtomic(path, data); err != nil {
			return &ApplyFailedError{File: e.File, Reason: "write target", Err: err}
		}

	case manifest.KindDelete:
		report(reporter, Event{Phase: "apply", File: e.File, Action: ActionDeleting})
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return &ApplyFailedError{File: e.File, Reason: "remove target", Err: err}
		}
	}
	return nil
}

func verifyEntry(targetDir string, e manifest.Entry) error {
	path := filepath.Join(targetDir, e.File)

	switch e.Operation {
	case manifest.KindPatch, manifest.KindAdd:
		actual, err := hash.SumFile(path)
		if err != nil {
			return &VerificationFailedError{File: e.File, Expected: e.FinalHash, Actual: fmt.Sprintf("<unreadable: %v>", err)}
		}
		if actual != e.FinalHash {
			return &VerificationFailedError{File: e.File, Expected: e.FinalHash, Actual: actual}
		}

	case manifest.KindDelete:
		if exists(path) {
			return &VerificationFailedError{File: e.File, Expected: "<absent>", Actual: "<present>"}
		}
	}
	return nil
}

// failAndRollback executes the inverse of every entry in applied (in
// order) before surfacing cause, the error that ended the apply/verify
// loop. A failure during that rollback takes precedence, wrapping cause
// alongside it in a RollbackFailedError.
func failAndRollback(targetDir, backupDir string, applied []manifest.Entry, cause error, reporter Reporter) error {
	for _, e := range applied {
		if err := rollbackEntry(targetDir, backupDir, e, reporter); err != nil {
			return &RollbackFailedError{Reason: fmt.Sprintf("undo %q", e.File), Cause: cause, Err: err}
		}
	}
	return cause
}

// rollbackEntry executes the inverse transformation for one entry, as used
// both by phase 3's on-failure rollback and by the standalone Rollback
// inverse operation.
func rollbackEntry(targetDir, backupDir string, e manifest.Entry, reporter Reporter) error {
	path := filepath.Join(targetDir, e.File)

	switch e.Operation {
	case manifest.KindPatch:
		report(reporter, Event{Phase: "rollback", File: e.File, Action: ActionRestoring})
		return fileops.RestoreFile(path, backupDir)

	case manifest.KindDelete:
		backupPath := filepath.Join(backupDir, e.File)
		if !exists(backupPath) {
			return nil // file was already absent pre-patch
		}
		report(reporter, Event{Phase: "rollback", File: e.File, Action: ActionRestoring})
		return fileops.RestoreFile(path, backupDir)

	case manifest.KindAdd:
		report(reporter, Event{Phase: "rollback", File: e.File, Action: ActionRemoving})
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".graft-tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func hashIfExists(path string) (string, error) {
	if !exists(path) {
		return "", fmt.Errorf("does not exist")
	}
	return hash.SumFile(path)
}
