package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sam-mfb/graft/pkg/builder"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func setupPatch(t *testing.T) (patchDir string, targetDir string) {
	t.Helper()
	origDir := t.TempDir()
	newDir := t.TempDir()
	targetDir = t.TempDir()
	patchDir = filepath.Join(t.TempDir(), "patch")

	writeFile(t, filepath.Join(origDir, "modified.bin"), "original")
	writeFile(t, filepath.Join(origDir, "deleted.bin"), "to delete")
	writeFile(t, filepath.Join(newDir, "modified.bin"), "modified")
	writeFile(t, filepath.Join(newDir, "added.bin"), "new file")

	writeFile(t, filepath.Join(targetDir, "modified.bin"), "original")
	writeFile(t, filepath.Join(targetDir, "deleted.bin"), "to delete")

	if _, err := builder.Build(origDir, newDir, patchDir, 6); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return patchDir, targetDir
}

// S1 — Mixed create+apply.
func TestApplyMixedChanges(t *testing.T) {
	patchDir, targetDir := setupPatch(t)

	if err := Apply(targetDir, patchDir, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if got := readFile(t, filepath.Join(targetDir, "modified.bin")); got != "modified" {
		t.Fatalf("modified.bin = %q, want %q", got, "modified")
	}
	if got := readFile(t, filepath.Join(targetDir, "added.bin")); got != "new file" {
		t.Fatalf("added.bin = %q, want %q", got, "new file")
	}
	if _, err := os.Stat(filepath.Join(targetDir, "deleted.bin")); !os.IsNotExist(err) {
		t.Fatal("deleted.bin should be absent")
	}

	backupDir := filepath.Join(targetDir, BackupDirName)
	if got := readFile(t, filepath.Join(backupDir, "modified.bin")); got != "original" {
		t.Fatalf("backup modified.bin = %q, want %q", got, "original")
	}
	if got := readFile(t, filepath.Join(backupDir, "deleted.bin")); got != "to delete" {
		t.Fatalf("backup deleted.bin = %q, want %q", got, "to delete")
	}
}

// S2 — Rollback on apply failure: a corrupted diff artifact for one entry
// must not leave any entry (including ones applied earlier in manifest
// order) mutated.
func TestApplyRollsBackOnCorruptedArtifact(t *testing.T) {
	origDir := t.TempDir()
	newDir := t.TempDir()
	targetDir := t.TempDir()
	patchDir := filepath.Join(t.TempDir(), "patch")

	writeFile(t, filepath.Join(origDir, "a.bin"), "original a")
	writeFile(t, filepath.Join(origDir, "b.bin"), "original b")
	writeFile(t, filepath.Join(newDir, "a.bin"), "modified a")
	writeFile(t, filepath.Join(newDir, "b.bin"), "modified b")
	writeFile(t, filepath.Join(targetDir, "a.bin"), "original a")
	writeFile(t, filepath.Join(targetDir, "b.bin"), "original b")

	if _, err := builder.Build(origDir, newDir, patchDir, 6); err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := os.WriteFile(filepath.Join(patchDir, "diffs", "b.bin.diff"), []byte{0xFF, 0xEE, 0xDD}, 0o644); err != nil {
		t.Fatal(err)
	}

	err := Apply(targetDir, patchDir, nil)
	if err == nil {
		t.Fatal("expected error from corrupted artifact")
	}

	if got := readFile(t, filepath.Join(targetDir, "a.bin")); got != "original a" {
		t.Fatalf("a.bin not rolled back: got %q", got)
	}
	if got := readFile(t, filepath.Join(targetDir, "b.bin")); got != "original b" {
		t.Fatalf("b.bin should be untouched: got %q", got)
	}
}

// S3 — Hash-mismatch validation: no mutation occurs.
func TestApplyValidationFailureNoMutation(t *testing.T) {
	origDir := t.TempDir()
	newDir := t.TempDir()
	targetDir := t.TempDir()
	patchDir := filepath.Join(t.TempDir(), "patch")

	writeFile(t, filepath.Join(origDir, "a.bin"), "original")
	writeFile(t, filepath.Join(newDir, "a.bin"), "modified")
	writeFile(t, filepath.Join(targetDir, "a.bin"), "different")

	if _, err := builder.Build(origDir, newDir, patchDir, 6); err != nil {
		t.Fatal(err)
	}

	err := Apply(targetDir, patchDir, nil)
	if err == nil {
		t.Fatal("expected ValidationFailedError")
	}
	vErr, ok := err.(*ValidationFailedError)
	if !ok {
		t.Fatalf("expected *ValidationFailedError, got %T: %v", err, err)
	}
	if vErr.File != "a.bin" {
		t.Fatalf("unexpected file: %s", vErr.File)
	}

	if got := readFile(t, filepath.Join(targetDir, "a.bin")); got != "different" {
		t.Fatalf("target was mutated: %q", got)
	}
	if _, err := os.Stat(filepath.Join(targetDir, BackupDirName)); !os.IsNotExist(err) {
		t.Fatal("backup dir should not have been created")
	}
}

// S4 — Already-deleted file: idempotent, no backup file created for it.
func TestApplyIdempotentDelete(t *testing.T) {
	origDir := t.TempDir()
	newDir := t.TempDir()
	targetDir := t.TempDir()
	patchDir := filepath.Join(t.TempDir(), "patch")

	writeFile(t, filepath.Join(origDir, "gone.bin"), "content")
	if err := os.MkdirAll(newDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := builder.Build(origDir, newDir, patchDir, 6); err != nil {
		t.Fatal(err)
	}

	if err := Apply(targetDir, patchDir, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, err := os.Stat(filepath.Join(targetDir, BackupDirName, "gone.bin")); !os.IsNotExist(err) {
		t.Fatal("no backup file should exist for an already-absent delete target")
	}
}

// S5 — Rollback round-trip.
func TestRollbackRestoresOriginalState(t *testing.T) {
	patchDir, targetDir := setupPatch(t)

	if err := Apply(targetDir, patchDir, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if err := Rollback(targetDir, filepath.Join(patchDir, "manifest.json"), false, nil); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	if got := readFile(t, filepath.Join(targetDir, "modified.bin")); got != "original" {
		t.Fatalf("modified.bin = %q, want %q", got, "original")
	}
	if got := readFile(t, filepath.Join(targetDir, "deleted.bin")); got != "to delete" {
		t.Fatalf("deleted.bin = %q, want %q", got, "to delete")
	}
	if _, err := os.Stat(filepath.Join(targetDir, "added.bin")); !os.IsNotExist(err) {
		t.Fatal("added.bin should be removed by rollback")
	}
}

// S6 — Force flag ignores post-state.
func TestRollbackForceIgnoresPostState(t *testing.T) {
	patchDir, targetDir := setupPatch(t)

	if err := Apply(targetDir, patchDir, nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// externally mutate the patched file
	writeFile(t, filepath.Join(targetDir, "modified.bin"), "externally mutated")

	manifestPath := filepath.Join(patchDir, "manifest.json")
	if err := Rollback(targetDir, manifestPath, false, nil); err == nil {
		t.Fatal("expected rollback without force to fail on externally mutated file")
	}

	if err := Rollback(targetDir, manifestPath, true, nil); err != nil {
		t.Fatalf("forced Rollback: %v", err)
	}
	if got := readFile(t, filepath.Join(targetDir, "modified.bin")); got != "original" {
		t.Fatalf("modified.bin = %q, want %q", got, "original")
	}
}

func TestRollbackWithoutBackupDirFails(t *testing.T) {
	patchDir, targetDir := setupPatch(t)
	err := Rollback(targetDir, filepath.Join(patchDir, "manifest.json"), false, nil)
	if err == nil {
		t.Fatal("expected RollbackFailedError when backup directory is missing")
	}
	if _, ok := err.(*RollbackFailedError); !ok {
		t.Fatalf("expected *RollbackFailedError, got %T", err)
	}
}

func TestApplyAddAlreadyExistsFails(t *testing.T) {
	origDir := t.TempDir()
	newDir := t.TempDir()
	targetDir := t.TempDir()
	patchDir := filepath.Join(t.TempDir(), "patch")

	writeFile(t, filepath.Join(newDir, "added.bin"), "new file")
	writeFile(t, filepath.Join(targetDir, "added.bin"), "already here")

	if _, err := builder.Build(origDir, newDir, patchDir, 6); err != nil {
		t.Fatal(err)
	}

	err := Apply(targetDir, patchDir, nil)
	if err == nil {
		t.Fatal("expected ValidationFailedError for pre-existing Add target")
	}
	if _, ok := err.(*ValidationFailedError); !ok {
		t.Fatalf("expected *ValidationFailedError, got %T", err)
	}
}
