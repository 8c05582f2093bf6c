package differ

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sam-mfb/graft/pkg/hash"
	"github.com/sam-mfb/graft/pkg/manifest"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCategorizeMixedChanges(t *testing.T) {
	origDir := t.TempDir()
	newDir := t.TempDir()

	writeFiles(t, origDir, map[string]string{
		"modified.bin": "original",
		"deleted.bin":  "to delete",
		"same.bin":     "unchanged",
	})
	writeFiles(t, newDir, map[string]string{
		"modified.bin": "modified",
		"added.bin":    "new file",
		"same.bin":     "unchanged",
	})

	changes, err := Categorize(origDir, newDir)
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}

	if len(changes) != 3 {
		t.Fatalf("expected 3 changes, got %d: %+v", len(changes), changes)
	}

	byFile := make(map[string]Change, len(changes))
	for _, c := range changes {
		byFile[c.File] = c
	}

	if _, ok := byFile["same.bin"]; ok {
		t.Fatal("unchanged file must not appear in changes")
	}

	mod, ok := byFile["modified.bin"]
	if !ok || mod.Kind != manifest.KindPatch {
		t.Fatalf("modified.bin: got %+v, want Patch", mod)
	}
	wantOriginal := hash.Sum([]byte("original"))
	wantFinal := hash.Sum([]byte("modified"))
	if mod.OriginalHash != wantOriginal || mod.FinalHash != wantFinal {
		t.Fatalf("modified.bin hashes = %+v", mod)
	}

	add, ok := byFile["added.bin"]
	if !ok || add.Kind != manifest.KindAdd || add.FinalHash != hash.Sum([]byte("new file")) {
		t.Fatalf("added.bin: got %+v", add)
	}

	del, ok := byFile["deleted.bin"]
	if !ok || del.Kind != manifest.KindDelete || del.OriginalHash != hash.Sum([]byte("to delete")) {
		t.Fatalf("deleted.bin: got %+v", del)
	}
}

func TestCategorizeDeterministicOrder(t *testing.T) {
	origDir := t.TempDir()
	newDir := t.TempDir()
	writeFiles(t, newDir, map[string]string{"c.bin": "c", "a.bin": "a", "b.bin": "b"})

	first, err := Categorize(origDir, newDir)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Categorize(origDir, newDir)
	if err != nil {
		t.Fatal(err)
	}

	wantOrder := []string{"a.bin", "b.bin", "c.bin"}
	for i, c := range first {
		if c.File != wantOrder[i] {
			t.Fatalf("first run order[%d] = %s, want %s", i, c.File, wantOrder[i])
		}
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("non-deterministic output at index %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestCategorizeEmptyOrigAllAdd(t *testing.T) {
	origDir := t.TempDir()
	newDir := t.TempDir()
	writeFiles(t, newDir, map[string]string{"x.bin": "x", "y.bin": "y"})

	changes, err := Categorize(origDir, newDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 Add changes, got %d", len(changes))
	}
	for _, c := range changes {
		if c.Kind != manifest.KindAdd {
			t.Fatalf("expected Add, got %+v", c)
		}
	}
}

func TestCategorizeEmptyNewAllDelete(t *testing.T) {
	origDir := t.TempDir()
	newDir := t.TempDir()
	writeFiles(t, origDir, map[string]string{"x.bin": "x", "y.bin": "y"})

	changes, err := Categorize(origDir, newDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 Delete changes, got %d", len(changes))
	}
	for _, c := range changes {
		if c.Kind != manifest.KindDelete {
			t.Fatalf("expected Delete, got %+v", c)
		}
	}
}

func TestCategorizeIdenticalDirsEmpty(t *testing.T) {
	origDir := t.TempDir()
	newDir := t.TempDir()
	writeFiles(t, origDir, map[string]string{"same.bin": "identical"})
	writeFiles(t, newDir, map[string]string{"same.bin": "identical"})

	changes, err := Categorize(origDir, newDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected no changes, got %+v", changes)
	}
}

func TestCategorizeIgnoresSubdirectories(t *testing.T) {
	origDir := t.TempDir()
	newDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(newDir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFiles(t, newDir, map[string]string{"top.bin": "top"})

	changes, err := Categorize(origDir, newDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 || changes[0].File != "top.bin" {
		t.Fatalf("expected only top.bin, got %+v", changes)
	}
}
