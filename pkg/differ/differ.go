// Package differ implements the directory differ: comparing two flat
// directories of regular files and categorizing every name into a Patch,
// Add, or Delete change relative to the manifest's tagged-operation model.
// Per-file hashing is the expensive step, so the intersection of names is
// hashed across a bounded worker pool via golang.org/x/sync/errgroup.
package differ

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/sam-mfb/graft/pkg/hash"
	"github.com/sam-mfb/graft/pkg/manifest"
)

// Change is the differ's internal, not-yet-diffed representation of one
// file's fate between orig_dir and new_dir. Unlike manifest.Entry it never
// carries a diff_hash, because no diff artifact has been produced yet.
type Change struct {
	File         string
	Kind         manifest.Kind
	OriginalHash string
	FinalHash    string
}

// maxWorkers bounds the concurrent hash-and-compare fan-out.
func maxWorkers() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}

// Categorize compares origDir and newDir, both expected to contain only
// regular files (no subdirectories, no symlinks followed), and returns an
// ordered list of changes sorted by file name for determinism.
func Categorize(origDir, newDir string) ([]Change, error) {
	origFiles, err := listRegularFiles(origDir)
	if err != nil {
		return nil, err
	}
	newFiles, err := listRegularFiles(newDir)
	if err != nil {
		return nil, err
	}

	var common, onlyOld, onlyNew []string
	for name := range origFiles {
		if newFiles[name] {
			common = append(common, name)
		} else {
			onlyOld = append(onlyOld, name)
		}
	}
	for name := range newFiles {
		if !origFiles[name] {
			onlyNew = append(onlyNew, name)
		}
	}

	patchChanges, err := diffCommonFiles(origDir, newDir, common)
	if err != nil {
		return nil, err
	}

	changes := make([]Change, 0, len(patchChanges)+len(onlyOld)+len(onlyNew))
	changes = append(changes, patchChanges...)

	for _, name := range onlyNew {
		finalHash, err := hash.SumFile(filepath.Join(newDir, name))
		if err != nil {
			return nil, err
		}
		changes = append(changes, Change{File: name, Kind: manifest.KindAdd, FinalHash: finalHash})
	}

	for _, name := range onlyOld {
		originalHash, err := hash.SumFile(filepath.Join(origDir, name))
		if err != nil {
			return nil, err
		}
		changes = append(changes, Change{File: name, Kind: manifest.KindDelete, OriginalHash: originalHash})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].File < changes[j].File })
	return changes, nil
}

// diffCommonFiles hashes both sides of every name present in both
// directories, across a bounded pool of goroutines, and returns a Patch
// change for every pair whose hashes differ. Names with equal content are
// silently dropped.
func diffCommonFiles(origDir, newDir string, names []string) ([]Change, error) {
	results := make([]*Change, len(names))

	g := new(errgroup.Group)
	g.SetLimit(maxWorkers())

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			originalHash, err := hash.SumFile(filepath.Join(origDir, name))
			if err != nil {
				return err
			}
			finalHash, err := hash.SumFile(filepath.Join(newDir, name))
			if err != nil {
				return err
			}
			if originalHash == finalHash {
				return nil
			}
			results[i] = &Change{
				File:         name,
				Kind:         manifest.KindPatch,
				OriginalHash: originalHash,
				FinalHash:    finalHash,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	changes := make([]Change, 0, len(names))
	for _, c := range results {
		if c != nil {
			changes = append(changes, *c)
		}
	}
	return changes, nil
}

// listRegularFiles returns the set of leaf names of regular files directly
// inside dir. Subdirectories and symlinks are skipped, matching the flat
// namespace the engine operates over.
func listRegularFiles(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		if entry.IsDir() {
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		files[entry.Name()] = true
	}
	return files, nil
}
