// Package builder is the patch builder: given two directories, it runs the
// differ, materializes a diff artifact or raw copy for each change, and
// writes the resulting bundle (manifest.json plus diffs/ and additions/) to
// an output directory.
package builder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sam-mfb/graft/pkg/diff"
	"github.com/sam-mfb/graft/pkg/differ"
	"github.com/sam-mfb/graft/pkg/hash"
	"github.com/sam-mfb/graft/pkg/manifest"
)

const (
	diffsDirName     = "diffs"
	additionsDirName = "additions"
	manifestFileName = "manifest.json"
)

// Result summarizes a completed build, for callers that want to report a
// count without re-reading the manifest.
type Result struct {
	OutDir    string
	Manifest  *manifest.Manifest
	Patched   int
	Added     int
	Deleted   int
	Unchanged int
}

// Build compares origDir against newDir and writes a patch bundle to
// outDir: manifest.json, diffs/<file>.diff for every Patch entry, and
// additions/<file> for every Add entry. level is passed through to the
// diff primitive as an opaque compression-effort hint.
func Build(origDir, newDir, outDir string, level int) (*Result, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	diffsDir := filepath.Join(outDir, diffsDirName)
	additionsDir := filepath.Join(outDir, additionsDirName)
	if err := os.MkdirAll(diffsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create diffs dir: %w", err)
	}
	if err := os.MkdirAll(additionsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create additions dir: %w", err)
	}

	changes, err := differ.Categorize(origDir, newDir)
	if err != nil {
		return nil, fmt.Errorf("categorize: %w", err)
	}

	m := manifest.New(manifest.CurrentVersion)
	result := &Result{OutDir: outDir, Manifest: m}

	for _, change := range changes {
		switch change.Kind {
		case manifest.KindPatch:
			diffHash, err := writePatchArtifact(origDir, newDir, diffsDir, change.File, level)
			if err != nil {
				return nil, fmt.Errorf("build diff for %q: %w", change.File, err)
			}
			m.AddPatch(change.File, change.OriginalHash, diffHash, change.FinalHash)
			result.Patched++

		case manifest.KindAdd:
			if err := copyFile(filepath.Join(newDir, change.File), filepath.Join(additionsDir, change.File)); err != nil {
				return nil, fmt.Errorf("copy addition %q: %w", change.File, err)
			}
			m.AddAdd(change.File, change.FinalHash)
			result.Added++

		case manifest.KindDelete:
			m.AddDelete(change.File, change.OriginalHash)
			result.Deleted++

		default:
			return nil, fmt.Errorf("unknown change kind %q for %q", change.Kind, change.File)
		}
	}

	m.Sort()

	if err := m.Save(filepath.Join(outDir, manifestFileName)); err != nil {
		return nil, fmt.Errorf("save manifest: %w", err)
	}

	return result, nil
}

// writePatchArtifact produces the diff artifact for a single changed file,
// writes it to diffsDir, and returns its content hash for the manifest's
// diff_hash field.
func writePatchArtifact(origDir, newDir, diffsDir, file string, level int) (string, error) {
	oldBytes, closeOld, err := diff.ReadLarge(filepath.Join(origDir, file))
	if err != nil {
		return "", err
	}
	defer closeOld()

	newBytes, closeNew, err := diff.ReadLarge(filepath.Join(newDir, file))
	if err != nil {
		return "", err
	}
	defer closeNew()

	artifact, err := diff.MakeDiff(oldBytes, newBytes, level)
	if err != nil {
		return "", err
	}

	artifactPath := filepath.Join(diffsDir, file+".diff")
	if err := os.WriteFile(artifactPath, artifact, 0o644); err != nil {
		return "", err
	}

	return hash.Sum(artifact), nil
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
