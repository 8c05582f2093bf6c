// Package manifest is the typed, serializable description of a patch: a
// version tag plus an ordered list of per-file operations, each one of
// Patch, Add, or Delete. Serialization is JSON, matching the on-disk
// compatibility surface documented for the bundle format; fields that do
// not apply to a given operation's kind are omitted from the JSON, never
// emitted as null.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Kind discriminates the three operation variants.
type Kind string

const (
	KindPatch  Kind = "patch"
	KindAdd    Kind = "add"
	KindDelete Kind = "delete"
)

// CurrentVersion is the manifest schema version written by this package.
const CurrentVersion = 1

// Entry is one operation in a manifest. Only the hash fields relevant to
// Kind are populated; the rest are left as empty strings and omitted from
// JSON via the omitempty tag.
type Entry struct {
	File         string `json:"file"`
	Operation    Kind   `json:"operation"`
	OriginalHash string `json:"original_hash,omitempty"`
	DiffHash     string `json:"diff_hash,omitempty"`
	FinalHash    string `json:"final_hash,omitempty"`
}

// Manifest is the versioned, ordered set of operations that make up a patch.
type Manifest struct {
	Version int     `json:"version"`
	Entries []Entry `json:"entries"`
}

// New creates an empty manifest at the given schema version.
func New(version int) *Manifest {
	return &Manifest{Version: version, Entries: make([]Entry, 0)}
}

// Error reports a manifest that is missing, malformed, or internally
// inconsistent (a variant carrying the wrong set of hash fields, a
// duplicate file name, or an unsafe file name).
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("manifest error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("manifest error: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func newManifestError(reason string, err error) *Error {
	return &Error{Reason: reason, Err: err}
}

// Load reads and parses a manifest from path, validating every entry.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newManifestError("read "+path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, newManifestError("parse "+path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, newManifestError("validate "+path, err)
	}

	return &m, nil
}

// Save serializes the manifest as indented JSON to path.
func (m *Manifest) Save(path string) error {
	if err := m.Validate(); err != nil {
		return newManifestError("validate before save", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return newManifestError("marshal", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return newManifestError("write "+path, err)
	}
	return nil
}

// AddPatch appends a Patch entry.
func (m *Manifest) AddPatch(file, originalHash, diffHash, finalHash string) {
	m.Entries = append(m.Entries, Entry{
		File: file, Operation: KindPatch,
		OriginalHash: originalHash, DiffHash: diffHash, FinalHash: finalHash,
	})
}

// AddAdd appends an Add entry.
func (m *Manifest) AddAdd(file, finalHash string) {
	m.Entries = append(m.Entries, Entry{File: file, Operation: KindAdd, FinalHash: finalHash})
}

// AddDelete appends a Delete entry.
func (m *Manifest) AddDelete(file, originalHash string) {
	m.Entries = append(m.Entries, Entry{File: file, Operation: KindDelete, OriginalHash: originalHash})
}

// Sort orders entries by file name, byte-wise ascending, so a manifest's
// entry order is deterministic.
func (m *Manifest) Sort() {
	sort.Slice(m.Entries, func(i, j int) bool { return m.Entries[i].File < m.Entries[j].File })
}

// Validate checks the tagged-variant invariants and the flat-namespace
// safety rule: no two entries share a file name, each variant carries
// exactly the hash fields it should, and no file name contains a path
// separator or parent reference (an explicit hardening of the otherwise
// flagged-but-unguarded flat namespace).
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Entries))

	for _, e := range m.Entries {
		if e.File == "" {
			return fmt.Errorf("entry has empty file name")
		}
		if strings.ContainsAny(e.File, "/\\") || e.File == ".." || strings.Contains(e.File, "..") {
			return fmt.Errorf("entry %q: file name must be a flat leaf name", e.File)
		}
		if seen[e.File] {
			return fmt.Errorf("duplicate entry for file %q", e.File)
		}
		seen[e.File] = true

		switch e.Operation {
		case KindPatch:
			if e.OriginalHash == "" || e.DiffHash == "" || e.FinalHash == "" {
				return fmt.Errorf("entry %q: patch requires original_hash, diff_hash, and final_hash", e.File)
			}
			if e.OriginalHash == e.FinalHash {
				return fmt.Errorf("entry %q: patch original_hash must differ from final_hash", e.File)
			}
		case KindAdd:
			if e.FinalHash == "" {
				return fmt.Errorf("entry %q: add requires final_hash", e.File)
			}
			if e.OriginalHash != "" || e.DiffHash != "" {
				return fmt.Errorf("entry %q: add must not carry original_hash or diff_hash", e.File)
			}
		case KindDelete:
			if e.OriginalHash == "" {
				return fmt.Errorf("entry %q: delete requires original_hash", e.File)
			}
			if e.DiffHash != "" || e.FinalHash != "" {
				return fmt.Errorf("entry %q: delete must not carry diff_hash or final_hash", e.File)
			}
		default:
			return fmt.Errorf("entry %q: unknown operation %q", e.File, e.Operation)
		}
	}

	return nil
}
