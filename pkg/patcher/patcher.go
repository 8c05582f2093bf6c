// Package patcher is the reusable shim an embedded-patcher binary links
// against: it loads a compressed archive blob (either embedded via
// //go:embed by the linking binary, or named by the GRAFT_PATCH_ARCHIVE
// environment variable at build-generation time), unpacks it into a
// scoped scratch directory, and invokes the engine against a target.
//
// This package never invokes the Go compiler itself; producing an actual
// embedding binary is a go:generate-style build step outside its scope.
package patcher

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sam-mfb/graft/pkg/archive"
	"github.com/sam-mfb/graft/pkg/engine"
)

// archiveEnvVar is the environment variable a build-generation helper reads
// to locate the archive blob to embed. The engine itself never consumes it.
const archiveEnvVar = "GRAFT_PATCH_ARCHIVE"

// LoadArchiveFromEnv reads the path named by GRAFT_PATCH_ARCHIVE and
// returns its bytes, for use by a go:generate-style helper that embeds the
// result via //go:embed in a generated source file. It is not called by
// this package's own runtime path.
func LoadArchiveFromEnv() ([]byte, error) {
	path := os.Getenv(archiveEnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s is not set", archiveEnvVar)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", archiveEnvVar, err)
	}
	return data, nil
}

// Run unpacks blob into a scratch directory (released on every exit path)
// and applies it against targetDir, forwarding progress to reporter.
func Run(blob []byte, targetDir string, reporter engine.Reporter) error {
	patchDir, cleanup, err := archive.Unbundle(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("unpack embedded archive: %w", err)
	}
	defer cleanup()

	return engine.Apply(targetDir, patchDir, reporter)
}
