package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sam-mfb/graft/pkg/archive"
	"github.com/sam-mfb/graft/pkg/builder"
	"github.com/sam-mfb/graft/pkg/compression"
	"github.com/sam-mfb/graft/pkg/engine"
	"github.com/sam-mfb/graft/pkg/hash"
	"github.com/sam-mfb/graft/pkg/manifest"
)

// Command is one CLI subcommand.
type Command interface {
	Name() string
	Description() string
	Usage() string
	SetFlags(fs *flag.FlagSet)
	Execute(args []string) error
}

// CommandRegistry holds every registered Command, looked up by name.
type CommandRegistry struct {
	app      *App
	commands map[string]Command
	order    []string
}

func NewCommandRegistry(app *App) *CommandRegistry {
	return &CommandRegistry{app: app, commands: make(map[string]Command)}
}

func (r *CommandRegistry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
	r.order = append(r.order, cmd.Name())
}

func (r *CommandRegistry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

func (r *CommandRegistry) List() []Command {
	cmds := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		cmds = append(cmds, r.commands[name])
	}
	return cmds
}

// --- create ---

type createCommand struct {
	app        *App
	level      int
	compress   string
	archiveOut string
}

func NewCreateCommand(app *App) Command {
	return &createCommand{app: app}
}

func (c *createCommand) Name() string        { return "create" }
func (c *createCommand) Description() string { return "build a patch bundle from two directories" }
func (c *createCommand) Usage() string {
	return "graft create <orig_dir> <new_dir> <out_dir> [--level N] [--compress gzip|lz4|zstd|none] [--archive file]"
}

func (c *createCommand) SetFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.level, "level", c.app.config.CompressionLevel, "diff artifact compression effort hint")
	fs.StringVar(&c.compress, "compress", c.app.config.DefaultCompressor, "archive codec: gzip, lz4, zstd, none")
	fs.StringVar(&c.archiveOut, "archive", "", "also write a bundled, compressed archive to this path")
}

func (c *createCommand) Execute(args []string) error {
	if len(args) != 3 {
		return invalidArgumentf("create requires <orig_dir> <new_dir> <out_dir>")
	}
	origDir, newDir, outDir := args[0], args[1], args[2]

	result, err := builder.Build(origDir, newDir, outDir, c.level)
	if err != nil {
		return err
	}
	c.app.logger.Success("patched=%d added=%d deleted=%d -> %s", result.Patched, result.Added, result.Deleted, outDir)

	if c.archiveOut == "" {
		return nil
	}

	codec, err := compression.ParseCompressionType(c.compress)
	if err != nil {
		return invalidArgumentf("%v", err)
	}

	f, err := os.Create(c.archiveOut)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	defer f.Close()

	if err := archive.Bundle(f, outDir, codec, compression.Level(c.level)); err != nil {
		return fmt.Errorf("bundle archive: %w", err)
	}
	c.app.logger.Success("archived bundle (%s) -> %s", codec, c.archiveOut)
	return nil
}

// --- apply ---

type applyCommand struct {
	app *App
}

func NewApplyCommand(app *App) Command {
	return &applyCommand{app: app}
}

func (c *applyCommand) Name() string              { return "apply" }
func (c *applyCommand) Description() string       { return "apply a patch bundle to a target directory" }
func (c *applyCommand) Usage() string             { return "graft apply <target_dir> <patch_dir>" }
func (c *applyCommand) SetFlags(fs *flag.FlagSet) {}

func (c *applyCommand) Execute(args []string) error {
	if len(args) != 2 {
		return invalidArgumentf("apply requires <target_dir> <patch_dir>")
	}
	targetDir, patchDir := args[0], args[1]

	m, err := manifest.Load(filepath.Join(patchDir, "manifest.json"))
	if err != nil {
		return err
	}

	reporter := NewEngineReporter(c.app.logger, c.app.progress, len(m.Entries))
	defer reporter.Finish()

	if err := engine.Apply(targetDir, patchDir, reporter); err != nil {
		return err
	}
	c.app.logger.Success("applied %d entries to %s", len(m.Entries), targetDir)
	return nil
}

// --- rollback ---

type rollbackCommand struct {
	app   *App
	force bool
}

func NewRollbackCommand(app *App) Command {
	return &rollbackCommand{app: app}
}

func (c *rollbackCommand) Name() string        { return "rollback" }
func (c *rollbackCommand) Description() string { return "restore a target directory from its backup" }
func (c *rollbackCommand) Usage() string {
	return "graft rollback <target_dir> <manifest_path> [--force]"
}

func (c *rollbackCommand) SetFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "skip the post-apply state check")
}

func (c *rollbackCommand) Execute(args []string) error {
	if len(args) != 2 {
		return invalidArgumentf("rollback requires <target_dir> <manifest_path>")
	}
	targetDir, manifestPath := args[0], args[1]

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	reporter := NewEngineReporter(c.app.logger, c.app.progress, len(m.Entries))
	defer reporter.Finish()

	if err := engine.Rollback(targetDir, manifestPath, c.force, reporter); err != nil {
		return err
	}
	c.app.logger.Success("rolled back %d entries in %s", len(m.Entries), targetDir)
	return nil
}

// --- check ---

type checkCommand struct {
	app *App
}

func NewCheckCommand(app *App) Command {
	return &checkCommand{app: app}
}

func (c *checkCommand) Name() string              { return "check" }
func (c *checkCommand) Description() string       { return "compare a file's hash against an expected value" }
func (c *checkCommand) Usage() string             { return "graft check <expected_hex> <file_path>" }
func (c *checkCommand) SetFlags(fs *flag.FlagSet) {}

func (c *checkCommand) Execute(args []string) error {
	if len(args) != 2 {
		return invalidArgumentf("check requires <expected_hex> <file_path>")
	}
	expected, path := args[0], args[1]

	actual, err := hash.SumFile(path)
	if err != nil {
		return err
	}

	if hash.Equal(actual, expected) {
		fmt.Println("match")
		return nil
	}
	fmt.Printf("no match: %s\n", actual)
	return &checkMismatchError{expected: expected, actual: actual}
}

// checkMismatchError reports a hash mismatch as an error, so the command
// exits non-zero; ExitCode maps it to the generic status 1.
type checkMismatchError struct{ expected, actual string }

func (e *checkMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch: expected %s, got %s", e.expected, e.actual)
}

// --- info ---

type infoCommand struct {
	app *App
}

func NewInfoCommand(app *App) Command {
	return &infoCommand{app: app}
}

func (c *infoCommand) Name() string              { return "info" }
func (c *infoCommand) Description() string       { return "print a patch bundle's manifest summary" }
func (c *infoCommand) Usage() string             { return "graft info <patch_dir>" }
func (c *infoCommand) SetFlags(fs *flag.FlagSet) {}

func (c *infoCommand) Execute(args []string) error {
	if len(args) != 1 {
		return invalidArgumentf("info requires <patch_dir>")
	}
	patchDir := args[0]

	m, err := manifest.Load(filepath.Join(patchDir, "manifest.json"))
	if err != nil {
		return err
	}

	var patched, added, deleted int
	for _, e := range m.Entries {
		switch e.Operation {
		case manifest.KindPatch:
			patched++
		case manifest.KindAdd:
			added++
		case manifest.KindDelete:
			deleted++
		}
	}

	fmt.Printf("version: %d\n", m.Version)
	fmt.Printf("entries: %d (patch=%d add=%d delete=%d)\n", len(m.Entries), patched, added, deleted)
	return nil
}
