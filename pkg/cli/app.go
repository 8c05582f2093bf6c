package cli

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// App is the CLI's top-level context: config, logger, progress manager, and
// the registry of subcommands, shared across a single invocation.
type App struct {
	name        string
	version     string
	description string
	config      *Config
	logger      *Logger
	progress    *ProgressManager
	registry    *CommandRegistry
}

// NewApp builds an App with default config and registers graft's commands.
func NewApp(name, version, description string) *App {
	app := &App{
		name:        name,
		version:     version,
		description: description,
	}

	app.config = LoadDefaultConfig()
	app.logger = NewLogger(app.config.LogLevel, app.config.LogFile)
	app.progress = NewProgressManager(!app.config.Quiet)
	app.registry = NewCommandRegistry(app)

	app.registerCommands()

	return app
}

func (app *App) registerCommands() {
	app.registry.Register(NewCreateCommand(app))
	app.registry.Register(NewApplyCommand(app))
	app.registry.Register(NewRollbackCommand(app))
	app.registry.Register(NewCheckCommand(app))
	app.registry.Register(NewInfoCommand(app))
}

// Run parses global flags, dispatches to the named subcommand, and returns
// its error (if any) for the caller to translate into an exit code.
func (app *App) Run(args []string) error {
	rest, err := app.parseGlobalFlags(args)
	if err != nil {
		return err
	}

	if len(rest) == 0 {
		return app.showHelp()
	}

	cmdName := rest[0]
	cmdArgs := rest[1:]

	switch cmdName {
	case "help", "-h", "--help":
		return app.showHelp()
	case "version", "-v", "--version":
		return app.showVersion()
	}

	cmd, exists := app.registry.Get(cmdName)
	if !exists {
		return invalidArgumentf("unknown command %q; run '%s help' for a list", cmdName, app.name)
	}

	fs := flag.NewFlagSet(cmdName, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s\n\n", cmd.Usage())
		fmt.Fprintf(os.Stderr, "%s\n\noptions:\n", cmd.Description())
		fs.PrintDefaults()
	}
	cmd.SetFlags(fs)

	if err := fs.Parse(cmdArgs); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return invalidArgumentf("%v", err)
	}

	app.logger.Debug("running command: %s", cmdName)
	start := time.Now()

	err = cmd.Execute(fs.Args())

	elapsed := time.Since(start)
	if err != nil {
		app.logger.Error("%s failed after %v: %v", cmdName, elapsed, err)
		return err
	}
	app.logger.Debug("%s completed in %v", cmdName, elapsed)
	return nil
}

// parseGlobalFlags reads --config/--log-level/--log-file/--quiet/--verbose
// ahead of subcommand dispatch, overlaying them onto the loaded config and
// rebuilding the logger and progress manager to match. It returns the
// arguments that follow the global flags, starting with the command name.
func (app *App) parseGlobalFlags(args []string) ([]string, error) {
	fs := flag.NewFlagSet("global", flag.ContinueOnError)
	fs.Usage = func() {}

	var (
		configFile = fs.String("config", "", "config file path")
		logLevel   = fs.String("log-level", "", "log level (debug, info, warn, error)")
		logFile    = fs.String("log-file", "", "log file path")
		quiet      = fs.Bool("quiet", false, "suppress progress output")
		verbose    = fs.Bool("verbose", false, "enable debug logging")
	)

	// Global flags are parsed permissively: on an unknown flag (such as
	// --help or --version) the arguments are handed to dispatch unchanged
	// rather than rejected here.
	rest := args[1:]
	if err := fs.Parse(args[1:]); err == nil {
		rest = fs.Args()
	}

	if *configFile != "" {
		if err := app.config.LoadFromFile(*configFile); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	if *logLevel != "" {
		app.config.LogLevel = *logLevel
	}
	if *logFile != "" {
		app.config.LogFile = *logFile
	}
	if *quiet {
		app.config.Quiet = true
		app.config.LogLevel = "error"
	}
	if *verbose {
		app.config.Verbose = true
		app.config.LogLevel = "debug"
	}

	app.logger = NewLogger(app.config.LogLevel, app.config.LogFile)
	app.progress = NewProgressManager(!app.config.Quiet)

	return rest, nil
}

func (app *App) showHelp() error {
	fmt.Printf("%s - %s\n\n", app.name, app.description)
	fmt.Printf("version %s\n\n", app.version)

	fmt.Printf("usage:\n  %s [global options] <command> [command options] [args...]\n\n", app.name)

	fmt.Printf("global options:\n")
	fmt.Printf("  --config <file>      config file path\n")
	fmt.Printf("  --log-level <level>  debug, info, warn, error\n")
	fmt.Printf("  --log-file <file>    log file path\n")
	fmt.Printf("  --quiet              suppress progress output\n")
	fmt.Printf("  --verbose            enable debug logging\n")
	fmt.Printf("  --help               show this help\n")
	fmt.Printf("  --version            show version\n\n")

	fmt.Printf("commands:\n")
	for _, cmd := range app.registry.List() {
		fmt.Printf("  %-10s %s\n", cmd.Name(), cmd.Description())
	}

	fmt.Printf("\nrun '%s <command> --help' for command-specific options\n", app.name)
	return nil
}

func (app *App) showVersion() error {
	fmt.Printf("%s version %s\n", app.name, app.version)
	return nil
}
