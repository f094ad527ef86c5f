package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hpungsan/coursedesk/internal/config"
	"github.com/hpungsan/coursedesk/internal/history"
	"github.com/hpungsan/coursedesk/internal/logging"
	"github.com/hpungsan/coursedesk/internal/mcp"
	"github.com/hpungsan/coursedesk/internal/remote"
	"github.com/hpungsan/coursedesk/internal/session"
	"github.com/hpungsan/coursedesk/internal/storage"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"history": true, "plan": true, "extract": true, "serve": true,
	"help": true,
}

// deps is what the commands run against.
type deps struct {
	cfg      *config.Config
	log      *slog.Logger
	sessions *session.Manager
	invoker  remote.Invoker
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func printBanner() {
	fmt.Println(`
                                     _           _
   ___ ___  _   _ _ __ ___  ___  __| | ___  ___| | __
  / __/ _ \| | | | '__/ __|/ _ \/ _' |/ _ \/ __| |/ /
 | (_| (_) | |_| | |  \__ \  __/ (_| |  __/\__ \   <
  \___\___/ \__,_|_|  |___/\___|\__,_|\___||___/_|\_\

  Course catalog client state: history, semester plan, selection

  Usage: coursedesk <command> [options]
         coursedesk --help

  MCP server mode requires piped input.`)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// setup loads config and opens storage. The returned closer releases the backend.
func setup() (*deps, func(), error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, fmt.Errorf("could not determine home directory: %w", err)
	}
	baseDir := filepath.Join(homeDir, ".coursedesk")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = baseDir
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}

	backend, err := storage.Open(cfg, baseDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s storage: %w", cfg.StorageBackend, err)
	}

	hist := history.NewStore(backend,
		history.WithMaxItems(cfg.HistoryMaxItems),
		history.WithLogger(log),
	)
	d := &deps{
		cfg: cfg,
		log: log,
		sessions: session.NewManager(hist,
			session.WithExclusiveTerms(cfg.ExclusiveTerms),
			session.WithIdleTTL(cfg.SessionIdleTTL()),
			session.WithMaxSessions(cfg.MaxSessions),
			session.WithLogger(log),
		),
	}
	// Leave the interface nil when no backend is configured; a typed nil
	// pointer would register the advisor anyway.
	if cfg.RemoteURL != "" {
		d.invoker = remote.NewHTTPClient(cfg.RemoteURL, cfg.RemoteAPIKey, cfg.RemoteTimeout())
	}

	return d, func() { _ = backend.Close() }, nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before touching storage
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode() && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'coursedesk --help' for usage.\n")
		os.Exit(1)
	}

	d, closeFn, err := setup()
	if err != nil {
		fail("%v", err)
	}

	if isCLIMode() {
		app := newCLIApp(d)
		err := app.Run(os.Args)
		closeFn()
		if err != nil {
			fail("%v", err)
		}
		return
	}

	// MCP server mode (default): one session for the lifetime of the pipe
	sess, err := d.sessions.New()
	if err != nil {
		closeFn()
		fail("%v", err)
	}
	err = mcp.Run(sess, d.invoker, d.cfg, Version)
	closeFn()
	if err != nil {
		fail("%v", err)
	}
}
