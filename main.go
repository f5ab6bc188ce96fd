package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/ishangarg01/cmd-gen/internal/api"
	"github.com/ishangarg01/cmd-gen/internal/audit"
	"github.com/ishangarg01/cmd-gen/internal/classify"
	"github.com/ishangarg01/cmd-gen/internal/collect"
	"github.com/ishangarg01/cmd-gen/internal/completion"
	"github.com/ishangarg01/cmd-gen/internal/config"
	"github.com/ishangarg01/cmd-gen/internal/fileutil"
	"github.com/ishangarg01/cmd-gen/internal/history"
	"github.com/ishangarg01/cmd-gen/internal/logger"
	"github.com/ishangarg01/cmd-gen/internal/placeholder"
	"github.com/ishangarg01/cmd-gen/internal/registry"
	"github.com/ishangarg01/cmd-gen/internal/tui"
	"github.com/ishangarg01/cmd-gen/internal/tui/rulelist"
)

// Version is set at build time via ldflags: -X main.Version=x.y.z
var Version = "1.0.0"

var log = logger.New("main")

// Exit codes: 0 = allowed, 1 = denied or usage error, 2 = internal error.
const (
	exitAllowed = 0
	exitDenied  = 1
	exitError   = 2
)

func main() {
	// Shell completion: handles COMP_LINE invocations and exits early
	if completion.Run() {
		return
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "audit":
			runAudit(os.Args[2:])
			return
		case "serve":
			runServe(os.Args[2:])
			return
		case "list-rules":
			runListRules(os.Args[2:])
			return
		case "add-rule":
			runAddRule(os.Args[2:])
			return
		case "remove-rule":
			runRemoveRule(os.Args[2:])
			return
		case "reload-rules":
			runReloadRules()
			return
		case "validate-rules":
			runValidateRules(os.Args[2:])
			return
		case "history":
			runHistory(os.Args[2:])
			return
		case "export-history":
			runExportHistory(os.Args[2:])
			return
		case "completion":
			runCompletion(os.Args[2:])
			return
		case "help", "-h", "--help":
			printUsage()
			return
		case "version", "-v", "--version":
			fmt.Printf("cmd-gen version %s\n", Version)
			return
		}
	}

	printUsage()
}

// =============================================================================
// API client for commands that talk to a running serve instance
// =============================================================================

type apiClient struct {
	baseURL string
}

func newAPIClient(configPath string) *apiClient {
	cfg, err := config.Load(configPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return &apiClient{baseURL: fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)}
}

// isServerRunning probes the health endpoint.
func (c *apiClient) isServerRunning() bool {
	resp, err := http.Get(c.baseURL + "/health") //nolint:gosec,noctx // URL is from trusted config
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// reloadRules triggers a hot reload of user rules.
func (c *apiClient) reloadRules() ([]byte, error) {
	resp, err := http.Post(c.baseURL+"/api/cmdgen/rules/reload", "application/json", nil) //nolint:gosec,noctx // URL is from trusted config
	if err != nil {
		return nil, fmt.Errorf("server not running")
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// =============================================================================
// Shared setup
// =============================================================================

// buildRegistry constructs the rule registry from configuration.
func buildRegistry(cfg *config.Config) (*registry.Registry, error) {
	opts := registry.Options{
		UserDir:        cfg.Rules.UserDir,
		DisableBuiltin: cfg.Rules.DisableBuiltin,
		Delimiters:     cfg.Audit.PlaceholderDelimiters,
	}
	for _, r := range cfg.Rules.ExtraBlock {
		opts.ExtraBlock = append(opts.ExtraBlock, registry.RiskRule{
			Name: r.Name, Pattern: r.Pattern, Reason: r.Reason,
		})
	}
	for _, r := range cfg.Rules.ExtraWarn {
		opts.ExtraWarn = append(opts.ExtraWarn, registry.RiskRule{
			Name: r.Name, Pattern: r.Pattern, Reason: r.Reason,
		})
	}
	return registry.New(opts)
}

// openHistory opens the decision history store, or returns nil when disabled.
// SECURITY: the encryption key comes from the DB_KEY env var when set,
// falling back to the config file value.
func openHistory(cfg *config.Config) (*history.Storage, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	secrets, err := config.LoadSecretsWithDefaults(cfg.History.EncryptionKey)
	if err != nil {
		return nil, err
	}
	if err := secrets.ValidateDBKey(); err != nil {
		return nil, err
	}
	return history.NewStorage(cfg.History.DBPath, secrets.DBKey)
}

// loadConfigOrExit loads and validates configuration, exiting on failure.
func loadConfigOrExit(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		tui.PrintError(fmt.Sprintf("failed to load configuration: %v", err))
		os.Exit(exitError)
	}
	return cfg
}

func applyLogFlags(cfg *config.Config, logLevel string, noColor bool) {
	if logLevel != "" {
		logger.SetGlobalLevelFromString(logLevel)
	} else {
		logger.SetGlobalLevelFromString(string(cfg.Server.LogLevel))
	}
	if noColor || cfg.Server.NoColor {
		logger.SetColored(false)
		tui.SetPlainMode(true)
	}
}

// =============================================================================
// audit
// =============================================================================

func runAudit(args []string) {
	auditFlags := flag.NewFlagSet("audit", flag.ExitOnError)
	configPath := auditFlags.String("config", config.DefaultConfigPath(), "Path to configuration file")
	root := auditFlags.String("root", "", "Allowed root for path traversal checks (default: config or cwd)")
	timeout := auditFlags.Int("timeout", -1, "Per-prompt timeout in seconds (0 = no timeout, -1 = use config)")
	logLevel := auditFlags.String("log-level", "", "Log level: debug, info, warn, error")
	noColor := auditFlags.Bool("no-color", false, "Disable colored output")
	disableBuiltin := auditFlags.Bool("disable-builtin", false, "Disable builtin risk rules")
	request := auditFlags.String("request", "", "Original request text to screen for injection idioms")
	_ = auditFlags.Parse(args)

	command := strings.Join(auditFlags.Args(), " ")
	if strings.TrimSpace(command) == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "Usage: cmd-gen audit [flags] <command>")
		fmt.Fprintln(os.Stderr, "The command may also be piped on stdin.")
		os.Exit(exitDenied)
	}

	cfg := loadConfigOrExit(*configPath)
	applyLogFlags(cfg, *logLevel, *noColor)
	if *root != "" {
		cfg.Audit.AllowedRoot = *root
	}
	if *timeout >= 0 {
		cfg.Audit.PromptTimeout = *timeout
	}
	if *disableBuiltin {
		cfg.Rules.DisableBuiltin = true
	}
	if err := cfg.Validate(); err != nil {
		tui.PrintError(err.Error())
		os.Exit(exitError)
	}

	source := collect.NewTerminalSource()
	if strings.TrimSpace(command) == "" {
		if rs, ok := source.(*collect.ReaderSource); ok {
			command = readPipedCommand(rs)
		}
	}
	if strings.TrimSpace(command) == "" {
		fmt.Fprintln(os.Stderr, "Usage: cmd-gen audit [flags] <command>")
		fmt.Fprintln(os.Stderr, "The command may also be piped on stdin.")
		os.Exit(exitDenied)
	}

	if *request != "" {
		if err := classify.ValidateRequest(*request); err != nil {
			tui.PrintDenied(command, err.Error())
			os.Exit(exitDenied)
		}
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		tui.PrintError(fmt.Sprintf("failed to load rules: %v", err))
		os.Exit(exitError)
	}

	classifier, err := classify.New(reg, cfg.Audit.AllowedRoot)
	if err != nil {
		tui.PrintError(fmt.Sprintf("failed to initialize classifier: %v", err))
		os.Exit(exitError)
	}

	store, err := openHistory(cfg)
	if err != nil {
		tui.PrintError(fmt.Sprintf("failed to open history: %v", err))
		os.Exit(exitError)
	}
	var recorder audit.Recorder
	if store != nil {
		defer store.Close()
		recorder = store
	}

	extractor := placeholder.NewExtractor(reg.PlaceholderSyntaxes())
	collector := collect.New(source, time.Duration(cfg.Audit.PromptTimeout)*time.Second)
	pipeline := audit.New(classifier, extractor, collector, recorder)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	decision, err := pipeline.Audit(ctx, command)
	if err != nil {
		tui.PrintError(err.Error())
		os.Exit(exitError)
	}

	if !decision.Allowed {
		tui.PrintDenied(command, decision.Reason)
		os.Exit(exitDenied)
	}
	tui.PrintAllowed(decision.FinalCommand)
}

// readPipedCommand reads the command line from piped input through the
// collector's own reader, so the lines after it remain buffered for
// placeholder prompts.
func readPipedCommand(rs *collect.ReaderSource) string {
	line, err := rs.ReadLine(context.Background())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// =============================================================================
// serve
// =============================================================================

func runServe(args []string) {
	serveFlags := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := serveFlags.String("config", config.DefaultConfigPath(), "Path to configuration file")
	port := serveFlags.Int("port", 0, "Management API port (default from config)")
	watch := serveFlags.Bool("watch", true, "Watch user rule directory for changes")
	logLevel := serveFlags.String("log-level", "", "Log level: debug, info, warn, error")
	noColor := serveFlags.Bool("no-color", false, "Disable colored log output")
	_ = serveFlags.Parse(args)

	cfg := loadConfigOrExit(*configPath)
	applyLogFlags(cfg, *logLevel, *noColor)
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if !*watch {
		cfg.Rules.Watch = false
	}
	if err := cfg.Validate(); err != nil {
		tui.PrintError(err.Error())
		os.Exit(exitError)
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		log.Error("Failed to load rules: %v", err)
		os.Exit(exitError)
	}
	log.Info("Rule registry: %d rules loaded", reg.RuleCount())

	classifier, err := classify.New(reg, cfg.Audit.AllowedRoot)
	if err != nil {
		log.Error("Failed to initialize classifier: %v", err)
		os.Exit(exitError)
	}

	store, err := openHistory(cfg)
	if err != nil {
		log.Error("Failed to open history: %v", err)
		os.Exit(exitError)
	}
	if store != nil {
		defer store.Close()
		if cfg.History.RetentionDays > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := store.Purge(ctx, cfg.History.RetentionDays); err != nil {
				log.Warn("History purge failed: %v", err)
			} else if n > 0 {
				log.Info("Purged %d history records older than %d days", n, cfg.History.RetentionDays)
			}
			cancel()
		}
	}

	if cfg.Rules.Watch {
		watcher, err := registry.NewWatcher(reg)
		if err != nil {
			log.Warn("Failed to create rule watcher: %v", err)
		} else if err := watcher.Start(); err != nil {
			log.Warn("Failed to start rule watcher: %v", err)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	extractor := placeholder.NewExtractor(reg.PlaceholderSyntaxes())
	server := api.NewServer(reg, classifier, extractor, store, Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tui.WindowTitle("cmd-gen serve")
	if err := server.Serve(ctx, cfg.Server.Port); err != nil {
		log.Error("Server error: %v", err)
		os.Exit(exitError)
	}
	log.Info("cmd-gen stopped")
}

// =============================================================================
// rule management
// =============================================================================

func runListRules(args []string) {
	listFlags := flag.NewFlagSet("list-rules", flag.ExitOnError)
	configPath := listFlags.String("config", config.DefaultConfigPath(), "Path to configuration file")
	noColor := listFlags.Bool("no-color", false, "Disable colored output")
	jsonOutput := listFlags.Bool("json", false, "Output rules as JSON")
	interactive := listFlags.Bool("interactive", false, "Browse rules in an interactive list")
	_ = listFlags.Parse(args)

	if *noColor {
		tui.SetPlainMode(true)
	}

	cfg := loadConfigOrExit(*configPath)
	reg, err := buildRegistry(cfg)
	if err != nil {
		tui.PrintError(fmt.Sprintf("failed to load rules: %v", err))
		os.Exit(exitError)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reg.Rules()); err != nil {
			tui.PrintError(err.Error())
			os.Exit(exitError)
		}
		return
	}
	if *interactive {
		tui.SetPlainMode(false)
	}

	if err := rulelist.Render(reg.Rules(), reg.RuleCount()); err != nil {
		tui.PrintError(err.Error())
		os.Exit(exitError)
	}
}

func runAddRule(args []string) {
	addFlags := flag.NewFlagSet("add-rule", flag.ExitOnError)
	configPath := addFlags.String("config", config.DefaultConfigPath(), "Path to configuration file")
	_ = addFlags.Parse(args)

	if addFlags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: cmd-gen add-rule <file.yaml>")
		os.Exit(exitDenied)
	}
	filePath := addFlags.Arg(0)

	cfg := loadConfigOrExit(*configPath)
	loader := registry.NewLoader(cfg.Rules.UserDir)

	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path is from trusted CLI input
	if err != nil {
		tui.PrintError(fmt.Sprintf("reading file: %v", err))
		os.Exit(exitError)
	}
	if err := loader.ValidateYAML(data); err != nil {
		tui.PrintError(fmt.Sprintf("validation failed: %v", err))
		os.Exit(exitDenied)
	}

	destPath, err := loader.AddRuleFile(filePath)
	if err != nil {
		tui.PrintError(fmt.Sprintf("adding rule file: %v", err))
		os.Exit(exitError)
	}
	tui.PrintSuccess("Rule file added: " + destPath)

	notifyReload(*configPath)
}

func runRemoveRule(args []string) {
	removeFlags := flag.NewFlagSet("remove-rule", flag.ExitOnError)
	configPath := removeFlags.String("config", config.DefaultConfigPath(), "Path to configuration file")
	_ = removeFlags.Parse(args)

	if removeFlags.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: cmd-gen remove-rule <filename>")
		fmt.Fprintln(os.Stderr, "Use 'cmd-gen list-rules' to see user rule files.")
		os.Exit(exitDenied)
	}
	filename := removeFlags.Arg(0)

	cfg := loadConfigOrExit(*configPath)
	loader := registry.NewLoader(cfg.Rules.UserDir)
	if err := loader.RemoveRuleFile(filename); err != nil {
		tui.PrintError(fmt.Sprintf("removing rule file: %v", err))
		os.Exit(exitError)
	}
	tui.PrintSuccess("Rule file removed: " + filename)

	notifyReload(*configPath)
}

// notifyReload triggers a hot reload on a running serve instance, if any.
func notifyReload(configPath string) {
	client := newAPIClient(configPath)
	if !client.isServerRunning() {
		tui.PrintInfo("No server running. Rules will be loaded on next start.")
		return
	}
	if _, err := client.reloadRules(); err == nil {
		tui.PrintSuccess("Hot reload triggered")
	}
}

func runReloadRules() {
	client := newAPIClient(config.DefaultConfigPath())
	body, err := client.reloadRules()
	if err != nil {
		tui.PrintError("cmd-gen server is not running. Start it with: cmd-gen serve")
		os.Exit(exitError)
	}
	fmt.Println(string(body))
}

func runValidateRules(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: cmd-gen validate-rules <file.yaml> [...]")
		os.Exit(exitDenied)
	}

	loader := registry.NewLoader("")
	failed := false
	for _, filePath := range args {
		data, err := os.ReadFile(filePath) //nolint:gosec // G304: path is from trusted CLI input
		if err != nil {
			tui.PrintError(fmt.Sprintf("%s: %v", filePath, err))
			failed = true
			continue
		}
		if err := loader.ValidateYAML(data); err != nil {
			tui.PrintError(fmt.Sprintf("%s: %v", filePath, err))
			failed = true
			continue
		}
		tui.PrintSuccess(filePath + ": valid")
	}
	if failed {
		os.Exit(exitDenied)
	}
}

// =============================================================================
// history
// =============================================================================

func runHistory(args []string) {
	historyFlags := flag.NewFlagSet("history", flag.ExitOnError)
	configPath := historyFlags.String("config", config.DefaultConfigPath(), "Path to configuration file")
	limit := historyFlags.Int("limit", 50, "Maximum records to show")
	deniedOnly := historyFlags.Bool("denied", false, "Show only denied commands")
	jsonOutput := historyFlags.Bool("json", false, "Output as JSON")
	_ = historyFlags.Parse(args)

	cfg := loadConfigOrExit(*configPath)
	store, err := openHistory(cfg)
	if err != nil {
		tui.PrintError(fmt.Sprintf("failed to open history: %v", err))
		os.Exit(exitError)
	}
	if store == nil {
		tui.PrintInfo("History is disabled in configuration")
		return
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var records []history.Record
	if *deniedOnly {
		records, err = store.ListDenied(ctx, *limit)
	} else {
		records, err = store.ListRecent(ctx, *limit)
	}
	if err != nil {
		tui.PrintError(fmt.Sprintf("reading history: %v", err))
		os.Exit(exitError)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(records) //nolint:errcheck // stdout write
		return
	}

	if len(records) == 0 {
		fmt.Println("No audit decisions recorded.")
		return
	}
	for _, r := range records {
		verdict := "ALLOW"
		if !r.Allowed {
			verdict = "DENY"
		}
		fmt.Printf("%s  %-5s  %s\n", r.Timestamp.Local().Format("2006-01-02 15:04:05"), verdict, r.RawCommand)
		if r.Reason != "" {
			fmt.Printf("%21s %s\n", "", tui.Faint(r.Reason))
		}
	}

	stats, err := store.GetStats(ctx)
	if err == nil {
		fmt.Printf("\n%d total: %d allowed, %d denied\n", stats.Total, stats.Allowed, stats.Denied)
	}
}

func runExportHistory(args []string) {
	exportFlags := flag.NewFlagSet("export-history", flag.ExitOnError)
	configPath := exportFlags.String("config", config.DefaultConfigPath(), "Path to configuration file")
	output := exportFlags.String("output", "", "Output file (default: stdout)")
	compress := exportFlags.Bool("compress", false, "Compress output with zstd")
	_ = exportFlags.Parse(args)

	cfg := loadConfigOrExit(*configPath)
	store, err := openHistory(cfg)
	if err != nil {
		tui.PrintError(fmt.Sprintf("failed to open history: %v", err))
		os.Exit(exitError)
	}
	if store == nil {
		tui.PrintInfo("History is disabled in configuration")
		return
	}
	defer store.Close()

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := fileutil.SecureOpenFile(*output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC)
		if err != nil {
			tui.PrintError(fmt.Sprintf("creating output file: %v", err))
			os.Exit(exitError)
		}
		defer f.Close()
		w = f
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := store.ExportJSONL(ctx, w, *compress); err != nil {
		tui.PrintError(fmt.Sprintf("export failed: %v", err))
		os.Exit(exitError)
	}
	if *output != "" {
		tui.PrintSuccess("History exported to " + *output)
	}
}

// =============================================================================
// completion
// =============================================================================

func runCompletion(args []string) {
	completionFlags := flag.NewFlagSet("completion", flag.ExitOnError)
	install := completionFlags.Bool("install", false, "Install shell completion")
	uninstall := completionFlags.Bool("uninstall", false, "Uninstall shell completion")
	_ = completionFlags.Parse(args)

	switch {
	case *install:
		if completion.IsInstalled() {
			tui.PrintInfo("Shell completion already installed")
			return
		}
		if err := completion.Install(); err != nil {
			tui.PrintError(fmt.Sprintf("install failed: %v", err))
			os.Exit(exitError)
		}
		tui.PrintSuccess("Shell completion installed. Restart your shell to activate.")
	case *uninstall:
		if err := completion.Uninstall(); err != nil {
			tui.PrintError(fmt.Sprintf("uninstall failed: %v", err))
			os.Exit(exitError)
		}
		tui.PrintSuccess("Shell completion uninstalled")
	default:
		fmt.Fprintln(os.Stderr, "Usage: cmd-gen completion -install | -uninstall")
		os.Exit(exitDenied)
	}
}

func printUsage() {
	fmt.Println(`cmd-gen - Command safety auditor for AI-proposed shell commands

Usage:
  cmd-gen audit [flags] <command>    Audit a command (interactive)
  cmd-gen serve [flags]              Run the management API server

  cmd-gen list-rules [flags]         List all active risk rules
  cmd-gen add-rule <file.yaml>       Add a rule file to user rules
  cmd-gen remove-rule <filename>     Remove a user rule file
  cmd-gen reload-rules               Trigger hot reload on a running server
  cmd-gen validate-rules <file.yaml> Validate rule syntax and patterns

  cmd-gen history [flags]            Show recorded audit decisions
  cmd-gen export-history [flags]     Export history as JSONL

  cmd-gen completion -install        Set up shell tab-completion
  cmd-gen help                       Show this help message
  cmd-gen version                    Show version

Audit Flags:
  --config string     Path to configuration file (default ~/.cmd-gen/config.yaml)
  --root string       Allowed root for path traversal checks (default: cwd)
  --timeout int       Per-prompt timeout in seconds (0 = no timeout)
  --log-level string  Log level: debug, info, warn, error
  --no-color          Disable colored output
  --disable-builtin   Disable builtin risk rules
  --request string    Screen the original request text for injection idioms

Environment Variables:
  DB_KEY         History database encryption key (prefer over config file)
  NO_COLOR       Disable all styled output

Exit Codes:
  0  command allowed
  1  command denied
  2  internal error

Examples:
  cmd-gen audit 'mkdir <project_name>'     Prompt for the placeholder, then audit
  cmd-gen audit 'rm -rf /'                 Denied by builtin rules
  cmd-gen history -denied                  Show denied commands
  cmd-gen serve --port 8377                Run the management API`)
}
