// ABOUTME: Entry point for the rokcore command host.
// ABOUTME: Wires config, logging, store, host and admin API behind cobra commands.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/2389/rokcore/internal/admin"
	"github.com/2389/rokcore/internal/config"
	"github.com/2389/rokcore/internal/host"
	"github.com/2389/rokcore/internal/logging"
	"github.com/2389/rokcore/internal/store"
	_ "github.com/2389/rokcore/plugins/assistant"  // Register assistant plugin
	_ "github.com/2389/rokcore/plugins/essentials" // Register essentials plugin
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dbPath string
		addr   string
		noDB   bool
	)

	rootCmd := &cobra.Command{
		Use:   "rokcore",
		Short: "Reign of Kings command host for Covalence-style plugins",
		Long: `rokcore hosts plugins that claim chat and console commands on a Reign of Kings
server. Plugins may override the engine's own commands; unloading a plugin puts
back whatever it replaced.

Environment Variables:
  ROK_ADMIN_ADDR            Admin API address (default: 127.0.0.1:9100)
  ROK_ADMIN_TOKEN           Bearer token required by the admin API when set
  ROK_DB_PATH               SQLite database path (default: rokcore.db)
  ROK_LOG_LEVEL             debug, info, warn or error
  ROK_LOG_FORMAT            text or json
  ROK_RESTRICTED_COMMANDS   Comma separated names no plugin may register
  ROK_PLUGINS               Comma separated plugins to load at startup
  ROK_CONFIG_FILE           Optional YAML file with restricted_commands and plugins
  OPENAI_API_KEY            Enables the assistant plugin`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (overrides ROK_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&noDB, "no-db", false, "Run without persistence")

	load := func() (*config.Config, logging.Logger, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
		if addr != "" {
			cfg.AdminAddr = addr
		}
		if noDB {
			cfg.DBPath = ""
		}
		logger := logging.NewLogger(logging.Config{
			Level:   logging.ParseLevel(cfg.LogLevel),
			Format:  logging.ParseFormat(cfg.LogFormat),
			Output:  os.Stderr,
			AddTime: true,
		})
		return cfg, logger, nil
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the host and its admin API",
		Long: `Start the host, load the configured plugins and serve the admin API.

Endpoints:
  GET  /healthz
  GET  /plugins
  POST /plugins/{name}/load|unload|reload
  GET  /commands
  GET  /invocations?plugin=&command=&limit=
  POST /console            {"line": "o.plugins"}
  GET  /console/ws         websocket console`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}
	serveCmd.Flags().StringVarP(&addr, "addr", "a", "", "Admin API address (overrides ROK_ADMIN_ADDR)")

	consoleCmd := &cobra.Command{
		Use:   "console",
		Short: "Run an interactive server console",
		Long: `Read command lines from stdin and run them as the server console.

Prefix a line with @<steamid> to run it as that player instead; the player is
connected on first use. Plugin replies to that player are printed with the id.

  o.plugins
  o.load essentials
  @76561198000000001 /sethome castle`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			rt, err := buildHost(cfg, logger)
			if err != nil {
				return err
			}
			defer rt.Close()
			return runConsole(rt.host, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	commandsCmd := &cobra.Command{
		Use:   "commands",
		Short: "Print the command tables after loading the configured plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			cfg.DBPath = ""
			rt, err := buildHost(cfg, logging.NewDisabledLogger())
			if err != nil {
				return err
			}
			defer rt.Close()
			printCommands(cmd.OutOrStdout(), rt.host.Commands())
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd, consoleCmd, commandsCmd)
	return rootCmd
}

// runtime is a running host and the store behind it, if any
type runtime struct {
	host   *host.Host
	store  *store.Store
	logger logging.Logger
}

// invocations returns the store as an admin lister, or nil without a database
func (rt *runtime) invocations() admin.InvocationLister {
	if rt.store == nil {
		return nil
	}
	return rt.store
}

// Close shuts the host down and closes the store
func (rt *runtime) Close() {
	if err := rt.host.Shutdown(); err != nil {
		rt.logger.Error("shutdown failed", "error", err)
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			rt.logger.Error("failed to close store", "error", err)
		}
	}
}

// buildHost opens the store when configured, creates the host, loads the
// configured plugins and initializes the server.
func buildHost(cfg *config.Config, logger logging.Logger) (*runtime, error) {
	rt := &runtime{logger: logger}
	opts := host.Options{
		Restricted: cfg.Restricted,
		Logger:     logger,
		Settings: map[string]string{
			"openai_api_key": cfg.OpenAIKey,
			"openai_model":   cfg.OpenAIModel,
		},
	}

	if cfg.DBPath != "" {
		path, err := validateAndCleanDBPath(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		rt.store, err = store.New(path, logger.With("component", "store"))
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		opts.Store = rt.store
	}

	h, err := host.New(opts)
	if err != nil {
		if rt.store != nil {
			rt.store.Close()
		}
		return nil, err
	}
	rt.host = h

	for _, name := range cfg.Plugins {
		if _, err := h.LoadPlugin(name); err != nil {
			logger.Warn("failed to load plugin", "plugin", name, "error", err)
		}
	}
	h.Initialize()
	return rt, nil
}

func runServe(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	rt, err := buildHost(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := &http.Server{
		Addr:              cfg.AdminAddr,
		Handler:           admin.NewHandlers(rt.host, rt.invocations(), logger.With("component", "admin")).RequireToken(cfg.AdminToken).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.AdminToken == "" && !loopbackAddr(cfg.AdminAddr) {
		logger.Warn("admin API is reachable beyond loopback without ROK_ADMIN_TOKEN", "addr", cfg.AdminAddr)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("admin API listening", "addr", cfg.AdminAddr, "db", cfg.DBPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loopbackAddr reports whether addr listens on a loopback interface only
func loopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// runConsole reads lines from in until EOF or "quit"
func runConsole(h *host.Host, in io.Reader, out io.Writer) error {
	sessions := make(map[uint64]bool)
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "quit" || line == "exit":
			return nil
		case strings.HasPrefix(line, "@"):
			id, rest, err := parsePlayerLine(line)
			if err != nil {
				fmt.Fprintln(out, err)
				break
			}
			if !sessions[id] {
				if _, err := h.Connect(id, "Player"+strconv.FormatUint(id%10000, 10), "127.0.0.1", playerPrinter(out, id)); err != nil {
					fmt.Fprintln(out, err)
					break
				}
				sessions[id] = true
			}
			h.Execute(id, rest)
		default:
			if output := h.Console(line); output != "" {
				fmt.Fprintln(out, output)
			}
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

func playerPrinter(out io.Writer, id uint64) func(string) {
	return func(msg string) {
		fmt.Fprintf(out, "[%d] %s\n", id, msg)
	}
}

// parsePlayerLine splits "@<id> <line>"
func parsePlayerLine(line string) (uint64, string, error) {
	head, rest, _ := strings.Cut(strings.TrimPrefix(line, "@"), " ")
	id, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid player id %q", head)
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return 0, "", fmt.Errorf("missing command after @%d", id)
	}
	return id, rest, nil
}

func printCommands(out io.Writer, snap host.CommandSnapshot) {
	fmt.Fprintln(out, "Chat commands:")
	for _, c := range snap.Chat {
		fmt.Fprintf(out, "  %-20s %s%s\n", c.Name, c.Owner, restoresSuffix(c.Restores))
	}
	fmt.Fprintln(out, "Framework commands:")
	for _, c := range snap.Framework {
		fmt.Fprintf(out, "  %-20s %s%s\n", c.Name, c.Owner, restoresSuffix(c.Restores))
	}
	fmt.Fprintln(out, "Native commands:")
	fmt.Fprintf(out, "  %s\n", strings.Join(snap.Native, ", "))
}

func restoresSuffix(restores bool) string {
	if restores {
		return " (overrides native)"
	}
	return ""
}

// validateAndCleanDBPath rejects paths that point at the working tree's
// sensitive files or escape it with "..".
func validateAndCleanDBPath(path string) (string, error) {
	cleanPath := filepath.Clean(strings.TrimSpace(path))
	if cleanPath == "" || cleanPath == "." || cleanPath == "/" {
		return "", fmt.Errorf("database path cannot be empty, '.', or '/'")
	}
	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("database path cannot contain '..'")
	}
	lowerPath := strings.ToLower(cleanPath)
	for _, pattern := range []string{".git", ".svn", ".env", "credentials", "secret"} {
		if strings.Contains(lowerPath, pattern) {
			return "", fmt.Errorf("database path cannot contain '%s'", pattern)
		}
	}
	return cleanPath, nil
}
