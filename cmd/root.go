package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/illustraitor/cli/internal/adapter"
	"github.com/illustraitor/cli/internal/config"
	"github.com/illustraitor/cli/internal/logging"
	"github.com/illustraitor/cli/pkg/illustraitor"
	"github.com/illustraitor/cli/pkg/store"
	"github.com/illustraitor/cli/pkg/util"
)

// Set at build time with -ldflags "-X github.com/illustraitor/cli/cmd.defaultEndpoint=...".
var (
	version         = "dev"
	commit          = "none"
	defaultEndpoint = config.DevEndpoint
)

// App is everything a command needs, built once per invocation.
type App struct {
	Config   *config.Config
	Store    *store.Store
	Client   *illustraitor.Client
	Adapter  *adapter.Adapter
	Renderer *ptermRenderer
	Logger   *zap.Logger
}

type appKey struct{}

var rootCmd = &cobra.Command{
	Use:   "illustraitor",
	Short: "Turn text into illustrations",
	Long: `Generate images from a text prompt in one of the service's styles,
manage your API key and keep an eye on your credit balance.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupApp,
	PersistentPostRunE: teardownApp,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("endpoint", "", "Image service URL (env ILLUSTRAITOR_ENDPOINT)")
	pf.Duration("timeout", 0, "Per-request time budget, e.g. 90s (default 45s)")
	pf.String("log-level", "", "Write diagnostics to stderr at this level: debug, info, warn, error")
	pf.String("state-dir", "", "Directory holding the saved key and settings")
	pf.Bool("keyring", false, "Keep the API key in the OS keychain instead of the state file")
	pf.String("env-file", ".env", "Load environment variables from this file if it exists")
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion(version),
		fang.WithCommit(commit),
	); err != nil {
		os.Exit(1)
	}
}

// skipsSetup reports whether cmd runs without state or a client.
func skipsSetup(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		name := c.Name()
		if name == "completion" || name == "help" || strings.HasPrefix(name, "__") {
			return true
		}
	}
	return false
}

func setupApp(cmd *cobra.Command, args []string) error {
	if skipsSetup(cmd) {
		return nil
	}

	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	loader, err := config.NewLoader(cmd.Flags(), defaultEndpoint)
	if err != nil {
		return err
	}
	boot, err := loader.Bootstrap()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(boot.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	st, err := store.Open(store.Options{
		Dir:        boot.StateDir,
		UseKeyring: boot.Keyring,
		Logger:     logger.Named("store"),
	})
	if err != nil {
		return fmt.Errorf("open saved state: %w", err)
	}

	settings, err := st.Settings(cmd.Context())
	if err != nil {
		st.Close()
		return fmt.Errorf("read saved settings: %w", err)
	}
	cfg, err := loader.Load(settings)
	if err != nil {
		st.Close()
		return err
	}

	client := illustraitor.New(cfg.Endpoint,
		illustraitor.WithTimeout(cfg.Timeout),
		illustraitor.WithKeySource(st),
		illustraitor.WithLogger(logger.Named("client")),
	)

	output, _ := cmd.Flags().GetString("output")
	renderer := newRenderer(os.Stdout, rendererOptions{
		Spinner: term.IsTerminal(int(os.Stdout.Fd())),
		Quiet:   output == "json",
	})

	app := &App{
		Config:   cfg,
		Store:    st,
		Client:   client,
		Renderer: renderer,
		Logger:   logger,
		Adapter: adapter.New(client, st, renderer,
			adapter.WithDefaultStyle(cfg.DefaultStyle),
			adapter.WithLogger(logger.Named("adapter")),
		),
	}
	logger.Debug("configuration resolved",
		zap.String("endpoint", cfg.Endpoint),
		zap.Duration("timeout", cfg.Timeout),
		zap.String("state_dir", st.Dir()),
		zap.String("key_backend", st.KeyBackend()),
	)

	cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, app))
	return nil
}

func teardownApp(cmd *cobra.Command, args []string) error {
	app, ok := cmd.Context().Value(appKey{}).(*App)
	if !ok {
		return nil
	}
	app.Renderer.Stop()
	_ = app.Logger.Sync()
	return app.Store.Close()
}

// getApp returns the App built by setupApp.
func getApp(cmd *cobra.Command) *App {
	app, ok := cmd.Context().Value(appKey{}).(*App)
	if !ok {
		panic("app not initialized; command is missing setup")
	}
	return app
}

// apiError converts err into the message shown at the command boundary.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	return util.CleanedUpAPIError{Err: err, Hint: adapter.HintFor(err)}
}
