package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/illustraitor/cli/internal/config"
	"github.com/illustraitor/cli/pkg/store"
	"github.com/illustraitor/cli/pkg/table"
	"github.com/illustraitor/cli/pkg/util"
)

// SettingsStore persists user settings.
type SettingsStore interface {
	Settings(ctx context.Context) (map[string]string, error)
	SetSetting(ctx context.Context, name, value string) error
	Reset(ctx context.Context) error
	Dir() string
	KeyBackend() string
}

// ConfigCmd shows and changes persisted settings.
type ConfigCmd struct {
	store SettingsStore
	// effective is the configuration this invocation resolved.
	effective *config.Config
	// confirm asks the user a yes/no question.
	confirm func(question string) (bool, error)
}

// ConfigGetInput holds input for showing settings.
type ConfigGetInput struct {
	Output string
}

type configJSON struct {
	Endpoint     string            `json:"endpoint"`
	Timeout      string            `json:"timeout"`
	DefaultStyle string            `json:"default_style"`
	StateDir     string            `json:"state_dir"`
	KeyBackend   string            `json:"key_backend"`
	Saved        map[string]string `json:"saved"`
}

// Get prints the effective configuration next to what is saved.
func (c ConfigCmd) Get(ctx context.Context, in ConfigGetInput) error {
	saved, err := c.store.Settings(ctx)
	if err != nil {
		return fmt.Errorf("read saved settings: %w", err)
	}

	if in.Output == "json" {
		return util.PrintJSON(configJSON{
			Endpoint:     c.effective.Endpoint,
			Timeout:      c.effective.Timeout.String(),
			DefaultStyle: c.effective.DefaultStyle,
			StateDir:     c.store.Dir(),
			KeyBackend:   c.store.KeyBackend(),
			Saved:        saved,
		})
	}

	rows := pterm.TableData{{"Setting", "In use", "Saved"}}
	rows = append(rows, []string{"api_endpoint", c.effective.Endpoint, util.OrDash(saved[store.SettingEndpoint])})
	rows = append(rows, []string{"default_style", c.effective.DefaultStyle, util.OrDash(saved[store.SettingDefaultStyle])})
	rows = append(rows, []string{"timeout", c.effective.Timeout.String(), "-"})
	rows = append(rows, []string{"state_dir", c.store.Dir(), "-"})
	rows = append(rows, []string{"key storage", c.store.KeyBackend(), "-"})
	table.PrintTableNoPad(rows, true)
	return nil
}

// ConfigSetInput holds input for changing a setting.
type ConfigSetInput struct {
	Name  string
	Value string
}

// Set saves a setting. An empty value removes the saved setting.
func (c ConfigCmd) Set(ctx context.Context, in ConfigSetInput) error {
	name, err := store.SettingName(in.Name)
	if err != nil {
		return err
	}
	value := strings.TrimSpace(in.Value)
	if name == store.SettingEndpoint && value != "" {
		if value, err = config.NormalizeEndpoint(value); err != nil {
			return err
		}
	}

	if err := c.store.SetSetting(ctx, name, value); err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	short := strings.TrimPrefix(name, "settings.")
	if value == "" {
		pterm.Success.Printfln("Removed %s", short)
	} else {
		pterm.Success.Printfln("Set %s to %s", short, value)
	}
	return nil
}

// ConfigResetInput holds input for wiping saved state.
type ConfigResetInput struct {
	Yes bool
}

// Reset removes the saved key, balance, account and settings.
func (c ConfigCmd) Reset(ctx context.Context, in ConfigResetInput) error {
	if !in.Yes {
		if c.confirm == nil {
			return fmt.Errorf("refusing to reset without confirmation; pass --yes")
		}
		ok, err := c.confirm("Remove the saved API key, balance, account and settings?")
		if err != nil {
			return err
		}
		if !ok {
			pterm.Info.Println("Reset cancelled")
			return nil
		}
	}
	if err := c.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset saved state: %w", err)
	}
	pterm.Success.Println("Saved state removed")
	return nil
}

// --- Cobra wiring ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change saved settings",
	Long: fmt.Sprintf(`Show and change saved settings.

Known settings: %s
Flags and %s_* environment variables override saved settings.`,
		strings.Join(store.KnownSettings, ", "), config.EnvPrefix),
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show effective and saved settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Save a setting",
	Long:  "Save a setting. Pass an empty value to remove it.",
	Example: `  illustraitor config set api_endpoint https://illustraitor-ai-v2.onrender.com
  illustraitor config set default_style anime`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove all saved state",
	Args:  cobra.NoArgs,
	RunE:  runConfigReset,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)

	configGetCmd.Flags().StringP("output", "o", "", "Output format (json)")
	configResetCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	rootCmd.AddCommand(configCmd)
}

func newConfigCmd(app *App) ConfigCmd {
	c := ConfigCmd{store: app.Store, effective: app.Config}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		c.confirm = func(question string) (bool, error) {
			return pterm.DefaultInteractiveConfirm.WithDefaultValue(false).Show(question)
		}
	}
	return c
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	return newConfigCmd(getApp(cmd)).Get(cmd.Context(), ConfigGetInput{Output: output})
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	return newConfigCmd(getApp(cmd)).Set(cmd.Context(), ConfigSetInput{Name: args[0], Value: args[1]})
}

func runConfigReset(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	return newConfigCmd(getApp(cmd)).Reset(cmd.Context(), ConfigResetInput{Yes: yes})
}
