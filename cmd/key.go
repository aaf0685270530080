package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/illustraitor/cli/internal/adapter"
	"github.com/illustraitor/cli/pkg/illustraitor"
	"github.com/illustraitor/cli/pkg/table"
)

// KeyManager saves, removes and tests the API key.
type KeyManager interface {
	SaveKey(ctx context.Context, key string) (string, error)
	ClearKey(ctx context.Context) error
	TestKey(ctx context.Context, key string) (adapter.CreditsView, error)
}

// SavedKey reads the saved key and where it lives.
type SavedKey interface {
	APIKey(ctx context.Context) (string, bool, error)
	KeyBackend() string
}

// KeyCmd handles API key operations.
type KeyCmd struct {
	keys  KeyManager
	saved SavedKey
	// readKey obtains a key when none is given on the command line.
	readKey func() (string, error)
}

// KeySetInput holds input for saving a key.
type KeySetInput struct {
	Key string
}

// Set saves a key given as an argument or read from readKey.
func (k KeyCmd) Set(ctx context.Context, in KeySetInput) error {
	key := strings.TrimSpace(in.Key)
	if key == "" && k.readKey != nil {
		var err error
		if key, err = k.readKey(); err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		key = strings.TrimSpace(key)
	}
	if _, err := k.keys.SaveKey(ctx, key); err != nil {
		return apiError(err)
	}
	return nil
}

// KeyShowInput holds input for showing the saved key.
type KeyShowInput struct {
	Reveal bool
}

// Show prints the saved key, masked unless Reveal is set.
func (k KeyCmd) Show(ctx context.Context, in KeyShowInput) error {
	key, ok, err := k.saved.APIKey(ctx)
	if err != nil {
		return fmt.Errorf("read saved key: %w", err)
	}
	if !ok {
		pterm.Info.Println("No API key saved. Save one with `illustraitor key set` or create an account with `illustraitor register`.")
		return nil
	}

	shown := illustraitor.MaskKey(key)
	if in.Reveal {
		shown = key
	}
	rows := table.PropertyRows()
	rows = append(rows, []string{"Key", shown})
	rows = append(rows, []string{"Stored in", k.saved.KeyBackend()})
	table.PrintTableNoPad(rows, true)
	return nil
}

// Clear removes the saved key.
func (k KeyCmd) Clear(ctx context.Context) error {
	if err := k.keys.ClearKey(ctx); err != nil {
		return apiError(err)
	}
	return nil
}

// KeyTestInput holds input for testing a key.
type KeyTestInput struct {
	Key string
}

// Test checks a key with the service without saving it. With no key the
// saved one is tested.
func (k KeyCmd) Test(ctx context.Context, in KeyTestInput) error {
	view, err := k.keys.TestKey(ctx, in.Key)
	if err != nil {
		return apiError(err)
	}
	if view.Name != "" {
		pterm.Info.Printfln("Key belongs to %s", view.Name)
	}
	return nil
}

// readKeyFrom prompts for a key without echo on a terminal and otherwise
// reads the first line of r.
func readKeyFrom(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, "API key: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return line, nil
}

// --- Cobra wiring ---

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage your API key",
	Long:  "Save, show, test or remove the API key used for AI generations",
}

var keySetCmd = &cobra.Command{
	Use:   "set [key]",
	Short: "Save an API key",
	Long: `Save an API key. With no argument the key is read from a hidden prompt,
or from standard input when it is not a terminal.`,
	Example: `  illustraitor key set
  echo "$ILLUSTRAITOR_KEY" | illustraitor key set`,
	Args: cobra.MaximumNArgs(1),
	RunE: runKeySet,
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved API key",
	Args:  cobra.NoArgs,
	RunE:  runKeyShow,
}

var keyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the saved API key",
	Args:  cobra.NoArgs,
	RunE:  runKeyClear,
}

var keyTestCmd = &cobra.Command{
	Use:   "test [key]",
	Short: "Check an API key with the service",
	Long:  "Check a key with the service without saving it. With no argument the saved key is checked.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKeyTest,
}

func init() {
	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyShowCmd)
	keyCmd.AddCommand(keyClearCmd)
	keyCmd.AddCommand(keyTestCmd)

	keyShowCmd.Flags().Bool("reveal", false, "Print the key in full")

	rootCmd.AddCommand(keyCmd)
}

func newKeyCmd(app *App) KeyCmd {
	return KeyCmd{
		keys:    app.Adapter,
		saved:   app.Store,
		readKey: func() (string, error) { return readKeyFrom(os.Stdin) },
	}
}

func runKeySet(cmd *cobra.Command, args []string) error {
	k := newKeyCmd(getApp(cmd))
	var key string
	if len(args) > 0 {
		key = args[0]
	}
	return k.Set(cmd.Context(), KeySetInput{Key: key})
}

func runKeyShow(cmd *cobra.Command, args []string) error {
	reveal, _ := cmd.Flags().GetBool("reveal")
	return newKeyCmd(getApp(cmd)).Show(cmd.Context(), KeyShowInput{Reveal: reveal})
}

func runKeyClear(cmd *cobra.Command, args []string) error {
	return newKeyCmd(getApp(cmd)).Clear(cmd.Context())
}

func runKeyTest(cmd *cobra.Command, args []string) error {
	var key string
	if len(args) > 0 {
		key = args[0]
	}
	return newKeyCmd(getApp(cmd)).Test(cmd.Context(), KeyTestInput{Key: key})
}

