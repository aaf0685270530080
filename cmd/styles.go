package cmd

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/illustraitor/cli/pkg/illustraitor"
	"github.com/illustraitor/cli/pkg/table"
	"github.com/illustraitor/cli/pkg/util"
)

// StyleLoader loads the style catalog.
type StyleLoader interface {
	LoadStyles(ctx context.Context) (illustraitor.Catalog, error)
}

// StylesCmd lists the available styles.
type StylesCmd struct {
	styles       StyleLoader
	defaultStyle string
}

// StylesInput holds input for listing styles.
type StylesInput struct {
	Output string
}

// List prints the catalog. When the service's catalog is unavailable the
// fallback catalog is printed with a warning and the command still succeeds,
// except for a timeout which is reported as such.
func (s StylesCmd) List(ctx context.Context, in StylesInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	catalog, err := s.styles.LoadStyles(ctx)
	if err != nil && illustraitor.IsTimeout(err) {
		return apiError(err)
	}

	if in.Output == "json" {
		if err != nil {
			return util.PrintJSON(catalog)
		}
		return util.PrintPrettyJSON(catalog)
	}

	if err != nil {
		pterm.Warning.Printfln("Could not load styles from the service (%s). Showing the built-in default.",
			illustraitor.UserMessage(err))
	}

	rows := pterm.TableData{{"ID", "Name", "Credits", "Description"}}
	for _, st := range catalog.Styles {
		id := st.ID
		if id == s.defaultStyle {
			id += " (default)"
		}
		rows = append(rows, []string{id, st.Name, fmt.Sprintf("%d", st.CreditsCost), util.OrDash(st.Description)})
	}
	table.PrintTableNoPad(rows, true)
	return nil
}

// --- Cobra wiring ---

var stylesCmd = &cobra.Command{
	Use:   "styles",
	Short: "List available styles",
	Long:  "List the rendering styles offered by the service and what each costs in credits",
	Args:  cobra.NoArgs,
	RunE:  runStyles,
}

func init() {
	stylesCmd.Flags().StringP("output", "o", "", "Output format (json)")
	rootCmd.AddCommand(stylesCmd)
}

func runStyles(cmd *cobra.Command, args []string) error {
	app := getApp(cmd)
	output, _ := cmd.Flags().GetString("output")

	s := StylesCmd{styles: app.Adapter, defaultStyle: app.Config.DefaultStyle}
	return s.List(cmd.Context(), StylesInput{Output: output})
}
