package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/illustraitor/cli/internal/adapter"
	"github.com/illustraitor/cli/pkg/illustraitor"
	"github.com/illustraitor/cli/pkg/util"
)

// HealthChecker probes the service.
type HealthChecker interface {
	Health(ctx context.Context) (adapter.HealthView, error)
}

// HealthCmd reports whether the service is up and speaks a supported version.
type HealthCmd struct {
	checker  HealthChecker
	endpoint string
}

// HealthInput holds input for a health check.
type HealthInput struct {
	Output string
}

// Run probes the service and prints its status.
func (h HealthCmd) Run(ctx context.Context, in HealthInput) error {
	view, err := h.checker.Health(ctx)
	if err != nil {
		if in.Output != "json" {
			pterm.Println()
			pterm.Printf("  %s %s  %s\n", coloredDot(statusColor("down")), pterm.Bold.Sprint(h.endpoint), "Unreachable")
			pterm.Println()
		}
		return apiError(err)
	}

	if in.Output == "json" {
		return util.PrintPrettyJSON(view.Health)
	}
	printHealth(h.endpoint, view)
	return nil
}

// Colors follow the service's own status page.
var statusDisplay = map[string]struct {
	label string
	rgb   pterm.RGB
}{
	"healthy":  {label: "Healthy", rgb: pterm.NewRGB(31, 163, 130)},
	"ok":       {label: "Healthy", rgb: pterm.NewRGB(31, 163, 130)},
	"degraded": {label: "Degraded", rgb: pterm.NewRGB(245, 158, 11)},
	"down":     {label: "Down", rgb: pterm.NewRGB(239, 68, 68)},
	"unknown":  {label: "Unknown", rgb: pterm.NewRGB(128, 128, 128)},
}

func getStatusDisplay(status string) (string, pterm.RGB) {
	if d, ok := statusDisplay[strings.ToLower(status)]; ok {
		return d.label, d.rgb
	}
	return "Unknown", pterm.NewRGB(128, 128, 128)
}

func statusColor(status string) pterm.RGB {
	_, rgb := getStatusDisplay(status)
	return rgb
}

func coloredDot(rgb pterm.RGB) string {
	return rgb.Sprint("●")
}

func printHealth(endpoint string, view adapter.HealthView) {
	label, rgb := getStatusDisplay(view.Status)
	pterm.Println()
	pterm.Printf("  %s %s  %s\n", coloredDot(rgb), pterm.Bold.Sprint(util.FirstOrDash(view.Service, endpoint)), rgb.Sprint(label))

	version := util.OrDash(view.Version)
	if view.Version != "" && !view.Compatible {
		version += fmt.Sprintf(" (supported: %s)", illustraitor.SupportedServiceVersions)
	}
	pterm.Printf("    %-10s %s\n", "Endpoint", endpoint)
	pterm.Printf("    %-10s %s\n", "Version", version)
	pterm.Printf("    %-10s %s\n", "Features", util.JoinOrDash(view.Features...))
	pterm.Println()
}

// --- Cobra wiring ---

var healthCmd = &cobra.Command{
	Use:     "health",
	Aliases: []string{"status"},
	Short:   "Check that the image service is up",
	Args:    cobra.NoArgs,
	RunE:    runHealth,
}

func init() {
	healthCmd.Flags().StringP("output", "o", "", "Output format (json)")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	app := getApp(cmd)
	output, _ := cmd.Flags().GetString("output")

	h := HealthCmd{checker: app.Adapter, endpoint: app.Client.BaseURL()}
	return h.Run(cmd.Context(), HealthInput{Output: output})
}
