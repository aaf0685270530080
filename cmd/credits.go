package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/illustraitor/cli/internal/adapter"
	"github.com/illustraitor/cli/pkg/table"
	"github.com/illustraitor/cli/pkg/util"
)

// CreditService is the part of the adapter that deals with the balance.
type CreditService interface {
	CheckCredits(ctx context.Context) (adapter.CreditsView, error)
	TopUp(ctx context.Context, n int) (adapter.CreditsView, error)
	WatchCredits(ctx context.Context, interval time.Duration) error
}

// CreditsCmd handles credit balance operations.
type CreditsCmd struct {
	credits CreditService
	// onWatch is called before a watch starts.
	onWatch func()
}

// CreditsCheckInput holds input for a balance check.
type CreditsCheckInput struct {
	Output string
}

type creditsJSON struct {
	Credits int    `json:"credits"`
	Name    string `json:"name,omitempty"`
	Cached  bool   `json:"cached"`
}

// Check asks the service for the balance of the saved key.
func (c CreditsCmd) Check(ctx context.Context, in CreditsCheckInput) error {
	view, err := c.credits.CheckCredits(ctx)
	if err != nil {
		return apiError(err)
	}

	if in.Output == "json" {
		return util.PrintJSON(creditsJSON{Credits: view.Credits, Name: view.Name, Cached: view.Cached})
	}

	rows := table.PropertyRows()
	rows = append(rows, []string{"Credits", strconv.Itoa(view.Credits)})
	rows = append(rows, []string{"Name", util.OrDash(view.Name)})
	table.PrintTableNoPad(rows, true)
	return nil
}

// CreditsWatchInput holds input for watching the balance.
type CreditsWatchInput struct {
	Interval time.Duration
}

// Watch refreshes the balance every interval until ctx is cancelled.
func (c CreditsCmd) Watch(ctx context.Context, in CreditsWatchInput) error {
	if c.onWatch != nil {
		c.onWatch()
	}
	pterm.Info.Printfln("Refreshing credits every %s. Press Ctrl+C to stop.", in.Interval)
	return c.credits.WatchCredits(ctx, in.Interval)
}

// CreditsTopUpInput holds input for adding credits.
type CreditsTopUpInput struct {
	Amount int
}

// TopUp adds credits to the locally cached balance.
func (c CreditsCmd) TopUp(ctx context.Context, in CreditsTopUpInput) error {
	if _, err := c.credits.TopUp(ctx, in.Amount); err != nil {
		return apiError(err)
	}
	pterm.Info.Println("The service's figure replaces this on the next `illustraitor credits check`.")
	return nil
}

// --- Cobra wiring ---

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Check and refresh your credit balance",
	Long:  "Commands for the credit balance of the saved API key",
}

var creditsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Show the current balance",
	Long:  "Ask the service for the balance of the saved key and update the cached value",
	Args:  cobra.NoArgs,
	RunE:  runCreditsCheck,
}

var creditsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep refreshing the balance",
	Long:  "Refresh the balance on a fixed interval until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runCreditsWatch,
}

var creditsTopUpCmd = &cobra.Command{
	Use:   "topup <amount>",
	Short: "Add credits to the cached balance",
	Long:  "Add free credits to the locally cached balance. Paid plans are not available from the CLI.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreditsTopUp,
}

func init() {
	creditsCmd.AddCommand(creditsCheckCmd)
	creditsCmd.AddCommand(creditsWatchCmd)
	creditsCmd.AddCommand(creditsTopUpCmd)

	creditsCheckCmd.Flags().StringP("output", "o", "", "Output format (json)")
	creditsWatchCmd.Flags().Duration("interval", adapter.DefaultWatchInterval, "Time between refreshes, in whole seconds (minimum 1s)")

	rootCmd.AddCommand(creditsCmd)
}

func runCreditsCheck(cmd *cobra.Command, args []string) error {
	app := getApp(cmd)
	output, _ := cmd.Flags().GetString("output")

	c := CreditsCmd{credits: app.Adapter}
	return c.Check(cmd.Context(), CreditsCheckInput{Output: output})
}

func runCreditsWatch(cmd *cobra.Command, args []string) error {
	app := getApp(cmd)
	interval, _ := cmd.Flags().GetDuration("interval")

	c := CreditsCmd{credits: app.Adapter, onWatch: app.Renderer.ReportErrors}
	return c.Watch(cmd.Context(), CreditsWatchInput{Interval: interval})
}

func runCreditsTopUp(cmd *cobra.Command, args []string) error {
	app := getApp(cmd)
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("amount must be a whole number, got %q", args[0])
	}

	c := CreditsCmd{credits: app.Adapter}
	return c.TopUp(cmd.Context(), CreditsTopUpInput{Amount: n})
}
