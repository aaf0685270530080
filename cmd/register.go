package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/illustraitor/cli/pkg/illustraitor"
	"github.com/illustraitor/cli/pkg/table"
	"github.com/illustraitor/cli/pkg/util"
)

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, email, name string) (*illustraitor.Registration, error)
}

// RegisterCmd handles account registration.
type RegisterCmd struct {
	registrar Registrar
}

// RegisterInput holds input for a registration.
type RegisterInput struct {
	Email  string
	Name   string
	Output string
}

// Run registers an account. The new key and balance are saved locally.
func (r RegisterCmd) Run(ctx context.Context, in RegisterInput) error {
	reg, err := r.registrar.Register(ctx, in.Email, in.Name)
	if err != nil {
		return apiError(err)
	}

	if in.Output == "json" {
		return util.PrintPrettyJSON(reg)
	}

	rows := table.PropertyRows()
	rows = append(rows, []string{"User ID", util.OrDash(string(reg.UserID))})
	rows = append(rows, []string{"API key", illustraitor.MaskKey(reg.APIKey)})
	rows = append(rows, []string{"Credits", strconv.Itoa(reg.Credits)})
	table.PrintTableNoPad(rows, true)
	return nil
}

// --- Cobra wiring ---

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and save its API key",
	Long:  "Create an account with the service. The new API key is saved and comes with free credits.",
	Example: `  illustraitor register --email you@example.com --name "Ada"`,
	Args:    cobra.NoArgs,
	RunE:    runRegister,
}

func init() {
	registerCmd.Flags().String("email", "", "Account email address")
	registerCmd.Flags().String("name", "", "Display name (default \"User\")")
	registerCmd.Flags().StringP("output", "o", "", "Output format (json)")
	_ = registerCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	app := getApp(cmd)
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	output, _ := cmd.Flags().GetString("output")

	if name == "" {
		name = "User"
	}
	r := RegisterCmd{registrar: app.Adapter}
	return r.Run(cmd.Context(), RegisterInput{Email: email, Name: name, Output: output})
}
