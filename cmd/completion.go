package cmd

import (
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Print a shell completion script",
	Long: `Print a completion script for illustraitor commands and flags.

Try it in the current shell:
  bash:        source <(illustraitor completion bash)
  zsh:         source <(illustraitor completion zsh)
  fish:        illustraitor completion fish | source
  powershell:  illustraitor completion powershell | Out-String | Invoke-Expression

Install it for new shells by writing the script where your shell looks for
completions, for example:
  illustraitor completion zsh > "${fpath[1]}/_illustraitor"
  illustraitor completion fish > ~/.config/fish/completions/illustraitor.fish
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
