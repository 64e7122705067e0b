package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stepgrid/pkg/layout"
	"github.com/matzehuels/stepgrid/pkg/scene"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for stepgrid.

Completion knows the stepgrid vocabulary: document arguments complete to
.json files, and --format, --dir, --type and --children offer their valid
values.

  bash:        source <(stepgrid completion bash)
  zsh:         stepgrid completion zsh > "${fpath[1]}/_stepgrid"
  fish:        stepgrid completion fish > ~/.config/fish/completions/stepgrid.fish
  powershell:  stepgrid completion powershell | Out-String | Invoke-Expression

Open a new shell afterwards for the completions to load.`,
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

	return cmd
}

// flagChoices lists the fixed values of enum-like flags, by flag name.
func flagChoices() map[string][]string {
	choices := map[string][]string{
		"format":   {"text", "json"},
		"children": {"ask", "delete", "keep"},
	}
	for _, d := range layout.Directions {
		choices["dir"] = append(choices["dir"], string(d))
	}
	for _, s := range scene.ShapeTypes {
		choices["type"] = append(choices["type"], string(s))
	}
	return choices
}

// registerCompletions walks the command tree and attaches document-file
// completion to every command taking a <doc.json> argument, and value
// completion to every enum-like flag.
func registerCompletions(cmd *cobra.Command) {
	registerCompletionsWith(cmd, flagChoices())
}

func registerCompletionsWith(cmd *cobra.Command, choices map[string][]string) {
	if strings.Contains(cmd.Use, "<doc.json>") && cmd.ValidArgsFunction == nil {
		cmd.ValidArgsFunction = completeDocument
	}
	for name, values := range choices {
		if cmd.LocalNonPersistentFlags().Lookup(name) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, completeChoices(values))
	}
	for _, sub := range cmd.Commands() {
		registerCompletionsWith(sub, choices)
	}
}

// completeDocument offers .json files for the first positional argument.
func completeDocument(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"json"}, cobra.ShellCompDirectiveFilterFileExt
}

// completeChoices completes a flag to a fixed list. Comma-separated flags
// such as --format complete the element after the last comma.
func completeChoices(choices []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		prefix := ""
		if i := strings.LastIndex(toComplete, ","); i >= 0 {
			prefix, toComplete = toComplete[:i+1], toComplete[i+1:]
		}
		var out []string
		for _, c := range choices {
			if strings.HasPrefix(c, toComplete) {
				out = append(out, prefix+c)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}
