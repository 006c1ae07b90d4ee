package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tether-io/tether/internal/buildinfo"
)

// versionCmd prints one key=value line so it can be grepped from logs.
var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Show version information",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		parts := []string{"tetherd", "version=" + buildinfo.Version, "codename=" + buildinfo.Codename}
		for _, f := range buildinfo.Fields() {
			parts = append(parts, strings.ToLower(strings.ReplaceAll(f.Label, "/", "_"))+"="+f.Value)
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
