package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tether-io/tether/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Aliases: []string{"v"},
	Short:   "Show version information",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("  %s %s %s\n",
			styleBrand.Render("tether"),
			styleVersion.Render(buildinfo.Version),
			styleHint.Render("("+buildinfo.Codename+")"),
		)
		for _, f := range buildinfo.Fields() {
			fmt.Printf("    %s %s\n", styleLabel.Render(fmt.Sprintf("%-8s", f.Label)), styleValue.Render(f.Value))
		}
	},
}
