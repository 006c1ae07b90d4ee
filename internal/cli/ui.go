package cli

import (
	"github.com/spf13/cobra"

	"github.com/tether-io/tether/internal/link"
	"github.com/tether-io/tether/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive client",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return err
		}
		defer sess.Close()

		return tui.Run(func(sink link.StatusSink) (tui.Client, error) {
			return sess.supervise(sink), nil
		})
	},
}
