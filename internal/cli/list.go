package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var listWait time.Duration

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "get"},
	Short:   "List the items held by the service",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().DurationVar(&listWait, "wait", DefaultWait, "How long to wait for the service connection")
}

func runList(cmd *cobra.Command, args []string) error {
	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	out := newConsoleSink(os.Stdout)
	sup := sess.supervise(out)
	defer sup.Shutdown()

	if err := waitReady(cmd.Context(), sup, listWait); err != nil {
		out.result("get", err)
		return errReported
	}

	items, err := sup.ListItems(cmd.Context())
	out.result("get", err)
	if err != nil {
		return errReported
	}

	if len(items) == 0 {
		out.plain(styleHint.Render("  No items."))
		return nil
	}
	for i, item := range items {
		out.plain(fmt.Sprintf("  %s  %s = %s",
			styleLabel.Render(fmt.Sprintf("%3d", i+1)),
			styleValue.Render(item.Name),
			styleVersion.Render(fmt.Sprintf("%d", item.Value)),
		))
	}
	return nil
}
