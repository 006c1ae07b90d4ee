package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tether-io/tether/internal/link"
	"github.com/tether-io/tether/internal/models"
)

// DefaultWait bounds how long one-shot commands wait for the connection.
const DefaultWait = 10 * time.Second

var addWait time.Duration

var addCmd = &cobra.Command{
	Use:   "add [name value]",
	Short: "Add an item to the service",
	Long: `Add an item to the service. Without arguments a random item is
generated, named s<0..999> with a value in 0..19.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected no arguments or <name> <value>, got %d", len(args))
		}
		return nil
	},
	RunE: runAdd,
}

func init() {
	addCmd.Flags().DurationVar(&addWait, "wait", DefaultWait, "How long to wait for the service connection")
}

func parseItem(args []string) (models.Item, error) {
	if len(args) == 0 {
		return models.RandomItem(), nil
	}
	value, err := strconv.Atoi(args[1])
	if err != nil {
		return models.Item{}, fmt.Errorf("invalid value %q: %w", args[1], err)
	}
	return models.NewItem(args[0], value), nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	item, err := parseItem(args)
	if err != nil {
		return err
	}

	sess, err := openSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	out := newConsoleSink(os.Stdout)
	sup := sess.supervise(out)
	defer sup.Shutdown()

	if err := waitReady(cmd.Context(), sup, addWait); err != nil {
		out.result("add "+item.String(), err)
		return errReported
	}

	err = sup.AddItem(cmd.Context(), item)
	out.result("add "+item.String(), err)
	if err != nil {
		return errReported
	}
	return nil
}

// waitReady blocks until the supervisor is Ready or wait elapses. A
// timeout is reported as link.ErrNotReady.
func waitReady(ctx context.Context, sup *link.Supervisor, wait time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	if err := sup.WaitReady(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return link.ErrNotReady
		}
		return err
	}
	return nil
}
