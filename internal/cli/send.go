package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/strongdm/raven/pkg/raven"
)

var (
	sendLevel  string
	errorLevel string
	sendWait   time.Duration
)

func init() {
	sendCmd.Flags().StringVar(&sendLevel, "level", "info", "event level (fatal, error, warning, info, debug)")
	sendCmd.Flags().DurationVar(&sendWait, "wait", 10*time.Second, "how long to wait for delivery")
	captureErrorCmd.Flags().StringVar(&errorLevel, "level", "error", "event level (fatal, error, warning, info, debug)")
	captureErrorCmd.Flags().DurationVar(&sendWait, "wait", 10*time.Second, "how long to wait for delivery")

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(captureErrorCmd)
}

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a message event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return capture(cmd, sendLevel, func(ctx context.Context, c *raven.Client, level raven.Level) string {
			return c.CaptureMessageLevel(ctx, args[0], level)
		})
	},
}

var captureErrorCmd = &cobra.Command{
	Use:   "capture-error <text>",
	Short: "Send an error event with the current stack",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return capture(cmd, errorLevel, func(ctx context.Context, c *raven.Client, level raven.Level) string {
			return c.CaptureErrorLevel(ctx, raven.WithStack(errors.New(args[0])), level)
		})
	},
}

// capture builds a client, runs fn and waits for the delivery.
func capture(cmd *cobra.Command, levelName string, fn func(context.Context, *raven.Client, raven.Level) string) error {
	level, err := raven.ParseLevel(levelName)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	id := fn(ctx, client, level)

	flushCtx, cancel := context.WithTimeout(ctx, sendWait)
	defer cancel()
	if err := client.Flush(flushCtx); err != nil {
		return fmt.Errorf("delivery did not finish: %w", err)
	}

	if id == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "Event withheld.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}
