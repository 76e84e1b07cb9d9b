package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/strongdm/raven/pkg/raven"
)

var (
	simulateMessage string
	replayWait      time.Duration
)

func init() {
	crashesSimulateCmd.Flags().StringVar(&simulateMessage, "message", "simulated crash", "panic value of the synthetic crash")
	crashesReplayCmd.Flags().DurationVar(&replayWait, "wait", 30*time.Second, "how long to wait for replayed events to be delivered")

	crashesCmd.AddCommand(crashesListCmd)
	crashesCmd.AddCommand(crashesReplayCmd)
	crashesCmd.AddCommand(crashesPurgeCmd)
	crashesCmd.AddCommand(crashesSimulateCmd)
	rootCmd.AddCommand(crashesCmd)
}

var crashesCmd = &cobra.Command{
	Use:   "crashes",
	Short: "Inspect and manage the crash directory",
}

var crashesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List crashes waiting for replay",
	Args:  cobra.NoArgs,
	RunE:  runCrashesList,
}

func runCrashesList(cmd *cobra.Command, args []string) error {
	store := raven.NewCrashStore(resolveCrashDir())
	paths, err := store.Pending()
	if err != nil {
		return fmt.Errorf("failed to list crashes: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(paths) == 0 {
		fmt.Fprintf(out, "No crashes in %s.\n", store.Dir())
		return nil
	}

	fmt.Fprintf(out, "%-34s %-20s %s\n", "FILE", "TYPE", "MESSAGE")
	for _, path := range paths {
		f, err := store.Load(path)
		if err != nil {
			fmt.Fprintf(out, "%-34s %-20s %s\n", filepath.Base(path), "?", err)
			continue
		}
		fmt.Fprintf(out, "%-34s %-20s %s\n", filepath.Base(path), truncate(f.Type, 20), truncate(f.Message, 60))
	}
	return nil
}

var crashesReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Send every persisted crash as a fatal event and clear the directory",
	Args:  cobra.NoArgs,
	RunE:  runCrashesReplay,
}

func runCrashesReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.CrashDir == "" {
		cfg.CrashDir = resolveCrashDir()
	}

	pending, err := raven.NewCrashStore(cfg.CrashDir).Pending()
	if err != nil {
		return fmt.Errorf("failed to list crashes: %w", err)
	}

	// Constructing the client replays the directory.
	client, err := newClient(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), replayWait)
	defer cancel()
	if err := client.Flush(ctx); err != nil {
		return fmt.Errorf("replay did not finish: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d crash(es) from %s.\n", len(pending), cfg.CrashDir)
	return nil
}

var crashesPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every persisted crash without sending it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := raven.NewCrashStore(resolveCrashDir())
		n := store.Purge()
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d crash(es) from %s.\n", n, store.Dir())
		return nil
	},
}

var crashesSimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Persist a synthetic crash through the real crash path",
	Long: "Panics on a guarded goroutine stack with a crash interceptor installed, exactly as an " +
		"unrecovered panic would, then stops the re-panic so the command can exit cleanly.",
	Args: cobra.NoArgs,
	RunE: runCrashesSimulate,
}

func runCrashesSimulate(cmd *cobra.Command, args []string) error {
	store := raven.NewCrashStore(resolveCrashDir())
	chain := raven.NewHandlerChain()
	chain.Install(raven.NewCrashInterceptor(store, nil))

	before, err := store.Pending()
	if err != nil {
		return fmt.Errorf("failed to list crashes: %w", err)
	}

	func() {
		defer func() { _ = recover() }()
		defer chain.Recover()
		panic(simulateMessage)
	}()

	after, err := store.Pending()
	if err != nil {
		return fmt.Errorf("failed to list crashes: %w", err)
	}
	if len(after) <= len(before) {
		return fmt.Errorf("crash was not persisted to %s", store.Dir())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Persisted crash to %s.\n", after[len(after)-1])
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
