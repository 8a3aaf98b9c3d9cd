package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brambleworks/cob/pkg/events"
)

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Stream object.created/entry.appended events as they happen",
	Long: `Subscribes to the patch and issue stores' event broker and
prints each write as it lands, until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")

		patches, closePatches, err := openPatches(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open patch store: %w", err)
		}
		defer closePatches()

		issues, closeIssues, err := openIssues(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open issue store: %w", err)
		}
		defer closeIssues()

		broker := events.NewBroker()
		broker.Start()
		defer broker.Stop()

		patches.SetEventSink(broker)
		issues.SetEventSink(broker)

		sub := broker.Subscribe()
		defer broker.Unsubscribe(sub)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		fmt.Println("Following events, Ctrl-C to stop...")
		for {
			select {
			case ev := <-sub:
				fmt.Printf("%s %-16s %-12s %s\n", ev.Timestamp.Format("15:04:05"), ev.TypeName, ev.Type, ev.Message)
			case <-sigCh:
				fmt.Println("\nStopped")
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(followCmd)
}
