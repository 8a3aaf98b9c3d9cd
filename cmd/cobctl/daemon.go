package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/brambleworks/cob/pkg/cob/issue"
	"github.com/brambleworks/cob/pkg/cob/patch"
	"github.com/brambleworks/cob/pkg/cobmetrics"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Serve Prometheus metrics for the local stores",
	Long: `Periodically refreshes the object-count gauge for every known COB
type and serves it, alongside the append/fold/node-call counters the
store and node client already record, on a /metrics endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
		addr, _ := cmd.Flags().GetString("metrics-addr")

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

		collector := cobmetrics.NewCollector(func() (map[string]int, error) {
			counts := make(map[string]int, 2)

			allPatches, err := patches.All()
			if err != nil {
				return nil, err
			}
			counts[patch.TypeName] = len(allPatches)

			allIssues, err := issues.All()
			if err != nil {
				return nil, err
			}
			counts[issue.TypeName] = len(allIssues)

			return counts, nil
		})
		collector.Start(15 * time.Second)
		defer collector.Stop()

		http.Handle("/metrics", cobmetrics.Handler())
		errCh := make(chan error, 1)
		go func() {
			if err := http.ListenAndServe(addr, nil); err != nil {
				errCh <- fmt.Errorf("metrics server error: %v", err)
			}
		}()
		fmt.Printf("Metrics endpoint: http://%s/metrics\n", addr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			return err
		}
		return nil
	},
}

func init() {
	daemonCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address the metrics HTTP server listens on")
}
