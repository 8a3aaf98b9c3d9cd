// Command cobctl is an operator CLI over a local collaborative-object
// store: creating and inspecting patches and issues, managing a signing
// identity, talking to a running node over its handle socket, and
// replaying literate scenario files against either.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brambleworks/cob/pkg/cob/boltstore"
	"github.com/brambleworks/cob/pkg/cob/issue"
	"github.com/brambleworks/cob/pkg/cob/patch"
	"github.com/brambleworks/cob/pkg/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "cobctl",
	Short:   "Inspect and drive a collaborative-object store",
	Version: "dev",
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("data-dir", "./cob-data", "Directory holding the bbolt database files for each COB type")
	rootCmd.PersistentFlags().String("key", "./cobctl.key", "Path to this identity's ed25519 seed file")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(patchCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(scenarioCmd)
	rootCmd.AddCommand(daemonCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// openPatches opens the Patch COB type's bbolt-backed store under dataDir.
func openPatches(dataDir string) (*patch.Patches, func() error, error) {
	raw, err := boltstore.Open(dataDir+"/patch.db", patch.TypeName)
	if err != nil {
		return nil, nil, err
	}
	return patch.Open(raw), raw.Close, nil
}

// openIssues opens the Issue COB type's bbolt-backed store under dataDir.
func openIssues(dataDir string) (*issue.Issues, func() error, error) {
	raw, err := boltstore.Open(dataDir+"/issue.db", issue.TypeName)
	if err != nil {
		return nil, nil, err
	}
	return issue.Open(raw), raw.Close, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
