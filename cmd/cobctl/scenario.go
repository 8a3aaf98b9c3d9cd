package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brambleworks/cob/pkg/scenario"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Parse and run literate scenario files",
}

var scenarioRunCmd = &cobra.Command{
	Use:   "run FILE...",
	Short: "Parse one or more scenario files and run their assertions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		var tests []scenario.Test
		for _, path := range args {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			parsed, err := scenario.Parse(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}
			tests = append(tests, parsed...)
		}

		assertions := 0
		for _, t := range tests {
			assertions += len(t.Assertions)
		}
		fmt.Printf("Parsed %d test(s), %d assertion(s)\n", len(tests), assertions)

		runner := &scenario.Runner{Dir: dir}
		if err := runner.Run(tests); err != nil {
			return fmt.Errorf("scenario failed: %w", err)
		}

		fmt.Println("All assertions passed")
		return nil
	},
}

func init() {
	scenarioRunCmd.Flags().String("dir", ".", "Working directory commands run in")

	scenarioCmd.AddCommand(scenarioRunCmd)
}
