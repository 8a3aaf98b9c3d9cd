package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/cob/issue"
	"github.com/brambleworks/cob/pkg/cob/patch"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Create objects from a YAML manifest",
	Long: `Apply a manifest describing one collaborative object (an Issue or a
Patch) and create it.

Examples:
  cobctl apply -f issue.yaml
  cobctl apply -f patch.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML manifest to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

// Manifest is a generic object manifest: Kind selects which COB type the
// Spec fields are interpreted against.
type Manifest struct {
	Kind string                 `yaml:"kind"`
	Name string                 `yaml:"name"`
	Spec map[string]interface{} `yaml:"spec"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to parse manifest: %w", err)
	}

	dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
	keyPath, _ := rootCmd.PersistentFlags().GetString("key")
	signer, err := loadSigner(keyPath)
	if err != nil {
		return err
	}

	switch m.Kind {
	case "Issue":
		return applyIssue(dataDir, &m, signer)
	case "Patch":
		return applyPatch(dataDir, &m, signer)
	default:
		return fmt.Errorf("unsupported manifest kind: %s", m.Kind)
	}
}

func applyIssue(dataDir string, m *Manifest, signer cob.Signer) error {
	issues, closeFn, err := openIssues(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open issue store: %w", err)
	}
	defer closeFn()

	id, st, _, err := issues.Create(m.Name, time.Now().Unix(), signer)
	if err != nil {
		return fmt.Errorf("failed to create issue: %w", err)
	}
	fmt.Printf("Issue created: %s (%s)\n", id, st.Title())

	if labels := stringSlice(m.Spec, "labels"); len(labels) > 0 {
		mut, err := issues.Mut(id, signer)
		if err != nil {
			return fmt.Errorf("failed to open issue for editing: %w", err)
		}
		tags := make([]issue.Tag, 0, len(labels))
		for _, l := range labels {
			tags = append(tags, issue.Tag(l))
		}
		if err := mut.Tag(tags, nil, time.Now().Unix()); err != nil {
			return fmt.Errorf("failed to tag issue: %w", err)
		}
	}
	return nil
}

func applyPatch(dataDir string, m *Manifest, signer cob.Signer) error {
	baseStr := getString(m.Spec, "base", "")
	headStr := getString(m.Spec, "head", "")
	description := getString(m.Spec, "description", "")

	base, err := cob.ParseOid(baseStr)
	if err != nil {
		return fmt.Errorf("invalid spec.base: %w", err)
	}
	head, err := cob.ParseOid(headStr)
	if err != nil {
		return fmt.Errorf("invalid spec.head: %w", err)
	}

	patches, closeFn, err := openPatches(dataDir)
	if err != nil {
		return fmt.Errorf("failed to open patch store: %w", err)
	}
	defer closeFn()

	id, st, _, err := patches.Create(m.Name, description, patch.TargetDelegates, base, head, time.Now().Unix(), signer)
	if err != nil {
		return fmt.Errorf("failed to create patch: %w", err)
	}
	fmt.Printf("Patch created: %s (%s)\n", id, st.Title())
	return nil
}

func getString(m map[string]interface{}, key, defaultValue string) string {
	if v, ok := m[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return defaultValue
}

func stringSlice(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, fmt.Sprintf("%v", v))
	}
	return out
}
