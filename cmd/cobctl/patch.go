package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/cob/patch"
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Manage patches",
}

var patchCreateCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Propose a new patch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseStr, _ := cmd.Flags().GetString("base")
		headStr, _ := cmd.Flags().GetString("head")
		description, _ := cmd.Flags().GetString("description")

		base, err := cob.ParseOid(baseStr)
		if err != nil {
			return fmt.Errorf("invalid --base: %w", err)
		}
		head, err := cob.ParseOid(headStr)
		if err != nil {
			return fmt.Errorf("invalid --head: %w", err)
		}

		dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
		keyPath, _ := rootCmd.PersistentFlags().GetString("key")

		patches, closeFn, err := openPatches(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open patch store: %w", err)
		}
		defer closeFn()

		signer, err := loadSigner(keyPath)
		if err != nil {
			return err
		}

		id, st, _, err := patches.Create(args[0], description, patch.TargetDelegates, base, head, time.Now().Unix(), signer)
		if err != nil {
			return fmt.Errorf("failed to create patch: %w", err)
		}

		fmt.Printf("Patch created: %s\n", id)
		fmt.Printf("  Title: %s\n", st.Title())
		fmt.Printf("  %s..%s\n", base, head)
		return nil
	},
}

var patchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patches",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
		proposedOnly, _ := cmd.Flags().GetBool("proposed")

		patches, closeFn, err := openPatches(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open patch store: %w", err)
		}
		defer closeFn()

		var all map[cob.ObjectId]*patch.Patch
		if proposedOnly {
			all, err = patches.Proposed()
		} else {
			all, err = patches.All()
		}
		if err != nil {
			return fmt.Errorf("failed to list patches: %w", err)
		}

		if len(all) == 0 {
			fmt.Println("No patches found")
			return nil
		}

		fmt.Printf("%-18s %-10s %-8s %s\n", "ID", "STATE", "VERSION", "TITLE")
		for id, st := range all {
			fmt.Printf("%-18s %-10s %-8d %s\n", truncate(id.String(), 18), st.State(), st.Version(), st.Title())
		}
		return nil
	},
}

func init() {
	patchCreateCmd.Flags().String("base", "", "Base git commit (40-char hex)")
	patchCreateCmd.Flags().String("head", "", "Head git commit (40-char hex)")
	patchCreateCmd.Flags().String("description", "", "Description of the first revision")
	patchCreateCmd.MarkFlagRequired("base")
	patchCreateCmd.MarkFlagRequired("head")

	patchListCmd.Flags().Bool("proposed", false, "Only list proposed patches")
}

var patchShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a patch's current state and revisions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cob.ParseEntryId(args[0])
		if err != nil {
			return fmt.Errorf("invalid patch id: %w", err)
		}

		dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
		patches, closeFn, err := openPatches(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open patch store: %w", err)
		}
		defer closeFn()

		st, _, err := patches.Get(id)
		if err != nil {
			return fmt.Errorf("failed to get patch: %w", err)
		}

		fmt.Printf("Patch: %s\n", st.Title())
		fmt.Printf("  ID: %s\n", id)
		fmt.Printf("  State: %s\n", st.State())
		fmt.Printf("  Revisions: %d\n", st.RevisionCount())
		if rev, r, ok := st.Latest(); ok {
			fmt.Printf("  Latest revision: %s\n", rev)
			fmt.Printf("    %s\n", r.Description.Get().Value)
		}
		return nil
	},
}

var patchReviewCmd = &cobra.Command{
	Use:   "review ID REVISION VERDICT",
	Short: "Post a review (accept|reject) against a revision",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cob.ParseEntryId(args[0])
		if err != nil {
			return fmt.Errorf("invalid patch id: %w", err)
		}
		revision, err := cob.ParseEntryId(args[1])
		if err != nil {
			return fmt.Errorf("invalid revision id: %w", err)
		}
		var verdict patch.Verdict
		switch args[2] {
		case "accept":
			verdict = patch.VerdictAccept
		case "reject":
			verdict = patch.VerdictReject
		default:
			return fmt.Errorf("verdict must be 'accept' or 'reject'")
		}
		comment, _ := cmd.Flags().GetString("comment")

		dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
		keyPath, _ := rootCmd.PersistentFlags().GetString("key")

		patches, closeFn, err := openPatches(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open patch store: %w", err)
		}
		defer closeFn()

		signer, err := loadSigner(keyPath)
		if err != nil {
			return err
		}

		mut, err := patches.Mut(id, signer)
		if err != nil {
			return fmt.Errorf("failed to open patch for editing: %w", err)
		}

		var commentPtr *string
		if comment != "" {
			commentPtr = &comment
		}
		if err := mut.Review(revision, &verdict, commentPtr, nil, time.Now().Unix()); err != nil {
			return fmt.Errorf("failed to post review: %w", err)
		}

		fmt.Printf("Review posted: %s\n", verdict)
		return nil
	},
}

var patchMergeCmd = &cobra.Command{
	Use:   "merge ID REVISION COMMIT",
	Short: "Record that a revision was merged",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cob.ParseEntryId(args[0])
		if err != nil {
			return fmt.Errorf("invalid patch id: %w", err)
		}
		revision, err := cob.ParseEntryId(args[1])
		if err != nil {
			return fmt.Errorf("invalid revision id: %w", err)
		}
		commit, err := cob.ParseOid(args[2])
		if err != nil {
			return fmt.Errorf("invalid commit: %w", err)
		}

		dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
		keyPath, _ := rootCmd.PersistentFlags().GetString("key")

		patches, closeFn, err := openPatches(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open patch store: %w", err)
		}
		defer closeFn()

		signer, err := loadSigner(keyPath)
		if err != nil {
			return err
		}

		mut, err := patches.Mut(id, signer)
		if err != nil {
			return fmt.Errorf("failed to open patch for editing: %w", err)
		}
		if err := mut.Merge(revision, commit, time.Now().Unix()); err != nil {
			return fmt.Errorf("failed to record merge: %w", err)
		}

		fmt.Printf("Patch merged at %s\n", commit)
		return nil
	},
}

func init() {
	patchReviewCmd.Flags().String("comment", "", "Optional review comment")

	patchCmd.AddCommand(patchCreateCmd)
	patchCmd.AddCommand(patchListCmd)
	patchCmd.AddCommand(patchShowCmd)
	patchCmd.AddCommand(patchReviewCmd)
	patchCmd.AddCommand(patchMergeCmd)
}
