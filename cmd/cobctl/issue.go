package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/cob/issue"
	"github.com/brambleworks/cob/pkg/cob/thread"
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage issues",
}

var issueCreateCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Open a new issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
		keyPath, _ := rootCmd.PersistentFlags().GetString("key")

		issues, closeFn, err := openIssues(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open issue store: %w", err)
		}
		defer closeFn()

		signer, err := loadSigner(keyPath)
		if err != nil {
			return err
		}

		id, st, _, err := issues.Create(args[0], time.Now().Unix(), signer)
		if err != nil {
			return fmt.Errorf("failed to create issue: %w", err)
		}

		fmt.Printf("Issue created: %s\n", id)
		fmt.Printf("  Title: %s\n", st.Title())
		return nil
	},
}

var issueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
		openOnly, _ := cmd.Flags().GetBool("open")

		issues, closeFn, err := openIssues(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open issue store: %w", err)
		}
		defer closeFn()

		var all map[cob.ObjectId]*issue.Issue
		if openOnly {
			all, err = issues.OpenIssues()
		} else {
			all, err = issues.All()
		}
		if err != nil {
			return fmt.Errorf("failed to list issues: %w", err)
		}

		if len(all) == 0 {
			fmt.Println("No issues found")
			return nil
		}

		fmt.Printf("%-18s %-10s %s\n", "ID", "STATE", "TITLE")
		for id, st := range all {
			fmt.Printf("%-18s %-10s %s\n", truncate(id.String(), 18), st.State().Kind, st.Title())
		}
		return nil
	},
}

func init() {
	issueListCmd.Flags().Bool("open", false, "Only list open issues")
}

var issueShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show an issue's current state and discussion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cob.ParseEntryId(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue id: %w", err)
		}

		dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
		issues, closeFn, err := openIssues(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open issue store: %w", err)
		}
		defer closeFn()

		st, _, err := issues.Get(id)
		if err != nil {
			return fmt.Errorf("failed to get issue: %w", err)
		}

		fmt.Printf("Issue: %s\n", st.Title())
		fmt.Printf("  ID: %s\n", id)
		fmt.Printf("  State: %s\n", st.State().Kind)
		if st.State().Reason != "" {
			fmt.Printf("  Reason: %s\n", st.State().Reason)
		}
		if tags := st.Tags(); len(tags) > 0 {
			names := make([]string, len(tags))
			for i, t := range tags {
				names[i] = string(t)
			}
			fmt.Printf("  Tags: %s\n", strings.Join(names, ", "))
		}
		if assignees := st.Assignees(); len(assignees) > 0 {
			fmt.Println("  Assignees:")
			for _, a := range assignees {
				fmt.Printf("    %s\n", a)
			}
		}

		discussion := st.Discussion()
		if discussion.Len() > 0 {
			fmt.Println("  Discussion:")
			discussion.Iter(func(cid thread.CommentId, c thread.Comment) {
				fmt.Printf("    %s: %s\n", c.Author, c.Body.Get().Value)
			})
		}
		return nil
	},
}

var issueCommentCmd = &cobra.Command{
	Use:   "comment ID BODY",
	Short: "Post a comment on an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cob.ParseEntryId(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue id: %w", err)
		}

		dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
		keyPath, _ := rootCmd.PersistentFlags().GetString("key")

		issues, closeFn, err := openIssues(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open issue store: %w", err)
		}
		defer closeFn()

		signer, err := loadSigner(keyPath)
		if err != nil {
			return err
		}

		mut, err := issues.Mut(id, signer)
		if err != nil {
			return fmt.Errorf("failed to open issue for editing: %w", err)
		}
		if err := mut.Comment(args[1], nil, time.Now().Unix()); err != nil {
			return fmt.Errorf("failed to post comment: %w", err)
		}

		fmt.Println("Comment posted")
		return nil
	},
}

var issueCloseCmd = &cobra.Command{
	Use:   "close ID REASON",
	Short: "Close an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cob.ParseEntryId(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue id: %w", err)
		}

		dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir")
		keyPath, _ := rootCmd.PersistentFlags().GetString("key")

		issues, closeFn, err := openIssues(dataDir)
		if err != nil {
			return fmt.Errorf("failed to open issue store: %w", err)
		}
		defer closeFn()

		signer, err := loadSigner(keyPath)
		if err != nil {
			return err
		}

		mut, err := issues.Mut(id, signer)
		if err != nil {
			return fmt.Errorf("failed to open issue for editing: %w", err)
		}
		if err := mut.Close(args[1], time.Now().Unix()); err != nil {
			return fmt.Errorf("failed to close issue: %w", err)
		}

		fmt.Printf("Issue closed: %s\n", args[1])
		return nil
	},
}

func init() {
	issueCmd.AddCommand(issueCreateCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueCommentCmd)
	issueCmd.AddCommand(issueCloseCmd)
}
