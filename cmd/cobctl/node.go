package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brambleworks/cob/pkg/cob"
	"github.com/brambleworks/cob/pkg/log"
	"github.com/brambleworks/cob/pkg/node"
)

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Talk to a running node over its handle socket",
}

func dialNode(cmd *cobra.Command) *node.Node {
	socket, _ := cmd.Flags().GetString("socket")
	return node.New(socket, log.WithComponent("node"))
}

var nodeConnectCmd = &cobra.Command{
	Use:   "connect ID ADDRESS",
	Short: "Connect to a peer node",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := cob.ParsePublicKey(args[0])
		if err != nil {
			return fmt.Errorf("invalid node id: %w", err)
		}

		n := dialNode(cmd)
		if err := n.Connect(id, args[1]); err != nil {
			return fmt.Errorf("connect failed: %w", err)
		}
		fmt.Printf("Connected to %s at %s\n", id, args[1])
		return nil
	},
}

var nodeSeedsCmd = &cobra.Command{
	Use:   "seeds REPO",
	Short: "List the seeds tracking a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := cob.ParseEntryId(args[0])
		if err != nil {
			return fmt.Errorf("invalid repo id: %w", err)
		}

		n := dialNode(cmd)
		seeds, err := n.Seeds(repo)
		if err != nil {
			return fmt.Errorf("seeds failed: %w", err)
		}

		if len(seeds) == 0 {
			fmt.Println("No seeds found")
			return nil
		}
		for _, s := range seeds {
			fmt.Printf("%-12s %s\n", s.State, s.ID)
		}
		return nil
	},
}

var nodeFetchCmd = &cobra.Command{
	Use:   "fetch REPO",
	Short: "Fetch a repository from a seed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := cob.ParseEntryId(args[0])
		if err != nil {
			return fmt.Errorf("invalid repo id: %w", err)
		}
		fromStr, _ := cmd.Flags().GetString("from")
		from, err := cob.ParsePublicKey(fromStr)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}

		n := dialNode(cmd)
		result, err := n.Fetch(repo, from)
		if err != nil {
			return fmt.Errorf("fetch failed: %w", err)
		}

		if !result.Success {
			fmt.Printf("Fetch failed: %s\n", result.Reason)
			return nil
		}
		fmt.Printf("Fetched %d ref update(s):\n", len(result.Updated))
		for _, u := range result.Updated {
			fmt.Printf("  %s: %s -> %s\n", u.Name, u.Old, u.New)
		}
		return nil
	},
}

func init() {
	nodeCmd.PersistentFlags().String("socket", "/run/cob/node.sock", "Path to the node handle's Unix socket")
	nodeFetchCmd.Flags().String("from", "", "Public key of the seed to fetch from")
	nodeFetchCmd.MarkFlagRequired("from")

	nodeCmd.AddCommand(nodeConnectCmd)
	nodeCmd.AddCommand(nodeSeedsCmd)
	nodeCmd.AddCommand(nodeFetchCmd)
}
