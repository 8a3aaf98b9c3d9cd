package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brambleworks/cob/pkg/crypto"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage this operator's signing identity",
}

var keyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new ed25519 identity and write its seed to --key",
	RunE: func(cmd *cobra.Command, args []string) error {
		keyPath, _ := cmd.Flags().GetString("key")

		kp, err := crypto.Generate()
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}

		if err := os.WriteFile(keyPath, kp.Seed(), 0o600); err != nil {
			return fmt.Errorf("failed to write key file: %w", err)
		}

		fmt.Printf("Identity written to %s\n", keyPath)
		fmt.Printf("  Public key: %s\n", kp.PublicKey())
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the public key for --key",
	RunE: func(cmd *cobra.Command, args []string) error {
		keyPath, _ := cmd.Flags().GetString("key")

		kp, err := loadSigner(keyPath)
		if err != nil {
			return err
		}
		fmt.Println(kp.PublicKey())
		return nil
	},
}

func init() {
	keyCmd.AddCommand(keyGenerateCmd)
	keyCmd.AddCommand(keyShowCmd)
}

// loadSigner reads the ed25519 seed at path and reconstructs the signing
// identity it belongs to.
func loadSigner(path string) (*crypto.KeyPair, error) {
	seed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %s (run `cobctl key generate` first): %w", path, err)
	}
	kp, err := crypto.FromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("invalid key file %s: %w", path, err)
	}
	return kp, nil
}
