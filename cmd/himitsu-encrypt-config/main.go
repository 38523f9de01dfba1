// Command himitsu-encrypt-config seals a plaintext JSON configuration file
// under an AES-256-GCM key from HIMITSU_KEY and prints the base64 envelope
// for distribution via a remote config URL.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	himitsu "github.com/obelisk/himitsu/pkg"
)

const (
	exitOK int = iota
	exitBadArgs
)

func main() {
	os.Exit(run())
}

func run() int {
	var key string

	exitCode := exitOK
	root := &cobra.Command{
		Use:   "himitsu-encrypt-config <config.json>",
		Short: "Seal a plaintext JSON configuration into a himitsud remote-config envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plaintext, err := os.ReadFile(args[0])
			if err != nil {
				exitCode = exitBadArgs
				return fmt.Errorf("failed to read config: %w", err)
			}

			if key == "" {
				exitCode = exitBadArgs
				return fmt.Errorf("HIMITSU_KEY must be set to a 64-char hex AES-256-GCM key")
			}

			envelope, err := himitsu.EncryptConfigToB64(plaintext, key)
			if err != nil {
				exitCode = exitBadArgs
				return fmt.Errorf("failed to encrypt config: %w", err)
			}

			fmt.Println("Encrypted Configuration")
			fmt.Println("-----------------------")
			fmt.Println(envelope)
			return nil
		},
	}
	root.Flags().StringVar(&key, "key", os.Getenv("HIMITSU_KEY"), "64-char hex AES-256-GCM key (defaults to $HIMITSU_KEY)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == exitOK {
			exitCode = exitBadArgs
		}
	}
	return exitCode
}
