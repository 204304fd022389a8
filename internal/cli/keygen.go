package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/prospector/internal/core/envelope"
)

var keygenOut string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an envelope key pair for recovery handoff",
	Run:   runKeygen,
}

func init() {
	keygenCmd.Flags().StringVar(&keygenOut, "out", "envelope.key", "private key output file")
	rootCmd.AddCommand(keygenCmd)
}

func runKeygen(cmd *cobra.Command, args []string) {
	pub, priv, err := envelope.GenerateKeyPair()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(keygenOut, []byte(priv), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write private key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("public key: %s\n", pub)
	fmt.Printf("private key written to %s\n", keygenOut)
}
