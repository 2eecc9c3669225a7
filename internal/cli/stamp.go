package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/votis/walletd/internal/chains"
	"github.com/votis/walletd/internal/derive"
	"github.com/votis/walletd/internal/stamp"
)

var stampChain string

var stampCmd = &cobra.Command{
	Use:   "stamp <body-file>",
	Short: "Stamp a request body with a wallet key",
	Long: `Reads a BIP39 mnemonic from stdin, derives the wallet key at the
chain's registered derivation path, and prints the encoded stamp for
the request body in the given file. Send the stamp in the
` + stamp.HeaderClient + ` header to authenticate the request as the
wallet holder. Nothing is stored and no key leaves the process.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(args[0]) //nolint:gosec // operator-chosen path
		if err != nil {
			return fmt.Errorf("reading request body: %w", err)
		}

		registry := chains.NewRegistry()
		spec, err := registry.Resolve(stampChain)
		if err != nil {
			return err
		}

		reader := bufio.NewReader(cmd.InOrStdin())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading mnemonic from stdin: %w", err)
		}

		key, err := derive.FromMnemonic(strings.TrimSpace(line), "")
		if err != nil {
			return err
		}

		signer, err := key.Signer(spec)
		if err != nil {
			return err
		}
		defer signer.Zero()

		s, err := stamp.New(body, signer)
		if err != nil {
			return err
		}
		encoded, err := stamp.Encode(s)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), encoded)
		return nil
	},
}

//nolint:gochecknoinits // Cobra command registration
func init() {
	stampCmd.Flags().StringVar(&stampChain, "chain", "eth",
		"chain whose derivation path selects the wallet key")
	rootCmd.AddCommand(stampCmd)
}
