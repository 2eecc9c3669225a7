package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/votis/walletd/internal/chains"
	"github.com/votis/walletd/internal/derive"
)

var chainsEVMOnly bool

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "Inspect the chain registry",
}

var chainsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered chains",
	RunE: func(cmd *cobra.Command, _ []string) error {
		registry := chains.NewRegistry()

		var identifiers []string
		if chainsEVMOnly {
			identifiers = registry.ListEVMCompatible()
		} else {
			identifiers = registry.List()
		}

		for _, identifier := range identifiers {
			spec, err := registry.Resolve(identifier)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-20s %s\n", identifier, spec.Name, spec.DerivationPath)
		}
		return nil
	},
}

var chainsResolveCmd = &cobra.Command{
	Use:   "resolve <identifier>",
	Short: "Resolve a chain by symbol, alias, name, or numeric id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := chains.NewRegistry()

		var spec chains.Spec
		if id, err := strconv.ParseUint(args[0], 10, 64); err == nil {
			spec = registry.ResolveByChainID(id)
		} else {
			var resolveErr error
			spec, resolveErr = registry.Resolve(args[0])
			if resolveErr != nil {
				return resolveErr
			}
		}

		encoded, err := json.MarshalIndent(spec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return nil
	},
}

var chainsAddressCmd = &cobra.Command{
	Use:   "address <identifier>",
	Short: "Preview the address a chain's derivation path produces",
	Long: `Reads a BIP39 mnemonic from stdin and prints the address the chain's
registered derivation path would produce. Nothing is stored and no
signing key leaves the process.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := chains.NewRegistry()
		spec, err := registry.Resolve(args[0])
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

		preview, err := key.Preview(spec)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", preview.Path, preview.Address)
		return nil
	},
}

//nolint:gochecknoinits // Cobra command registration
func init() {
	chainsListCmd.Flags().BoolVar(&chainsEVMOnly, "evm", false, "list only EVM-compatible chains")
	chainsCmd.AddCommand(chainsListCmd)
	chainsCmd.AddCommand(chainsResolveCmd)
	chainsCmd.AddCommand(chainsAddressCmd)
	rootCmd.AddCommand(chainsCmd)
}
