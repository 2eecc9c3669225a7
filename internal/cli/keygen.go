package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/votis/walletd/internal/config"
	"github.com/votis/walletd/internal/keystore"
	walleterr "github.com/votis/walletd/pkg/errors"
)

var keygenForce bool

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the operator API signing key",
	Long: `Generates a P-256 operator key, encrypts it with a passphrase, and
writes it to the configured key file. The public key is printed so it
can be registered with the custody service.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := cfg.Keystore.KeyFile

		if !keygenForce {
			if _, err := os.Stat(path); err == nil {
				return walleterr.WithSuggestion(
					walleterr.Wrap(walleterr.ErrValidation, "key file already exists"),
					"pass --force to overwrite "+path)
			}
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return walleterr.Wrap(err, "creating key directory")
		}

		passphrase := config.Passphrase()
		if passphrase == "" {
			var err error
			passphrase, err = keystore.ReadNewPassphrase()
			if err != nil {
				return err
			}
		}

		signer, err := keystore.Generate(path, passphrase)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "key file:   %s\n", path)
		fmt.Fprintf(cmd.OutOrStdout(), "public key: %s\n", signer.PublicKeyHex())
		return nil
	},
}

//nolint:gochecknoinits // Cobra command registration
func init() {
	keygenCmd.Flags().BoolVar(&keygenForce, "force", false, "overwrite an existing key file")
	rootCmd.AddCommand(keygenCmd)
}
