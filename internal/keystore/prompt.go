package keystore

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/votis/walletd/internal/secure"
	walleterr "github.com/votis/walletd/pkg/errors"
)

// minPassphraseLength applies when creating a new key file, not when
// opening an existing one.
const minPassphraseLength = 8

// ReadPassphrase prompts for the key file passphrase with hidden input.
func ReadPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(syscall.Stdin)
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", walleterr.Wrap(err, "reading passphrase")
	}
	defer secure.Zero(passphrase)

	return string(passphrase), nil
}

// ReadNewPassphrase prompts for a passphrase with confirmation, for key
// generation.
func ReadNewPassphrase() (string, error) {
	passphrase, err := ReadPassphrase("Enter key file passphrase: ")
	if err != nil {
		return "", err
	}
	if len(passphrase) < minPassphraseLength {
		return "", walleterr.WithSuggestion(
			walleterr.ErrValidation,
			fmt.Sprintf("passphrase must be at least %d characters", minPassphraseLength))
	}

	confirm, err := ReadPassphrase("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if passphrase != confirm {
		return "", walleterr.WithSuggestion(walleterr.ErrValidation, "passphrases do not match")
	}
	return passphrase, nil
}
