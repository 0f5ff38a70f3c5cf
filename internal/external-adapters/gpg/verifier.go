// Package gpg provides OpenPGP signature verification for firmware
// build inputs.
package gpg

import (
	"bytes"
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/sglass68/firmware/internal/domain/entities"
)

const armoredSigPrefix = "-----BEGIN PGP SIGNATURE---"

// Verifier checks detached signatures on input firmware images against
// a local keyring. This is in external-adapters to isolate the
// dependency on the OpenPGP implementation.
type Verifier struct {
	keyring openpgp.EntityList
}

// NewVerifier creates a new signature verifier
func NewVerifier() *Verifier {
	return &Verifier{keyring: make(openpgp.EntityList, 0)}
}

// LoadKeyringFile imports keys from an armored or binary keyring file.
func (v *Verifier) LoadKeyringFile(keyPath string) error {
	//nolint:gosec // G304: keyring path comes from the build configuration
	f, err := os.Open(keyPath)
	if err != nil {
		return fmt.Errorf("failed to open keyring file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	keys, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		// Try reading as binary
		if _, seekErr := f.Seek(0, 0); seekErr != nil {
			return fmt.Errorf("failed to reset keyring file: %w", seekErr)
		}
		keys, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return fmt.Errorf("failed to read keyring: %w", err)
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("no keys found in %s", keyPath)
	}

	v.keyring = append(v.keyring, keys...)
	return nil
}

// VerifyDetached verifies a detached signature file against the image
// it signs.
func (v *Verifier) VerifyDetached(imagePath, sigPath string) error {
	if len(v.keyring) == 0 {
		return fmt.Errorf("no keys loaded, call LoadKeyringFile first")
	}

	sigData, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("failed to read signature file: %w", err)
	}

	//nolint:gosec // G304: image path comes from the build spec
	f, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	isArmored := len(sigData) > len(armoredSigPrefix) &&
		string(sigData[:len(armoredSigPrefix)]) == armoredSigPrefix

	var verifyErr error
	if isArmored {
		_, verifyErr = openpgp.CheckArmoredDetachedSignature(
			v.keyring, f, bytes.NewReader(sigData), nil)
	} else {
		_, verifyErr = openpgp.CheckDetachedSignature(
			v.keyring, f, bytes.NewReader(sigData), nil)
	}
	if verifyErr != nil {
		return entities.WrapPackError(entities.ReasonSignatureInvalid, verifyErr,
			"signature %s does not verify image %s", sigPath, imagePath)
	}
	return nil
}
