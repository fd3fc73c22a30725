package domain

import (
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	minAddressLength = 32
	maxAddressLength = 44
	publicKeyLength  = 32
)

// ValidateAddress accepts base58 encoded 32 byte public keys. It is a format
// check only and says nothing about who controls the key.
func ValidateAddress(address string) error {
	if len(address) < minAddressLength || len(address) > maxAddressLength {
		return fmt.Errorf("%w: length must be between %d and %d characters", ErrInvalidIdentity, minAddressLength, maxAddressLength)
	}
	decoded, err := base58.Decode(address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if len(decoded) != publicKeyLength {
		return fmt.Errorf("%w: decodes to %d bytes", ErrInvalidIdentity, len(decoded))
	}
	return nil
}
