package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
	"github.com/vncsmyrnk/relayer/internal/testutil"
)

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, domain.ValidateAddress(testutil.Address(1)))
	assert.NoError(t, domain.ValidateAddress("11111111111111111111111111111111"))

	for _, bad := range []string{
		"",
		"short",
		"0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl0OIl",
		"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWMxx",
		"0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
	} {
		assert.ErrorIs(t, domain.ValidateAddress(bad), domain.ErrInvalidIdentity, bad)
	}
}
