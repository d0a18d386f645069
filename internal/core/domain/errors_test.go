package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func allErrors() []error {
	return []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrClosed,
		ErrNoAccessToken,
		ErrSessionRequestFailed,
		ErrMissingSessionCookie,
		ErrCertificateUnreadable,
		ErrAuth,
		ErrGatewayNotConfigured,
	}
}

func TestErrors_Uniqueness(t *testing.T) {
	errs := allErrors()
	for i := range errs {
		assert.NotEmpty(t, errs[i].Error())
		for j := range errs {
			if i != j {
				assert.NotErrorIs(t, errs[i], errs[j])
			}
		}
	}
}

func TestErrors_WithWrapping(t *testing.T) {
	inner := fmt.Errorf("%w: status 403", ErrSessionRequestFailed)
	outer := fmt.Errorf("%w: %w", ErrAuth, inner)

	assert.ErrorIs(t, outer, ErrAuth)
	assert.ErrorIs(t, outer, ErrSessionRequestFailed)
	assert.False(t, errors.Is(outer, ErrMissingSessionCookie))
	assert.Equal(t, "replication auth failed: session request failed: status 403", outer.Error())
}
