package auth

import (
	"context"
	"strings"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
)

// Ensure StaticProvider implements the AccessTokenProvider interface.
var _ driven.AccessTokenProvider = (*StaticProvider)(nil)

// StaticProvider returns a fixed access token.
type StaticProvider struct {
	token string
}

// NewStaticProvider creates a provider for a configured token.
func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: strings.TrimSpace(token)}
}

// GetAccessToken returns the configured token, which may be empty.
func (p *StaticProvider) GetAccessToken(_ context.Context) (string, error) {
	return p.token, nil
}

// AuthMethod returns AuthMethodStatic.
func (p *StaticProvider) AuthMethod() domain.AuthMethod {
	return domain.AuthMethodStatic
}
