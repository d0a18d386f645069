package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
)

// Ensure PromptProvider implements the AccessTokenProvider interface.
var _ driven.AccessTokenProvider = (*PromptProvider)(nil)

// PromptProvider asks for an access token on the terminal once and
// remembers the answer.
type PromptProvider struct {
	in  io.Reader
	out io.Writer
	fd  int

	mu    sync.Mutex
	token string
	asked bool
}

// NewPromptProvider creates a provider reading from stdin.
func NewPromptProvider() *PromptProvider {
	return &PromptProvider{in: os.Stdin, out: os.Stderr, fd: int(os.Stdin.Fd())}
}

// newPromptProviderFrom reads from an arbitrary reader without terminal handling.
func newPromptProviderFrom(in io.Reader, out io.Writer) *PromptProvider {
	return &PromptProvider{in: in, out: out, fd: -1}
}

// GetAccessToken prompts on first use. Concurrent callers wait for the
// single prompt.
func (p *PromptProvider) GetAccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.asked {
		return p.token, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprint(p.out, "Identity provider access token: ")
	token, err := p.read()
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading access token: %w", err)
	}

	p.token = token
	p.asked = true
	return p.token, nil
}

func (p *PromptProvider) read() (string, error) {
	if p.fd >= 0 && term.IsTerminal(p.fd) {
		secret, err := term.ReadPassword(p.fd)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// AuthMethod returns AuthMethodPrompt.
func (p *PromptProvider) AuthMethod() domain.AuthMethod {
	return domain.AuthMethodPrompt
}
