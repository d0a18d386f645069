package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

func TestDefaultTheme_ColoursAreDistinct(t *testing.T) {
	theme := DefaultTheme()

	seen := make(map[lipgloss.Color]bool)
	for _, c := range []lipgloss.Color{theme.Primary, theme.Secondary, theme.Success, theme.Warning, theme.Error} {
		assert.NotEmpty(t, string(c))
		assert.False(t, seen[c], "duplicate colour: %s", c)
		seen[c] = true
	}
}

func TestNewStyles_NilTheme(t *testing.T) {
	s := NewStyles(nil)

	require.NotNil(t, s)
	assert.Equal(t, DefaultTheme(), s.Theme())
}

func TestNewStyles_WithTheme(t *testing.T) {
	theme := DefaultTheme()
	s := NewStyles(theme)

	assert.Same(t, theme, s.Theme())
	assert.NotEqual(t, lipgloss.Style{}, s.Panel)
	assert.NotEqual(t, lipgloss.Style{}, s.Label)
	assert.NotEmpty(t, s.Title.Render("replisync"))
}

func TestStyles_Activity(t *testing.T) {
	s := DefaultStyles()
	theme := s.Theme()

	tests := []struct {
		level domain.ActivityLevel
		want  lipgloss.TerminalColor
	}{
		{domain.ActivityBusy, theme.Warning},
		{domain.ActivityConnecting, theme.Warning},
		{domain.ActivityIdle, theme.Success},
		{domain.ActivityOffline, theme.Error},
		{domain.ActivityStopped, theme.Muted},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, s.Activity(tt.level).GetForeground())
		})
	}
}
