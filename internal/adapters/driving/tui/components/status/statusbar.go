// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/replisync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/replisync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/replisync/internal/core/domain"
)

// State represents the current application state for display.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateQueued  State = "queued"
	StateError   State = "error"
	StateHelp    State = "help"
)

// FromSyncState maps a coordinator lane state to a bar state.
func FromSyncState(s domain.SyncState) State {
	switch s {
	case domain.SyncRunning:
		return StateSyncing
	case domain.SyncRunningWithRetryQueued:
		return StateQueued
	default:
		return StateIdle
	}
}

// Bar displays application status and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	message string
	changes int
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateIdle,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	var text string
	switch s.state {
	case StateSyncing:
		text = s.styles.Warning.Render("Syncing...")
	case StateQueued:
		text = s.styles.Warning.Render("Syncing (1 queued)...")
	case StateError:
		if s.message != "" {
			return s.styles.Error.Render(fmt.Sprintf("Error: %s", s.message))
		}
		return s.styles.Error.Render("Error")
	case StateHelp:
		return s.styles.Normal.Render("Help")
	default:
		text = s.styles.Muted.Render("Idle")
	}
	if s.changes > 0 {
		text += s.styles.Muted.Render(fmt.Sprintf("  %d local changes", s.changes))
	}
	return text
}

// renderRight renders keybinding hints.
func (s *Bar) renderRight() string {
	bindings := s.keymap.ShortHelp()
	if s.state == StateHelp {
		bindings = []key.Binding{s.keymap.Back, s.keymap.Quit}
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetMessage sets the error message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// AddChange counts a local document change.
func (s *Bar) AddChange() {
	s.changes++
}

// Changes returns the number of local changes seen.
func (s *Bar) Changes() int {
	return s.changes
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateIdle
	s.message = ""
}
