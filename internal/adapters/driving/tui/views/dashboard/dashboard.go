// Package dashboard renders the replication status of both coordinator lanes.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/replisync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/replisync/internal/core/domain"
)

// maxLines is how many watcher lines are kept on screen.
const maxLines = 8

// View shows the one-shot lane, the continuous lane and recent local changes.
type View struct {
	styles  *styles.Styles
	spinner spinner.Model
	width   int
	height  int

	gateway string

	oneShot    domain.StatusEvent
	state      domain.SyncState
	continuous domain.StatusEvent
	contOn     bool

	lines []string
}

// NewView creates a dashboard for the given gateway host.
func NewView(s *styles.Styles, gateway string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = s.Warning
	return &View{styles: s, spinner: sp, gateway: gateway, width: 80}
}

// Init starts the spinner.
func (v *View) Init() tea.Cmd {
	return v.spinner.Tick
}

// Update advances the spinner.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	var cmd tea.Cmd
	v.spinner, cmd = v.spinner.Update(msg)
	return v, cmd
}

// SetDimensions sets the available size.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
}

// SetOneShot records the latest one-shot event and lane state.
func (v *View) SetOneShot(ev domain.StatusEvent, state domain.SyncState) {
	v.oneShot = ev
	v.state = state
}

// SetContinuous records the latest continuous event and whether the job runs.
func (v *View) SetContinuous(ev domain.StatusEvent, running bool) {
	v.continuous = ev
	v.contOn = running
}

// AddLine appends a watcher line, dropping the oldest beyond maxLines.
func (v *View) AddLine(line string) {
	v.lines = append(v.lines, line)
	if len(v.lines) > maxLines {
		v.lines = v.lines[len(v.lines)-maxLines:]
	}
}

// Lines returns the watcher lines on screen.
func (v *View) Lines() []string {
	return v.lines
}

// View renders the dashboard.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("replisync"))
	if v.gateway != "" {
		b.WriteString(v.styles.Muted.Render("  " + v.gateway))
	}
	b.WriteString("\n\n")

	panelWidth := v.width/2 - 2
	if panelWidth < 30 {
		panelWidth = 30
	}

	oneShot := v.panel("One-shot", v.oneShot, v.state != domain.SyncIdle, []string{
		v.row("Lane", v.state.String()),
	})
	cont := "off"
	if v.contOn {
		cont = "on"
	}
	continuous := v.panel("Continuous", v.continuous, v.contOn, []string{
		v.row("Enabled", cont),
	})

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		v.styles.Panel.Width(panelWidth).Render(oneShot),
		" ",
		v.styles.Panel.Width(panelWidth).Render(continuous),
	))
	b.WriteString("\n\n")

	b.WriteString(v.styles.Subtitle.Render("Local changes"))
	b.WriteString("\n")
	if len(v.lines) == 0 {
		b.WriteString(v.styles.Muted.Render("  none yet"))
		b.WriteString("\n")
	}
	for _, line := range v.lines {
		b.WriteString("  " + v.styles.Normal.Render(line) + "\n")
	}

	return b.String()
}

func (v *View) panel(title string, ev domain.StatusEvent, active bool, extra []string) string {
	heading := v.styles.Subtitle.Render(title)
	if active {
		heading += " " + v.spinner.View()
	}

	activity := v.styles.Activity(ev.Status.Activity).Render(ev.Status.Activity.String())
	rows := append([]string{heading}, extra...)
	rows = append(rows,
		v.row("Activity", activity),
		v.row("Progress", ev.Status.Progress.String()),
		v.row("Attempt", fmt.Sprintf("%d", ev.Attempt)),
	)
	if ev.Status.Err != nil {
		rows = append(rows, v.row("Error", v.styles.Error.Render(ev.Status.Err.Error())))
	}
	return strings.Join(rows, "\n")
}

func (v *View) row(label, value string) string {
	return v.styles.Label.Render(label) + value
}
