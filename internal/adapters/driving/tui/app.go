package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/replisync/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/replisync/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/replisync/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/replisync/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/replisync/internal/adapters/driving/tui/views/dashboard"
	"github.com/custodia-labs/replisync/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports *Ports

	// ctx bounds the status subscriptions.
	ctx    context.Context
	cancel context.CancelFunc

	styles    *styles.Styles
	keymap    *keymap.KeyMap
	help      help.Model
	dashboard *dashboard.View
	bar       *status.Bar

	oneShotCh    <-chan domain.StatusEvent
	continuousCh <-chan domain.StatusEvent

	lastOneShot    domain.StatusEvent
	lastContinuous domain.StatusEvent

	currentView messages.ViewType

	// err holds the last error that occurred.
	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		help:        help.New(),
		dashboard:   dashboard.NewView(s, ports.Gateway),
		bar:         status.NewBar(s, km),
		currentView: messages.ViewDashboard,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model. It subscribes to both coordinator streams.
func (a *App) Init() tea.Cmd {
	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel
	a.oneShotCh = a.ports.Coordinator.Subscribe(ctx)
	a.continuousCh = a.ports.Coordinator.SubscribeContinuous(ctx)

	return tea.Batch(
		tea.SetWindowTitle("replisync"),
		a.dashboard.Init(),
		waitForStatus(messages.LaneOneShot, a.oneShotCh),
		waitForStatus(messages.LaneContinuous, a.continuousCh),
		waitForLine(a.ports.Changes),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.StatusReceived:
		if msg.Lane == messages.LaneContinuous {
			a.lastContinuous = msg.Event
			a.dashboard.SetContinuous(msg.Event, a.ports.Coordinator.ContinuousRunning())
			return a, waitForStatus(msg.Lane, a.continuousCh)
		}
		a.lastOneShot = msg.Event
		a.refreshOneShot()
		return a, waitForStatus(msg.Lane, a.oneShotCh)

	case messages.StreamClosed:
		return a, nil

	case messages.SyncRequested:
		a.refreshOneShot()
		return a, nil

	case messages.ContinuousToggled:
		a.dashboard.SetContinuous(a.lastContinuous, msg.Enabled)
		return a, nil

	case messages.DocumentChanged:
		a.dashboard.AddLine(msg.Line)
		a.bar.AddChange()
		return a, waitForLine(a.ports.Changes)

	case messages.ViewChanged:
		a.currentView = msg.View
		if msg.View == messages.ViewHelp {
			a.bar.SetState(status.StateHelp)
		} else {
			a.refreshOneShot()
		}
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.bar.SetState(status.StateError)
		a.bar.SetMessage(msg.Err.Error())
		return a, nil

	case messages.Quit:
		return a, a.quit()
	}

	var cmd tea.Cmd
	a.dashboard, cmd = a.dashboard.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return a, a.quit()

	case keymap.Matches(k, a.keymap.Help):
		if a.currentView == messages.ViewHelp {
			return a.Update(messages.ViewChanged{View: messages.ViewDashboard})
		}
		return a.Update(messages.ViewChanged{View: messages.ViewHelp})

	case keymap.Matches(k, a.keymap.Back):
		return a.Update(messages.ViewChanged{View: messages.ViewDashboard})
	}

	if a.currentView != messages.ViewDashboard {
		return a, nil
	}

	coord := a.ports.Coordinator
	switch {
	case keymap.Matches(k, a.keymap.Sync):
		return a, func() tea.Msg {
			coord.RequestSync()
			return messages.SyncRequested{}
		}

	case keymap.Matches(k, a.keymap.Continuous):
		enable := !coord.ContinuousRunning()
		return a, func() tea.Msg {
			coord.SetContinuous(enable)
			return messages.ContinuousToggled{Enabled: enable}
		}

	case keymap.Matches(k, a.keymap.Refresh):
		return a, func() tea.Msg {
			coord.RefreshStatus()
			return nil
		}
	}
	return a, nil
}

// refreshOneShot re-reads the lane state into the dashboard and status bar.
func (a *App) refreshOneShot() {
	state := a.ports.Coordinator.State()
	a.dashboard.SetOneShot(a.lastOneShot, state)

	if a.currentView == messages.ViewHelp {
		return
	}
	if err := a.lastOneShot.Status.Err; err != nil && state == domain.SyncIdle {
		a.bar.SetState(status.StateError)
		a.bar.SetMessage(err.Error())
		return
	}
	a.bar.Clear()
	a.bar.SetState(status.FromSyncState(state))
}

func (a *App) quit() tea.Cmd {
	if a.cancel != nil {
		a.cancel()
	}
	return tea.Quit
}

// View implements tea.Model.
func (a *App) View() string {
	if a.currentView == messages.ViewHelp {
		a.help.ShowAll = true
		return a.styles.Title.Render("Keys") + "\n\n" +
			a.help.View(a.keymap) + "\n\n" + a.bar.View()
	}
	return a.dashboard.View() + "\n" + a.bar.View()
}

// SetDimensions sets the terminal size.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.dashboard.SetDimensions(width, height)
	a.bar.SetWidth(width)
	a.help.Width = width
}

// CurrentView returns the active view.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error.
func (a *App) Err() error {
	return a.err
}

// Ready reports whether the terminal size is known.
func (a *App) Ready() bool {
	return a.ready
}

func waitForStatus(lane messages.Lane, ch <-chan domain.StatusEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return messages.StreamClosed{Lane: lane}
		}
		return messages.StatusReceived{Lane: lane, Event: ev}
	}
}

func waitForLine(ch <-chan string) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		line, ok := <-ch
		if !ok {
			return nil
		}
		return messages.DocumentChanged{Line: line}
	}
}
