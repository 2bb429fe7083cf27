// Package monitor is the bubbletea dashboard for the sync engine: live
// pending/conflict counts, connectivity, and recent drain outcomes. It
// hosts the drain scheduler and feeds it the connectivity signal from a
// periodic health probe.
package monitor

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathanj/quill/internal/models"
	"github.com/nathanj/quill/internal/store"
	quillsync "github.com/nathanj/quill/internal/sync"
)

// maxRecentResults bounds the outcome feed.
const maxRecentResults = 20

// resultItem is one displayed drain outcome.
type resultItem struct {
	Result models.SyncResult
	At     time.Time
}

// tickMsg triggers a data refresh and health probe.
type tickMsg time.Time

// dataMsg carries refreshed store counts.
type dataMsg struct {
	Pending   int64
	Conflicts int
	LastSync  *time.Time
	Online    bool
	Err       error
}

// resultsMsg carries outcomes reported by the scheduler.
type resultsMsg []models.SyncResult

// drainDoneMsg reports a manual drain.
type drainDoneMsg struct {
	Results []models.SyncResult
	Err     error
}

// Model is the bubbletea model for the sync monitor.
type Model struct {
	Store     *store.Store
	Engine    *quillsync.Engine
	Scheduler *quillsync.Scheduler
	Health    func() error

	RefreshInterval time.Duration

	Width  int
	Height int

	spinner  spinner.Model
	draining bool

	pending   int64
	conflicts int
	lastSync  *time.Time
	online    bool
	recent    []resultItem
	err       error
}

// NewModel creates a monitor model. The scheduler must already be started;
// its OnResults should forward into the program via Send(resultsMsg(...)).
func NewModel(s *store.Store, engine *quillsync.Engine, sched *quillsync.Scheduler, health func() error, refresh time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		Store:           s,
		Engine:          engine,
		Scheduler:       sched,
		Health:          health,
		RefreshInterval: refresh,
		spinner:         sp,
		online:          true,
	}
}

// Forward adapts scheduler results into a program message.
func Forward(p *tea.Program) func([]models.SyncResult) {
	return func(results []models.SyncResult) {
		p.Send(resultsMsg(results))
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchData(), m.scheduleTick())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			if m.draining {
				return m, nil
			}
			m.draining = true
			return m, m.manualDrain()
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		return m, tea.Batch(m.fetchData(), m.scheduleTick())

	case dataMsg:
		m.pending = msg.Pending
		m.conflicts = msg.Conflicts
		m.lastSync = msg.LastSync
		m.online = msg.Online
		m.err = msg.Err
		m.Scheduler.SetOnline(msg.Online)

	case resultsMsg:
		m.appendResults(msg)
		return m, m.fetchData()

	case drainDoneMsg:
		m.draining = false
		if msg.Err != nil && !errors.Is(msg.Err, quillsync.ErrDrainInProgress) {
			m.err = msg.Err
		}
		m.appendResults(msg.Results)
		return m, m.fetchData()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) appendResults(results []models.SyncResult) {
	now := time.Now()
	for _, r := range results {
		m.recent = append([]resultItem{{Result: r, At: now}}, m.recent...)
	}
	if len(m.recent) > maxRecentResults {
		m.recent = m.recent[:maxRecentResults]
	}
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchData refreshes counts and probes connectivity off the UI goroutine.
func (m Model) fetchData() tea.Cmd {
	return func() tea.Msg {
		var msg dataMsg

		pending, err := m.Store.CountOperations()
		if err != nil {
			msg.Err = err
		}
		msg.Pending = pending

		docs, err := m.Store.ListDocuments()
		if err != nil {
			msg.Err = err
		}
		for _, d := range docs {
			if d.Conflict {
				msg.Conflicts++
			}
		}

		msg.LastSync, _ = m.Store.LastSyncedAt()
		msg.Online = m.Health() == nil
		return msg
	}
}

func (m Model) manualDrain() tea.Cmd {
	return func() tea.Msg {
		results, err := m.Engine.Drain()
		return drainDoneMsg{Results: results, Err: err}
	}
}
