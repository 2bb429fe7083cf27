package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathanj/quill/internal/models"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	onlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	offlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	conflictStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	syncedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	droppedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("quill sync monitor"))
	b.WriteString("\n\n")

	if m.online {
		b.WriteString(labelStyle.Render("Server:    ") + onlineStyle.Render("online"))
	} else {
		b.WriteString(labelStyle.Render("Server:    ") + offlineStyle.Render("offline"))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Pending:   ") + fmt.Sprintf("%d operations", m.pending))
	b.WriteString("\n")

	conflicts := fmt.Sprintf("%d", m.conflicts)
	if m.conflicts > 0 {
		conflicts = conflictStyle.Render(conflicts)
	}
	b.WriteString(labelStyle.Render("Conflicts: ") + conflicts)
	b.WriteString("\n")

	lastSync := "never"
	if m.lastSync != nil {
		lastSync = m.lastSync.Local().Format(time.RFC3339)
	}
	b.WriteString(labelStyle.Render("Last sync: ") + lastSync)
	b.WriteString("\n")

	if m.draining {
		b.WriteString("\n" + m.spinner.View() + " syncing...\n")
	}

	if len(m.recent) > 0 {
		b.WriteString("\n" + headerStyle.Render("Recent outcomes") + "\n")
		for _, item := range m.recent {
			b.WriteString(fmt.Sprintf("  %s  %s  %s\n",
				item.At.Format("15:04:05"),
				renderOutcome(item.Result),
				item.Result.DocumentID))
		}
	}

	if m.err != nil {
		b.WriteString("\n" + errStyle.Render("error: "+m.err.Error()) + "\n")
	}

	b.WriteString(helpStyle.Render("s sync now • q quit"))
	b.WriteString("\n")
	return b.String()
}

func renderOutcome(r models.SyncResult) string {
	switch r.Outcome {
	case models.OutcomeSynced:
		return syncedStyle.Render(fmt.Sprintf("synced r%d", r.NewRevision))
	case models.OutcomeConflict:
		return conflictStyle.Render("conflict")
	case models.OutcomeDropped:
		return droppedStyle.Render("dropped")
	default:
		return string(r.Outcome)
	}
}
