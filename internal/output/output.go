// Package output provides styled terminal output helpers using lipgloss.
package output

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	conflictStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dirtyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	syncedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Println(fmt.Sprintf(format, args...))
}

// Title renders text bold.
func Title(s string) string {
	return titleStyle.Render(s)
}

// Subtle renders dimmed text.
func Subtle(s string) string {
	return subtleStyle.Render(s)
}

// SyncBadge renders a document's sync state as a short colored badge.
func SyncBadge(dirty, conflict bool) string {
	switch {
	case conflict:
		return conflictStyle.Render("conflict")
	case dirty:
		return dirtyStyle.Render("dirty")
	default:
		return syncedStyle.Render("synced")
	}
}

// JSON outputs data as indented JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
