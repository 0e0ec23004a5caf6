// Package output provides styled terminal output helpers (success, error,
// warning, task formatting) using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tasksync/tasksync/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	syncStyles   = map[models.SyncStatus]lipgloss.Style{
		models.SyncStatusPending:    lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		models.SyncStatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.SyncStatusSynced:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.SyncStatusError:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		models.SyncStatusFailed:     lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
	}
)

// OutputMode determines output format
type OutputMode int

const (
	ModeShort OutputMode = iota
	ModeLong
	ModeJSON
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

// JSON outputs data as indented JSON
func JSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// Error codes for structured JSON output
const (
	ErrCodeNotFound      = "not_found"
	ErrCodeInvalidInput  = "invalid_input"
	ErrCodeDatabaseError = "database_error"
)

// JSONError outputs an error as JSON
func JSONError(code, message string) {
	fmt.Printf(`{"error":{"code":"%s","message":"%s"}}`, code, message)
	fmt.Println()
}

// FormatSyncStatus formats a sync_status with color, e.g. "[pending]"
func FormatSyncStatus(s models.SyncStatus) string {
	style, ok := syncStyles[s]
	if !ok {
		return string(s)
	}
	return style.Render(fmt.Sprintf("[%s]", s))
}

// FormatTaskLine formats a task as a single summary line for list output.
func FormatTaskLine(t *models.Task) string {
	var parts []string
	parts = append(parts, titleStyle.Render(t.ID))
	parts = append(parts, t.Title)
	if t.Completed {
		parts = append(parts, subtleStyle.Render("[done]"))
	}
	parts = append(parts, FormatSyncStatus(t.SyncStatus))
	return strings.Join(parts, "  ")
}

// FormatTaskLong formats a task's full detail for `show`.
func FormatTaskLong(t *models.Task) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s: %s", t.ID, t.Title)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Sync status: %s\n", FormatSyncStatus(t.SyncStatus)))
	sb.WriteString(fmt.Sprintf("Completed: %t\n", t.Completed))

	if t.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(subtleStyle.Render("Description:"))
		sb.WriteString("\n")
		sb.WriteString(t.Description)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\nCreated: %s (%s)\n", t.CreatedAt.Format(time.RFC3339), FormatTimeAgo(t.CreatedAt)))
	sb.WriteString(fmt.Sprintf("Updated: %s (%s)\n", t.UpdatedAt.Format(time.RFC3339), FormatTimeAgo(t.UpdatedAt)))
	if t.LastSyncedAt != nil {
		sb.WriteString(fmt.Sprintf("Last synced: %s (%s)\n", t.LastSyncedAt.Format(time.RFC3339), FormatTimeAgo(*t.LastSyncedAt)))
	}
	if t.ServerID != "" && t.ServerID != models.UnassignedServerID {
		sb.WriteString(fmt.Sprintf("Server ID: %s\n", t.ServerID))
	}

	return sb.String()
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		return t.Format("2006-01-02")
	}
}

// SectionHeader returns a formatted section header for CLI output
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}
