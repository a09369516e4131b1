// Package console draws a monitor view for a terminal.
package console

import (
	"fmt"
	"strings"

	"botdash/internal/monitor"
	"botdash/internal/telemetry"

	"github.com/charmbracelet/lipgloss"
)

var (
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Danger  = lipgloss.Color("#EF4444")
	Muted   = lipgloss.Color("#6B7280")
	Accent  = lipgloss.Color("#3B82F6")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(Accent)
	mutedStyle = lipgloss.NewStyle().Foreground(Muted)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Muted).Padding(0, 1)
)

const (
	emptyLogs = "No logs received yet..."
	emptyBets = "No bets yet"
	emptyTips = "No tips received"

	defaultWidth = 100
	maxBetRows   = 10
)

// Render returns the full screen for v. width <= 0 uses a default.
func Render(v monitor.View, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	inner := width - 4
	sections := []string{
		header(v, width),
		panel("Logs", logLines(v.Logs), inner),
		panel("Recent Bets", betLines(v.Bets), inner),
		panel("Tips", tipLines(v.Tips), inner),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func header(v monitor.View, width int) string {
	dot := lipgloss.NewStyle().Foreground(Danger).Render("● disconnected")
	if v.Connected {
		dot = lipgloss.NewStyle().Foreground(Success).Render("● connected")
	}
	line := fmt.Sprintf("%s  %s  Live Balance: %s",
		titleStyle.Render("Instance "+v.InstanceID), dot, lipgloss.NewStyle().Bold(true).Render(v.BalanceText))
	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(Accent).
		Width(width - 2).
		Padding(0, 1).
		Render(line)
}

func panel(title string, lines []string, width int) string {
	content := append([]string{titleStyle.Render(title)}, lines...)
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, content...))
}

func levelStyle(l telemetry.Level) lipgloss.Style {
	switch l {
	case telemetry.LevelError:
		return lipgloss.NewStyle().Foreground(Danger).Bold(true)
	case telemetry.LevelWarn:
		return lipgloss.NewStyle().Foreground(Warning)
	default:
		return lipgloss.NewStyle().Foreground(Success)
	}
}

func logLines(logs []monitor.LogLine) []string {
	if len(logs) == 0 {
		return []string{mutedStyle.Render(emptyLogs)}
	}
	out := make([]string, 0, len(logs))
	for _, l := range logs {
		out = append(out, fmt.Sprintf("%s %s %s",
			mutedStyle.Render(l.Timestamp), levelStyle(l.Level).Render(fmt.Sprintf("%-5s", l.Level)), l.Message))
	}
	return out
}

func betLines(bets []monitor.BetRow) []string {
	if len(bets) == 0 {
		return []string{mutedStyle.Render(emptyBets)}
	}
	out := []string{mutedStyle.Render(fmt.Sprintf("%-19s  %-9s  %8s  %6s  %s", "TIME", "STATUS", "STAKE", "FAILED", "TIP"))}
	for i, b := range bets {
		if i == maxBetRows {
			out = append(out, mutedStyle.Render(fmt.Sprintf("... %d more", len(bets)-maxBetRows)))
			break
		}
		status := lipgloss.NewStyle().Foreground(Success)
		if b.Status == telemetry.BetFailed {
			status = lipgloss.NewStyle().Foreground(Danger)
		}
		out = append(out, fmt.Sprintf("%-19s  %s  %8s  %6d  %s",
			b.Time, status.Render(fmt.Sprintf("%-9s", b.Status)), b.Stake, b.FailedCount, oneLine(b.Tip)))
	}
	return out
}

func tipLines(tips []monitor.TipCard) []string {
	if len(tips) == 0 {
		return []string{mutedStyle.Render(emptyTips)}
	}
	out := make([]string, 0, len(tips))
	for _, t := range tips {
		out = append(out, fmt.Sprintf("%s %s %s",
			mutedStyle.Render(t.Clock), lipgloss.NewStyle().Foreground(Accent).Render("["+t.Source+"]"), oneLine(t.Message)))
	}
	return out
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Help renders a row of key hints.
func Help(hints ...string) string {
	return mutedStyle.Render(strings.Join(hints, " • "))
}
