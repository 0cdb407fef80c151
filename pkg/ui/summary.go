package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"snooper/pkg/report"
)

const barWidth = 30

var (
	accentCyan    = lipgloss.Color("#00FFFF")
	accentMagenta = lipgloss.Color("#FF00FF")
	accentGreen   = lipgloss.Color("#39FF14")
	accentYellow  = lipgloss.Color("#FFFF00")
	dimGray       = lipgloss.Color("#555555")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentMagenta).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(accentMagenta).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(accentCyan).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(accentYellow)

	barStyle = lipgloss.NewStyle().
			Foreground(accentGreen)

	emptyBarStyle = lipgloss.NewStyle().
			Foreground(dimGray)
)

// RenderSummary draws a human readable view of r: account facts followed by
// bar charts of both histograms.
func RenderSummary(r *report.Report) string {
	facts := []string{
		titleStyle.Render("u/" + r.Metadata.TargetScreenName),
		fact("Account created", r.AccountCreated),
		fact("Karma", fmt.Sprintf("%d link + %d comment = %d", r.LinkKarma, r.CommentKarma, r.TotalKarma)),
		fact("Language", r.TopUseLanguage),
		fact("Items analyzed", fmt.Sprintf("%d (limit %d per type)", r.TotalDataCount, r.Metadata.Limit)),
	}

	sections := []string{
		panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, facts...)),
		panelStyle.Render(renderHistogram("Activity by hour", r.ByHour)),
		panelStyle.Render(renderHistogram("Activity by day", r.ByDay)),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func fact(label, value string) string {
	return fmt.Sprintf("%s %s", labelStyle.Render(label+":"), valueStyle.Render(value))
}

func renderHistogram(title string, h report.Histogram) string {
	keys := h.Keys()
	labelWidth := 0
	for _, k := range keys {
		labelWidth = max(labelWidth, len(k))
	}

	rows := []string{titleStyle.Render(title)}
	peak := h.Max()
	for _, k := range keys {
		n := h.Get(k)
		rows = append(rows, fmt.Sprintf("%s %s %d",
			labelStyle.Render(fmt.Sprintf("%-*s", labelWidth, k)),
			bar(n, peak),
			n,
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// bar scales n against peak; any non-zero count gets at least one cell
func bar(n, peak int) string {
	filled := 0
	if peak > 0 {
		filled = n * barWidth / peak
		if n > 0 && filled == 0 {
			filled = 1
		}
	}
	return barStyle.Render(strings.Repeat("█", filled)) +
		emptyBarStyle.Render(strings.Repeat("░", barWidth-filled))
}
