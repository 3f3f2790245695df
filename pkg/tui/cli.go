// Package tui renders analysis results on the terminal.
// Simple streaming output - styled headers, aligned tables, progress.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
)

// PrintHeader prints the tool banner.
func PrintHeader(version string) {
	fmt.Println()
	fmt.Println(titleStyle.Render("  TRACELENS") + mutedStyle.Render(" v"+version))
	fmt.Println(mutedStyle.Render("  Event log variant and coverage analysis"))
	fmt.Println()
}

// Section prints a section heading.
func Section(name string) {
	fmt.Println()
	fmt.Println(accentStyle.Render("▸ " + strings.ToUpper(name)))
}

// Rule prints a horizontal separator.
func Rule() {
	fmt.Println(mutedStyle.Render("  ─────────────────────────────────────"))
}

// KV prints an aligned key-value line.
func KV(key, value string) {
	fmt.Printf("  %s %s\n", mutedStyle.Render(key+":"), titleStyle.Render(value))
}

// Success prints a completion line.
func Success(message string) {
	fmt.Println()
	fmt.Println(successStyle.Render("  ✓ " + message))
	fmt.Println()
}

// Failure prints an error line.
func Failure(message string) {
	fmt.Println(accentStyle.Render("  ✗ " + message))
}

// Table renders an aligned text table with a muted header row.
// Columns are sized to their widest cell.
func Table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var sb strings.Builder
	for i, h := range headers {
		sb.WriteString(fmt.Sprintf("%-*s  ", widths[i], h))
	}
	fmt.Println("  " + mutedStyle.Render(strings.TrimRight(sb.String(), " ")))

	for _, row := range rows {
		var rb strings.Builder
		for i, cell := range row {
			if i < len(widths) {
				rb.WriteString(fmt.Sprintf("%-*s  ", widths[i], cell))
			}
		}
		fmt.Println("  " + strings.TrimRight(rb.String(), " "))
	}
}

// Truncate shortens s to max runes, appending an ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 || len([]rune(s)) <= max {
		return s
	}
	r := []rune(s)
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}

// PrintProgress prints a progress update during loading.
func PrintProgress(eventsRead int64, eventsPerSec float64, elapsed time.Duration) {
	fmt.Printf("\r  %s %s events %s",
		accentStyle.Render("⟳"),
		titleStyle.Render(FormatNumber(eventsRead)),
		mutedStyle.Render(fmt.Sprintf("(%s/sec, %s)", FormatNumber(int64(eventsPerSec)), FormatDuration(elapsed))))
}

// ClearLine clears the current line.
func ClearLine() {
	fmt.Print("\r\033[K")
}

// FormatDuration formats a duration in a human-readable way.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
}

// FormatNumber formats an integer with K/M suffixes.
func FormatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// FormatBytes formats a byte count.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// FormatPercent formats a fraction as a percentage.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}

// ShowProgress creates a progress bar for processing.
func ShowProgress(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(false),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
