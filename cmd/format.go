package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/panchamjain/suvidha/pkg/search"
	"github.com/panchamjain/suvidha/pkg/storage"
	"github.com/panchamjain/suvidha/pkg/suggest"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	resultStyle = lipgloss.NewStyle().
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))
)

// typeBadges decorate each suggestion kind.
var typeBadges = map[search.Type]string{
	search.TypeCategory: "📂",
	search.TypeMerchant: "🏪",
	search.TypeLocation: "📍",
	search.TypeDiscount: "🏷️",
}

// formatNumber formats a number with K/M suffixes for readability
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	} else {
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// formatTime formats a time relative to now or as an absolute date
func formatTime(t time.Time) string {
	return formatTimeAt(t, time.Now())
}

func formatTimeAt(t, now time.Time) string {
	diff := now.Sub(t)

	if diff < 24*time.Hour {
		if diff < time.Hour {
			minutes := int(diff.Minutes())
			if minutes < 1 {
				return "just now"
			}
			return fmt.Sprintf("%d minutes ago", minutes)
		}
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	}

	if diff < 7*24*time.Hour {
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	}

	if t.Year() == now.Year() {
		return t.Format("Jan 2, 15:04")
	}
	return t.Format("Jan 2, 2006")
}

// formatOutcome renders a search outcome as a numbered list.
func formatOutcome(out search.Outcome) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("🔎 %s", out.Query)))
	b.WriteString("\n")

	if out.Count == 0 {
		b.WriteString(noDataStyle.Render("No results found"))
		b.WriteString("\n")
	}
	for i, r := range out.Results {
		b.WriteString(formatResult(i+1, r))
	}

	meta := fmt.Sprintf("%d results from %s", out.Count, out.Source)
	b.WriteString("\n" + metaStyle.Render(meta) + "\n")
	if out.Err != nil {
		b.WriteString(warnStyle.Render("remote search failed: "+out.Err.Error()) + "\n")
	}
	return b.String()
}

func formatResult(n int, r search.SearchResult) string {
	badge := typeBadges[r.Type]
	if badge == "" {
		badge = "•"
	}
	line := fmt.Sprintf("%2d. %s %s", n, badge, resultStyle.Render(r.Title))
	if r.Subtitle != "" {
		line += "  " + metaStyle.Render(r.Subtitle)
	}
	if r.URL != "" {
		line += "  " + urlStyle.Render(r.URL)
	}
	return line + "\n"
}

// formatSnapshot renders a live suggestion snapshot, one line per state
// change.
func formatSnapshot(s suggest.Snapshot) string {
	switch s.State {
	case suggest.StatePopulated:
		var b strings.Builder
		b.WriteString(headerStyle.Render(fmt.Sprintf("%d suggestions for %q (%s)", len(s.Suggestions), s.Query, s.Source)))
		b.WriteString("\n")
		for i, r := range s.Suggestions {
			b.WriteString(formatResult(i+1, r))
		}
		return b.String()
	case suggest.StateEmpty:
		if strings.TrimSpace(s.Query) == "" {
			return ""
		}
		return noDataStyle.Render(fmt.Sprintf("No suggestions for %q", s.Query)) + "\n"
	case suggest.StateErrored:
		return warnStyle.Render("search failed: "+s.Error) + "\n"
	}
	return ""
}

func formatTarget(t suggest.Target) string {
	keys := make([]string, 0, len(t.Params))
	for k := range t.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, t.Params[k]))
	}
	return fmt.Sprintf("→ %s %s", headerStyle.Render(t.Screen), strings.Join(parts, " "))
}

// formatStats renders the search history statistics.
func formatStats(w io.Writer, stats *storage.Stats) {
	fmt.Fprintln(w, titleStyle.Render("📊 Search Statistics"))
	fmt.Fprintf(w, "Total searches: %s\n", formatNumber(stats.Total))
	if stats.Total == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No searches recorded yet."))
		return
	}
	fmt.Fprintf(w, "Remote failures: %s\n", formatNumber(stats.Errors))
	if stats.Last != nil {
		fmt.Fprintf(w, "Last search: %s\n", formatTime(*stats.Last))
	}

	sources := make([]string, 0, len(stats.BySource))
	for source := range stats.BySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	fmt.Fprintln(w, "\n"+headerStyle.Render("By source"))
	for _, source := range sources {
		n := stats.BySource[source]
		fmt.Fprintf(w, "  %-9s %s (%.1f%%)\n", source, formatNumber(n), float64(n)/float64(stats.Total)*100)
	}

	if len(stats.TopQueries) > 0 {
		fmt.Fprintln(w, "\n"+headerStyle.Render("Top queries"))
		for i, q := range stats.TopQueries {
			fmt.Fprintf(w, "  %2d. %s %s\n", i+1, q.Query, metaStyle.Render(fmt.Sprintf("×%d", q.Count)))
		}
	}
}

// isTerminal reports whether stdout is a terminal.
func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
