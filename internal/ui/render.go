package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rivo/tview"

	"github.com/zsprackett/cursor-usage/internal/config"
	"github.com/zsprackett/cursor-usage/internal/usage"
)

const barWidth = 30

// view is everything the panel shows.
type view struct {
	Snapshot usage.Snapshot
	Language config.Language
	Interval config.Interval
}

// render builds the panel body as tview color-tagged text.
func render(v view) string {
	t := textsFor(v.Language)
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("%s%s[-]", tag(ColorPrimary), t.Title)
	line("")

	s := v.Snapshot
	switch {
	case s.Failed():
		line("%s%s %s: %s[-]", tag(ColorError), IconError, t.Error, tview.Escape(s.Error))
	case s.Pending():
		line("%s%s[-]", tag(ColorTextMuted), t.Loading)
	default:
		line("%s: %s/%s %s", t.Used, humanize.Comma(int64(s.Used)), humanize.Comma(int64(s.Total)), t.Requests)
		line("%s: %s %s", t.Remaining, humanize.Comma(int64(s.Remaining())), t.Requests)
		line("%s: %s%.1f%%[-]", t.UsageRate, tag(UsageColor(s.Percentage)), s.Percentage)
		line("%s", progressBar(s.Percentage, barWidth))
		if s.Email != "" {
			line("%s: %s", t.Account, tview.Escape(s.Email))
		}
		line("%s: %s", t.LastUpdate, s.LastUpdate())
	}

	line("")
	line("%s----- %s -----[-]", tag(ColorTextMuted), t.Interval)
	for n, i := range config.Intervals() {
		line("%s %d %s", mark(i == v.Interval), n+1, i.Label(v.Language))
	}

	line("")
	line("%s----- %s -----[-]", tag(ColorTextMuted), t.Language)
	for _, l := range []config.Language{config.LanguageChinese, config.LanguageEnglish} {
		line("%s %s", mark(l == v.Language), languageLabel(l))
	}

	line("")
	line("%s----- %s -----[-]", tag(ColorTextMuted), t.Options)
	k := tag(ColorSuccess)
	line("  %sr[-] %s", k, t.Refresh)
	line("  %so[-] %s", k, t.OpenSettings)
	line("  %sq[-] %s", k, t.Quit)
	return b.String()
}

// footer lists the key bindings.
func footer(lang config.Language) string {
	t := textsFor(lang)
	k := tag(ColorSuccess)
	return fmt.Sprintf("%sr[-] %s  %s1-5[-] %s  %sl[-] %s  %so[-] %s  %sq[-] %s",
		k, t.Refresh, k, strings.TrimSpace(strings.TrimPrefix(t.Interval, "⏳")),
		k, strings.TrimSpace(strings.TrimPrefix(t.Language, "🇺🇳")),
		k, t.OpenSettings, k, t.Quit)
}

func mark(selected bool) string {
	if selected {
		return tag(ColorSuccess) + IconCheck + "[-]"
	}
	return " "
}

// progressBar draws pct (0-100) as a colored bar width cells wide.
func progressBar(pct float64, width int) string {
	pct = math.Max(0, math.Min(pct, 100))
	filled := int(math.Round(pct / 100 * float64(width)))
	return tag(UsageColor(pct)) + strings.Repeat("█", filled) + "[-]" +
		tag(ColorBorder) + strings.Repeat("░", width-filled) + "[-]"
}
