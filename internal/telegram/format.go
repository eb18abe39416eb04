package telegram

import (
	"fmt"
	"strings"

	"github.com/rewired-gh/venuescout/internal/models"
	"github.com/rewired-gh/venuescout/internal/session"
)

// maxDigestEntries keeps digests well under Telegram's 4096 character limit.
const maxDigestEntries = 25

// formatDigest lists the markers currently on the map.
func formatDigest(markers []models.Marker) string {
	if len(markers) == 0 {
		return "📍 *No venues on the map*\n\nTry /hoods or clear filters with /clearhoods\\."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📍 *%d venues on the map*\n\n", len(markers))

	for i, m := range markers {
		if i == maxDigestEntries {
			fmt.Fprintf(&b, "\\.\\.\\. and %d more\n", len(markers)-maxDigestEntries)
			break
		}
		fmt.Fprintf(&b, "%d\\. *%s*\n", i+1, escapeMarkdownV2(m.Label))
		if m.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", escapeMarkdownV2(m.Snippet))
		}
		fmt.Fprintf(&b, "   `/place %s`\n", escapeCode(m.Identifier))
	}
	return b.String()
}

// formatDetail renders the detail panel for a focused place.
func formatDetail(f *session.Focus) string {
	p := f.Place

	var b strings.Builder
	fmt.Fprintf(&b, "🏠 *%s*\n", escapeMarkdownV2(p.DisplayName))
	if p.DerivedCategoryLabel != nil {
		fmt.Fprintf(&b, "🏷 %s\n", escapeMarkdownV2(*p.DerivedCategoryLabel))
	}
	if p.Rating != nil {
		fmt.Fprintf(&b, "⭐ %s\n", escapeMarkdownV2(fmt.Sprintf("%.1f", *p.Rating)))
	}
	if p.FormattedAddress != nil {
		fmt.Fprintf(&b, "📫 %s\n", escapeMarkdownV2(*p.FormattedAddress))
	}
	if p.AttachedDescription != nil && *p.AttachedDescription != "" {
		fmt.Fprintf(&b, "\n%s\n", escapeMarkdownV2(*p.AttachedDescription))
	}
	b.WriteString("\n/close to dismiss")
	return b.String()
}

// formatSummary describes a view after an intent.
func formatSummary(v session.View) string {
	var parts []string
	switch {
	case v.Loading:
		parts = append(parts, "Refreshing…")
	case v.Error != nil:
		parts = append(parts, fmt.Sprintf("Last fetch failed (%s): %s", v.Error.Kind, v.Error.Message))
	}

	parts = append(parts, fmt.Sprintf("%d of %d events visible, %d venues", v.VisibleEvents, v.TotalEvents, len(v.Markers)))

	var filters []string
	if v.ActiveOnly {
		filters = append(filters, "active only")
	}
	if len(v.Selected) > 0 {
		filters = append(filters, strings.Join(v.Selected, ", "))
	}
	if len(filters) > 0 {
		parts = append(parts, "Filters: "+strings.Join(filters, "; "))
	}
	return strings.Join(parts, "\n")
}

// formatNeighborhoods lists the neighborhood choices, marking selected ones.
func formatNeighborhoods(v session.View) string {
	if len(v.Neighborhoods) == 0 {
		return "No neighborhoods yet."
	}
	selected := make(map[string]bool, len(v.Selected))
	for _, n := range v.Selected {
		selected[n] = true
	}

	var b strings.Builder
	b.WriteString("Neighborhoods:\n")
	for _, n := range v.Neighborhoods {
		mark := "◻️"
		if selected[n] {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s\n", mark, n)
	}
	b.WriteString("\nToggle with /hood <name>")
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// escapeCode escapes text placed inside a MarkdownV2 code span.
func escapeCode(text string) string {
	r := strings.NewReplacer("\\", "\\\\", "`", "\\`")
	return r.Replace(text)
}
