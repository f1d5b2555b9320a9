package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"bigfive-core/internal/domain"
	"bigfive-core/internal/service"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	bandStyles = map[domain.Band]lipgloss.Style{
		domain.BandVeryLow:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		domain.BandLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		domain.BandAverage:  lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		domain.BandHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		domain.BandVeryHigh: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}

	matchStyles = map[domain.MatchLevel]lipgloss.Style{
		domain.HighSynchrony: okStyle,
		domain.Balanced:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		domain.Challenging:   warnStyle,
	}
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func band(b domain.Band) string {
	if st, ok := bandStyles[b]; ok {
		return st.Render(string(b))
	}
	return string(b)
}

// traitOrder pone primero los cinco rasgos canonicos y despues el resto ordenado.
func traitOrder[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, k := range domain.CanonicalTraits() {
		if _, ok := m[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range m {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func renderScores(scores domain.TraitScores, withFacets bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("%-20s %8s %6s  %s", "TRAIT", "SCORE", "RAW", "BAND")))
	for _, k := range traitOrder(scores) {
		s := scores[k]
		fmt.Fprintf(&b, "%-20s %8.1f %6.2f  %s\n", k, s.NormalizedScore, s.RawScore, band(s.Band))
		if !withFacets {
			continue
		}
		for _, f := range s.Facets {
			fmt.Fprintf(&b, "  %s\n", dimStyle.Render(fmt.Sprintf("%-18s %8.0f %6.2f  %s", f.Key, f.NormalizedScore, f.RawScore, f.Band)))
		}
	}
	return b.String()
}

func renderInterpretation(in domain.Interpretation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s\n",
		dimStyle.Render("assignment"), in.AssignmentID,
		dimStyle.Render("config"), in.ConfigID,
		dimStyle.Render("method"), in.Method)
	if in.Partial {
		fmt.Fprintf(&b, "%s\n", warnStyle.Render("partial: "+strings.Join(in.TextErrors, "; ")))
	}
	for _, t := range in.Traits {
		fmt.Fprintf(&b, "\n%s %.1f %s\n", headerStyle.Render(t.Name), t.Score, band(t.Band))
		fmt.Fprintf(&b, "  %s\n", t.Interpretation)
		for _, f := range t.Facets {
			fmt.Fprintf(&b, "  - %s %.0f %s: %s\n", f.Name, f.Score, band(f.Band), f.Interpretation)
		}
		for _, r := range t.Recommendations {
			fmt.Fprintf(&b, "  %s %s\n", okStyle.Render("+"), r.Text)
		}
	}
	return b.String()
}

func renderReport(r domain.CrossProfileReport) string {
	var b strings.Builder
	level := string(r.MatchLevel)
	if st, ok := matchStyles[r.MatchLevel]; ok {
		level = st.Render(level)
	}
	fmt.Fprintf(&b, "%s %s  %s %.2f  %s\n", dimStyle.Render("report"), r.ID, dimStyle.Render("average diff"), r.AverageDiff, level)
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("%-20s %8s %8s %8s  %s", "TRAIT", "A", "B", "DIFF", "CLASS")))
	for _, k := range traitOrder(r.ScoreGap) {
		g := r.ScoreGap[k]
		line := fmt.Sprintf("%-20s %8.1f %8.1f %8.1f  %s", k, g.ScoreA, g.ScoreB, g.Diff, g.Classification)
		if g.Incomplete {
			line += " " + warnStyle.Render("(incomplete)")
		}
		fmt.Fprintln(&b, line)
	}
	return b.String()
}

func renderMissing(list []domain.MissingResultEntry) string {
	if len(list) == 0 {
		return okStyle.Render("no completed assignment is missing its result") + "\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("%-38s %-30s %s", "ASSIGNMENT", "USER", "RESPONSES")))
	for _, m := range list {
		user := m.UserEmail
		if user == "" {
			user = m.Assignment.UserID
		}
		resp := errStyle.Render("no")
		if m.HasResponses {
			resp = okStyle.Render("yes")
		}
		fmt.Fprintf(&b, "%-38s %-30s %s\n", m.Assignment.ID, user, resp)
	}
	return b.String()
}

func renderOutcomes(out []service.RepairOutcome) string {
	var b strings.Builder
	repaired := 0
	for _, o := range out {
		switch {
		case o.Repaired:
			repaired++
			fmt.Fprintf(&b, "%s %s\n", okStyle.Render("repaired"), o.AssignmentID)
		default:
			fmt.Fprintf(&b, "%s %s %s\n", errStyle.Render("skipped "), o.AssignmentID, dimStyle.Render(o.Error))
		}
	}
	fmt.Fprintf(&b, "%d/%d repaired\n", repaired, len(out))
	return b.String()
}

func renderConfigs(list []domain.ScoringConfiguration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("%-38s %-28s %-14s %s", "ID", "NAME", "METHOD", "ACTIVE")))
	for _, c := range list {
		active := ""
		if c.IsActive {
			active = okStyle.Render("*")
		}
		fmt.Fprintf(&b, "%-38s %-28s %-14s %s\n", c.ID, c.Name, c.Method, active)
	}
	return b.String()
}
