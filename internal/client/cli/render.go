package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/dmitrijs2005/medkeeper/internal/client/interactions"
	"github.com/dmitrijs2005/medkeeper/internal/client/models"
)

// renderMarkdown renders md for the terminal and falls back to the raw
// markdown when the renderer cannot be built.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

func interactionsMarkdown(res interactions.Result) string {
	var b strings.Builder
	b.WriteString("# Drug interactions\n\n")

	if res.Report == nil {
		fmt.Fprintf(&b, "You have %d active medication(s). Add at least %d to check interactions.\n",
			res.Medications, interactions.MinMedications)
		return b.String()
	}
	if res.Stale {
		b.WriteString("> Showing the last report; the latest check failed.\n\n")
	}
	if len(res.Report.Interactions) == 0 {
		b.WriteString("No known interactions between your active medications.\n")
	}

	for _, sev := range []models.Severity{models.SeverityMajor, models.SeverityModerate, models.SeverityMinor} {
		var group []models.Interaction
		for _, it := range res.Report.Interactions {
			if it.Severity == sev {
				group = append(group, it)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", strings.ToUpper(string(sev)))
		for _, it := range group {
			fmt.Fprintf(&b, "- **%s + %s**: %s\n", it.DrugA, it.DrugB, it.Description)
			if it.Recommendation != "" {
				fmt.Fprintf(&b, "  - %s\n", it.Recommendation)
			}
		}
		b.WriteString("\n")
	}
	if res.Report.Summary != "" {
		fmt.Fprintf(&b, "%s\n", res.Report.Summary)
	}
	return b.String()
}
