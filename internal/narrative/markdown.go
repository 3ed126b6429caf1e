package narrative

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders a findings report as a Markdown document, severity
// sections first
func Markdown(report *Report) string {
	var b strings.Builder

	title := report.RunName
	if title == "" {
		title = report.RunID
	}
	if report.Compared != "" {
		fmt.Fprintf(&b, "## Findings: %s (%s vs %s)\n\n", title, report.Compared, report.Model)
	} else {
		fmt.Fprintf(&b, "## Findings: %s (%s)\n\n", title, report.Model)
	}

	if len(report.Findings) == 0 {
		b.WriteString("No findings. Every slice tracks the overall metrics within tolerance.\n")
		return b.String()
	}

	counts := severityCounts(report.Findings)
	fmt.Fprintf(&b, "%d findings: %d high, %d medium, %d low.\n",
		len(report.Findings), counts[SeverityHigh], counts[SeverityMedium], counts[SeverityLow])

	for _, severity := range []string{SeverityHigh, SeverityMedium, SeverityLow} {
		section := filterBySeverity(report.Findings, severity)
		if len(section) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### %s severity\n\n", strings.ToUpper(severity[:1])+severity[1:])
		for _, finding := range section {
			fmt.Fprintf(&b, "- **%s**: %s\n", findingLabel(finding.Kind), finding.Detail)
		}
	}
	return b.String()
}

// HTML renders a findings report as an HTML fragment via Markdown
func HTML(report *Report) []byte {
	return RenderHTML(Markdown(report))
}

// RenderHTML converts Markdown text to HTML. Used for findings reports
// and for the free-form notes an evaluation config can carry.
func RenderHTML(md string) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}

// findingLabel renders a finding kind for display
func findingLabel(kind string) string {
	switch kind {
	case FindingDisparity:
		return "Disparity"
	case FindingWideInterval:
		return "Wide interval"
	case FindingSmallSlice:
		return "Small slice"
	case FindingUndefinedMetric:
		return "Undefined metric"
	case FindingRegression:
		return "Regression"
	}
	return kind
}

func severityCounts(findings []Finding) map[string]int {
	counts := make(map[string]int)
	for _, finding := range findings {
		counts[finding.Severity]++
	}
	return counts
}

func filterBySeverity(findings []Finding, severity string) []Finding {
	var out []Finding
	for _, finding := range findings {
		if finding.Severity == severity {
			out = append(out, finding)
		}
	}
	return out
}
