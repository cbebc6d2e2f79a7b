// Package report renders experiment results for people and spreadsheets
package report

import (
	"fmt"
	"io"
	"strings"

	"robustbai/domain/bandit"
	"robustbai/domain/core"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders one or more experiments as a Markdown document: a
// comparison table followed by per-experiment trial detail.
func Markdown(experiments ...*bandit.Experiment) string {
	var b strings.Builder

	b.WriteString("# Max-min best-arm identification\n\n")
	if len(experiments) == 0 {
		b.WriteString("No experiments.\n")
		return b.String()
	}

	b.WriteString("| Run | Algorithm | Trials | Accuracy | Not converged | Mean samples | Std dev | Median | P90 |\n")
	b.WriteString("|---|---|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, e := range experiments {
		s := e.Summary
		fmt.Fprintf(&b, "| %s | %s | %d | %.3f | %d | %.1f | %.1f | %.1f | %.1f |\n",
			shortRun(e.RunID), e.Algorithm, s.Trials, s.Accuracy, s.Failed,
			s.Samples.Mean, s.Samples.StdDev, s.Samples.Median, s.Samples.P90)
	}

	for _, e := range experiments {
		writeExperiment(&b, e)
	}
	return b.String()
}

func writeExperiment(b *strings.Builder, e *bandit.Experiment) {
	title := string(e.Algorithm)
	if e.Name != "" {
		title = e.Name + " / " + title
	}
	fmt.Fprintf(b, "\n## %s\n\n", title)
	fmt.Fprintf(b, "- Run: `%s`\n", e.RunID)
	fmt.Fprintf(b, "- Instance: `%s` (%d groups, %d arms)\n",
		e.Fingerprint.Short(), e.Instance.NumGroups(), e.Instance.NumArms())
	fmt.Fprintf(b, "- Best groups: %s\n", formatGroups(e.BestGroups))
	fmt.Fprintf(b, "- Base seed: %d\n", e.BaseSeed)
	if !e.StartedAt.IsZero() {
		fmt.Fprintf(b, "- Started: %s, took %v\n", e.StartedAt.Format(), e.Elapsed)
	}

	b.WriteString("\n| Trial | Groups | Samples | Rounds | Correct | Converged |\n")
	b.WriteString("|---:|---|---:|---:|:---:|:---:|\n")
	for _, t := range e.Trials {
		fmt.Fprintf(b, "| %d | %s | %d | %d | %s | %s |\n",
			t.Trial, formatGroups(t.Groups), t.Samples, t.Rounds, mark(t.Correct), mark(t.Converged))
	}
}

// HTML renders the Markdown report as a standalone HTML page
func HTML(experiments ...*bandit.Experiment) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(Markdown(experiments...)))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Max-min best-arm identification",
	})
	return markdown.Render(doc, renderer)
}

// WriteMarkdown writes the Markdown report to w
func WriteMarkdown(w io.Writer, experiments ...*bandit.Experiment) error {
	_, err := io.WriteString(w, Markdown(experiments...))
	return err
}

// WriteHTML writes the HTML report to w
func WriteHTML(w io.Writer, experiments ...*bandit.Experiment) error {
	_, err := w.Write(HTML(experiments...))
	return err
}

func formatGroups(groups []core.GroupID) string {
	if len(groups) == 0 {
		return "-"
	}
	parts := make([]string, len(groups))
	for i, g := range groups {
		if g == core.FailedGroup {
			parts[i] = "failed"
			continue
		}
		parts[i] = fmt.Sprintf("%d", int(g))
	}
	return strings.Join(parts, ", ")
}

func shortRun(id core.RunID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
