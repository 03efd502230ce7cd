// Package report renders clone analyses into on-disk artifacts and
// console summaries.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/doppelcode/doppel/internal/output"
	"github.com/doppelcode/doppel/pkg/clones"
)

// Summary presents a clone analysis in the console formats. MaxClusters
// caps how many clusters are rendered; totals always reflect the full
// analysis.
type Summary struct {
	Analysis    *clones.Analysis
	MaxClusters int
}

// RenderData returns the analysis for JSON and TOON serialization.
func (s *Summary) RenderData() any {
	return s.Analysis
}

// RenderText writes the plain text report. When colored, pair lines are
// tinted by similarity strength.
func (s *Summary) RenderText(w io.Writer, colored bool) error {
	_, err := io.WriteString(w, renderText(s.Analysis, s.MaxClusters, colored))
	return err
}

// RenderMarkdown writes the report as markdown sections and tables.
func (s *Summary) RenderMarkdown(w io.Writer) error {
	a := s.Analysis
	r := &output.Report{Title: "Clone Report", Data: a}

	r.Sections = append(r.Sections, &output.Section{
		Title: "Overview",
		Content: fmt.Sprintf("Indexed fragments: %d\nClusters: %d\nPairs kept: %d",
			a.Stats.IndexedFragments, a.Stats.Clusters, a.Stats.PairsKept),
	})

	if len(a.Pairs) > 0 {
		d := Distribution(a)
		r.Sections = append(r.Sections, output.NewTable(
			"Similarity",
			[]string{"Pairs", "Mean", "P50", "P95", "Max"},
			[][]string{{
				strconv.Itoa(d.Count),
				fmt.Sprintf("%.3f", d.Mean),
				fmt.Sprintf("%.3f", d.P50),
				fmt.Sprintf("%.3f", d.P95),
				fmt.Sprintf("%.3f", d.Max),
			}},
			nil,
			d,
		))
	}

	for ci, c := range a.Clusters[:clusterLimit(a, s.MaxClusters)] {
		rows := make([][]string, 0, len(c.Members))
		for _, m := range c.Members {
			rows = append(rows, []string{
				strconv.Itoa(m.Idx),
				string(m.Ref.Lang),
				string(m.Ref.Kind),
				m.Ref.Name,
				fmt.Sprintf("%s:%d-%d", m.Ref.File, m.Ref.StartLine, m.Ref.EndLine),
			})
		}
		title := fmt.Sprintf("Cluster %d (size=%d, best=%.3f)", ci+1, c.Size, c.BestPairJaccard)
		r.Sections = append(r.Sections, output.NewTable(
			title,
			[]string{"Idx", "Lang", "Kind", "Name", "Location"},
			rows,
			nil,
			c,
		))
	}

	return r.RenderMarkdown(w)
}
