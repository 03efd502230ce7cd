package report

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/doppelcode/doppel/internal/output"
	"github.com/doppelcode/doppel/pkg/clones"
	"github.com/doppelcode/doppel/pkg/stats"
)

// maxPairsShown caps the pair lines printed per cluster in the text report.
const maxPairsShown = 5

// Text renders the plain text report, capped at maxClusters clusters.
func Text(a *clones.Analysis, maxClusters int) string {
	return renderText(a, maxClusters, false)
}

func renderText(a *clones.Analysis, maxClusters int, colored bool) string {
	lines := []string{fmt.Sprintf("Clusters found: %d", len(a.Clusters)), ""}

	grouped := pairsByCluster(a)
	for ci, c := range a.Clusters[:clusterLimit(a, maxClusters)] {
		lines = append(lines, fmt.Sprintf("== Cluster %d (size=%d) ==", ci+1, c.Size))
		for _, m := range c.Members {
			lines = append(lines, fmt.Sprintf("- [%d] %s %s %s :: %s:%d-%d",
				m.Idx, m.Ref.Lang, m.Ref.Kind, m.Ref.Name,
				m.Ref.File, m.Ref.StartLine, m.Ref.EndLine))
		}
		pairs := grouped[ci]
		if len(pairs) > maxPairsShown {
			pairs = pairs[:maxPairsShown]
		}
		for _, p := range pairs {
			line := fmt.Sprintf("  sim=%.3f  [%d] <-> [%d]", p.Jaccard, p.A, p.B)
			if colored {
				line = output.SimilarityColor(p.Jaccard, line)
			}
			lines = append(lines, line)
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// clusterLimit clamps maxClusters to the renderable range.
func clusterLimit(a *clones.Analysis, maxClusters int) int {
	if maxClusters < 0 {
		maxClusters = 0
	}
	if maxClusters > len(a.Clusters) {
		return len(a.Clusters)
	}
	return maxClusters
}

// pairsByCluster groups the kept pairs by cluster, each group ordered the
// way the text report presents them: similarity descending, then higher
// fragment indices first.
func pairsByCluster(a *clones.Analysis) [][]clones.Pair {
	clusterOf := make(map[int]int)
	for ci, c := range a.Clusters {
		for _, m := range c.Members {
			clusterOf[m.Idx] = ci
		}
	}

	grouped := make([][]clones.Pair, len(a.Clusters))
	for _, p := range a.Pairs {
		ci, ok := clusterOf[p.A]
		if !ok {
			continue
		}
		if cj, ok := clusterOf[p.B]; !ok || cj != ci {
			continue
		}
		grouped[ci] = append(grouped[ci], p)
	}

	for _, pairs := range grouped {
		sort.Slice(pairs, func(i, j int) bool {
			if pairs[i].Jaccard != pairs[j].Jaccard {
				return pairs[i].Jaccard > pairs[j].Jaccard
			}
			if pairs[i].A != pairs[j].A {
				return pairs[i].A > pairs[j].A
			}
			return pairs[i].B > pairs[j].B
		})
	}
	return grouped
}

// Distribution summarizes the similarity scores of all kept pairs.
func Distribution(a *clones.Analysis) stats.Summary {
	sims := make([]float64, 0, len(a.Pairs))
	for _, p := range a.Pairs {
		sims = append(sims, p.Jaccard)
	}
	return stats.Summarize(sims)
}

// WriteJSON writes the analysis artifact with two-space indentation.
func WriteJSON(a *clones.Analysis, path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// WriteText writes the text report capped at maxClusters clusters.
func WriteText(a *clones.Analysis, path string, maxClusters int) error {
	return os.WriteFile(path, []byte(Text(a, maxClusters)), 0644)
}
