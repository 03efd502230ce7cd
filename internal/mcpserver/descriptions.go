package mcpserver

// Tool descriptions with interpretation guidance for LLMs.
// Each description explains what the tool does, when to use it,
// how to interpret results, and key thresholds.

func describeScanClones() string {
	return `Detects near-duplicate code fragments (clones) across a codebase using winnowing fingerprints.

USE WHEN:
- Finding copy-paste code that should be refactored into shared helpers
- Auditing duplication before a refactor or a code review
- Checking whether new code restates logic that already exists elsewhere
- Measuring how much of a codebase is cloned

INTERPRETING RESULTS:
- Clusters group fragments that are transitive near-duplicates
- best_pair_jaccard: similarity of the closest pair in the cluster (0.0-1.0)
- jaccard 1.0 with exact: identical token streams after normalization
- jaccard >= 0.8: near-exact clone, likely copy-paste with small edits
- jaccard 0.55-0.8: related logic, consider a shared abstraction
- Fragments from the same file can cluster (in-file duplication)
- Comments, whitespace, literal values, and identifier names are
  normalized away, so clones survive renames and constant changes

METRICS RETURNED:
- clusters: members with file, line range, kind, name, token counts
- pairs: scored fragment pairs with jaccard and exact flags
- stats: raw_fragments, indexed_fragments, clusters, pairs_kept
- settings: the thresholds the run used

Results are deterministic for identical inputs. Raise min_tokens or
min_block_lines to cut noise from trivial fragments.`
}

func describeCompareFiles() string {
	return `Compares exactly two files for cloned fragments and reports their similarity.

USE WHEN:
- Verifying whether one file was copied from another
- Checking two suspiciously similar implementations before merging them
- Reviewing a vendored or forked file against its upstream copy
- Confirming a suspected clone reported by scan_clones

INTERPRETING RESULTS:
- pairs: scored fragment pairs across (and within) the two files
- jaccard 1.0 with exact: identical normalized token streams
- jaccard >= 0.8: near-exact clone
- no pairs: no fragment pair cleared the similarity thresholds
- Normalization ignores comments, whitespace, literal values, and
  identifier names, so renamed copies still match

METRICS RETURNED:
- pairs: fragment pairs with jaccard and exact flags
- clusters: linked fragments across the two files
- stats and settings for the run

Thresholds are relaxed for direct comparison (mode both, min_tokens 24,
min_shared 2) so small files still produce a verdict. Override them via
the input fields when scanning-strength gates are wanted.`
}
