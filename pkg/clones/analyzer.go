package clones

import (
	"context"
	"sort"

	"github.com/doppelcode/doppel/internal/fileproc"
)

// Config holds fingerprinting and clustering parameters.
type Config struct {
	// K is the k-gram length in tokens.
	K int
	// W is the winnowing window length in k-grams.
	W int
	// MinTokens is the minimum token count to retain a fragment.
	MinTokens int
	// MinJaccard is the minimum similarity for a pair to be kept.
	MinJaccard float64
	// MinSharedFPs is the minimum shared fingerprint count to shortlist
	// a candidate pair.
	MinSharedFPs int
	// TopK caps the candidates considered per fragment.
	TopK int
	// Workers bounds the fingerprinting concurrency; <= 0 uses the
	// fileproc default.
	Workers int
}

// DefaultConfig returns the default analyzer configuration.
func DefaultConfig() Config {
	return Config{
		K:            8,
		W:            10,
		MinTokens:    80,
		MinJaccard:   0.55,
		MinSharedFPs: 12,
		TopK:         50,
	}
}

// Analyzer detects near-duplicate fragments via winnowed fingerprints
// and Jaccard clustering.
type Analyzer struct {
	config Config
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithKGramSize sets the k-gram length in tokens.
func WithKGramSize(k int) Option {
	return func(a *Analyzer) { a.config.K = k }
}

// WithWindow sets the winnowing window length in k-grams.
func WithWindow(w int) Option {
	return func(a *Analyzer) { a.config.W = w }
}

// WithMinTokens sets the minimum token count to retain a fragment.
func WithMinTokens(n int) Option {
	return func(a *Analyzer) { a.config.MinTokens = n }
}

// WithMinJaccard sets the similarity threshold for keeping a pair.
func WithMinJaccard(j float64) Option {
	return func(a *Analyzer) { a.config.MinJaccard = j }
}

// WithMinSharedFingerprints sets the shortlist threshold.
func WithMinSharedFingerprints(n int) Option {
	return func(a *Analyzer) { a.config.MinSharedFPs = n }
}

// WithTopK caps the candidates considered per fragment.
func WithTopK(n int) Option {
	return func(a *Analyzer) { a.config.TopK = n }
}

// WithWorkers bounds the fingerprinting concurrency.
func WithWorkers(n int) Option {
	return func(a *Analyzer) { a.config.Workers = n }
}

// New creates an Analyzer with the given options applied over defaults.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{config: DefaultConfig()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the analyzer's effective configuration.
func (a *Analyzer) Config() Config {
	return a.config
}

// fingerprint normalizes, tokenizes, and fingerprints one raw fragment.
// Returns nil when the fragment is dropped: too few tokens, or an empty
// fingerprint set.
func (a *Analyzer) fingerprint(raw RawFragment) *Fragment {
	norm := Normalize(raw.Text, raw.Ref.Lang)
	tokens := Tokenize(norm)
	if len(tokens) < a.config.MinTokens {
		return nil
	}
	fps := Fingerprints(tokens, a.config.K, a.config.W)
	if fps.IsEmpty() {
		return nil
	}
	return &Fragment{
		Ref:          raw.Ref,
		Tokens:       tokens,
		Fingerprints: fps,
		TokenHash:    TokenHash(tokens),
	}
}

// Analyze runs the full pipeline over raw fragments. Zero fragments in
// yields a well-formed empty result, never an error; the only error
// returned is context cancellation.
func (a *Analyzer) Analyze(ctx context.Context, raws []RawFragment) (*Analysis, error) {
	return a.AnalyzeWithProgress(ctx, raws, nil)
}

// AnalyzeWithProgress is Analyze with a per-fragment progress callback.
//
// Fingerprinting runs in parallel; results are collected back in
// discovery order before indexing so the fragment indices, and with
// them every downstream ordering, stay reproducible. Candidate
// indexing and clustering are sequential since union-find is shared
// mutable state.
func (a *Analyzer) AnalyzeWithProgress(ctx context.Context, raws []RawFragment, onProgress fileproc.ProgressFunc) (*Analysis, error) {
	fingerprinted, _ := fileproc.MapIndexed(ctx, raws, a.config.Workers,
		func(_ int, raw RawFragment) (*Fragment, error) {
			return a.fingerprint(raw), nil
		}, onProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frags := make([]*Fragment, 0, len(fingerprinted))
	for _, f := range fingerprinted {
		if f != nil {
			frags = append(frags, f)
		}
	}

	clusterIdx, pairScores := clusterFragments(frags, a.config.MinJaccard, a.config.MinSharedFPs, a.config.TopK)

	analysis := &Analysis{
		Settings: Settings{
			K:            a.config.K,
			W:            a.config.W,
			MinTokens:    a.config.MinTokens,
			MinJaccard:   a.config.MinJaccard,
			MinSharedFPs: a.config.MinSharedFPs,
			TopK:         a.config.TopK,
		},
		Stats: Stats{
			RawFragments:     len(raws),
			IndexedFragments: len(frags),
			Clusters:         len(clusterIdx),
			PairsKept:        len(pairScores),
		},
		Clusters:  make([]*Cluster, 0, len(clusterIdx)),
		Fragments: frags,
	}

	clusterOf := make(map[int]int, len(frags))
	for ci, members := range clusterIdx {
		cluster := &Cluster{
			Size:    len(members),
			Members: make([]Member, 0, len(members)),
		}
		for _, idx := range members {
			clusterOf[idx] = ci
			cluster.Members = append(cluster.Members, Member{
				Idx:          idx,
				Ref:          frags[idx].Ref,
				Fingerprints: int(frags[idx].Fingerprints.GetCardinality()),
				Tokens:       len(frags[idx].Tokens),
			})
		}
		analysis.Clusters = append(analysis.Clusters, cluster)
	}

	analysis.Pairs = make([]Pair, 0, len(pairScores))
	for key, sim := range pairScores {
		analysis.Pairs = append(analysis.Pairs, Pair{
			A:       key.A,
			B:       key.B,
			Jaccard: sim,
			Exact:   frags[key.A].TokenHash == frags[key.B].TokenHash,
		})
		if ca, ok := clusterOf[key.A]; ok {
			if cb, okB := clusterOf[key.B]; okB && ca == cb {
				c := analysis.Clusters[ca]
				if sim > c.BestPairJaccard {
					c.BestPairJaccard = sim
				}
			}
		}
	}
	sort.Slice(analysis.Pairs, func(i, j int) bool {
		if analysis.Pairs[i].A != analysis.Pairs[j].A {
			return analysis.Pairs[i].A < analysis.Pairs[j].A
		}
		return analysis.Pairs[i].B < analysis.Pairs[j].B
	})

	return analysis, nil
}
