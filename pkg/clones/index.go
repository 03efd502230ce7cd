package clones

import "sort"

// pairKey is a canonical fragment index pair, A < B.
type pairKey struct {
	A int
	B int
}

func canonicalPair(i, j int) pairKey {
	if i < j {
		return pairKey{A: i, B: j}
	}
	return pairKey{A: j, B: i}
}

// clusterFragments partitions fragments into clone clusters.
//
// An inverted index maps each fingerprint to the fragments containing
// it, so only fragments that literally share a fingerprint are ever
// compared. Per fragment, candidates are shortlisted by shared
// fingerprint count (descending, ties by ascending index) and capped at
// topk; each surviving canonical pair is Jaccard-scored exactly once,
// and pairs at or above minJaccard are unioned. Clusters are the
// union-find buckets of size >= 2, members ascending, ordered by
// descending size then ascending first member. Every step is
// deterministic for a fixed fragment order.
func clusterFragments(frags []*Fragment, minJaccard float64, minShared, topk int) ([][]int, map[pairKey]float64) {
	inv := make(map[uint64][]int)
	for i, f := range frags {
		it := f.Fingerprints.Iterator()
		for it.HasNext() {
			fp := it.Next()
			inv[fp] = append(inv[fp], i)
		}
	}

	pairScores := make(map[pairKey]float64)
	scored := make(map[pairKey]bool)

	parent := make([]int, len(frags))
	rank := make([]int, len(frags))
	for i := range parent {
		parent[i] = i
	}

	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}

	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		switch {
		case rank[ra] < rank[rb]:
			parent[ra] = rb
		case rank[ra] > rank[rb]:
			parent[rb] = ra
		default:
			parent[rb] = ra
			rank[ra]++
		}
	}

	type candidate struct {
		idx    int
		shared int
	}

	for i, f := range frags {
		counts := make(map[int]int)
		it := f.Fingerprints.Iterator()
		for it.HasNext() {
			for _, j := range inv[it.Next()] {
				if j != i {
					counts[j]++
				}
			}
		}

		cands := make([]candidate, 0, len(counts))
		for j, c := range counts {
			if c >= minShared {
				cands = append(cands, candidate{idx: j, shared: c})
			}
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].shared != cands[b].shared {
				return cands[a].shared > cands[b].shared
			}
			return cands[a].idx < cands[b].idx
		})
		if limit := max(0, topk); len(cands) > limit {
			cands = cands[:limit]
		}

		for _, c := range cands {
			key := canonicalPair(i, c.idx)
			if scored[key] {
				continue
			}
			scored[key] = true
			sim := Jaccard(frags[key.A].Fingerprints, frags[key.B].Fingerprints)
			if sim >= minJaccard {
				pairScores[key] = sim
				union(key.A, key.B)
			}
		}
	}

	buckets := make(map[int][]int)
	for i := range frags {
		root := find(i)
		buckets[root] = append(buckets[root], i)
	}

	var clusters [][]int
	for _, members := range buckets {
		if len(members) >= 2 {
			sort.Ints(members)
			clusters = append(clusters, members)
		}
	}
	sort.Slice(clusters, func(a, b int) bool {
		if len(clusters[a]) != len(clusters[b]) {
			return len(clusters[a]) > len(clusters[b])
		}
		return clusters[a][0] < clusters[b][0]
	})
	return clusters, pairScores
}
