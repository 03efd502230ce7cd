package clones

import (
	"encoding/binary"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

var kgramSep = []byte{' '}

// kgramHashes returns one stable 64-bit hash per k-gram position, in
// token order. Fewer than k tokens yields no k-grams. Hashes come from
// blake3 truncated to 64 bits, so they are identical across processes
// and platforms.
func kgramHashes(tokens []string, k int) []uint64 {
	if k <= 0 || len(tokens) < k {
		return nil
	}
	out := make([]uint64, 0, len(tokens)-k+1)
	h := blake3.New()
	for i := 0; i <= len(tokens)-k; i++ {
		h.Reset()
		for j := i; j < i+k; j++ {
			if j > i {
				h.Write(kgramSep)
			}
			h.Write([]byte(tokens[j]))
		}
		sum := h.Sum(nil)
		out = append(out, binary.LittleEndian.Uint64(sum[:8]))
	}
	return out
}

// winnow selects the minimum hash of every w-length window over the
// k-gram hash sequence, using a monotonic deque. On equal hashes the
// rightmost position wins; that tie-break affects which fingerprints
// are selected and must not change. A window of w <= 1 selects every
// hash.
func winnow(hashes []uint64, w int) *roaring64.Bitmap {
	selected := roaring64.New()
	if len(hashes) == 0 {
		return selected
	}
	if w <= 1 {
		selected.AddMany(hashes)
		return selected
	}

	type entry struct {
		hash uint64
		pos  int
	}
	dq := make([]entry, 0, w)

	for i, hv := range hashes {
		for len(dq) > 0 && dq[len(dq)-1].hash >= hv {
			dq = dq[:len(dq)-1]
		}
		dq = append(dq, entry{hash: hv, pos: i})
		for len(dq) > 0 && dq[0].pos <= i-w {
			dq = dq[1:]
		}
		if i >= w-1 && len(dq) > 0 {
			selected.Add(dq[0].hash)
		}
	}
	return selected
}

// Fingerprints computes the winnowed fingerprint set for a token
// sequence: k-gram hashing followed by winnowing with window w.
func Fingerprints(tokens []string, k, w int) *roaring64.Bitmap {
	return winnow(kgramHashes(tokens, k), w)
}

// TokenHash hashes the full normalized token sequence. Two fragments
// with equal token hashes are exact clones modulo identifier names and
// literal values.
func TokenHash(tokens []string) uint64 {
	return xxhash.Sum64String(strings.Join(tokens, " "))
}

// Jaccard returns |intersection| / |union| of two fingerprint sets, or
// 0 when either is empty.
func Jaccard(a, b *roaring64.Bitmap) float64 {
	if a == nil || b == nil || a.IsEmpty() || b.IsEmpty() {
		return 0
	}
	inter := a.Clone()
	inter.And(b)
	ic := inter.GetCardinality()
	if ic == 0 {
		return 0
	}
	union := a.GetCardinality() + b.GetCardinality() - ic
	return float64(ic) / float64(union)
}
