package committee

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
	"sort"
)

// seededRNG is a deterministic byte stream derived from sha256(seed || counter).
// It is consensus-safe and does not depend on platform RNGs.
type seededRNG struct {
	seed    [32]byte
	counter uint64
	buf     [32]byte
	bufPos  int
}

func newSeededRNG(seed [32]byte) *seededRNG {
	return &seededRNG{seed: seed, counter: 0, bufPos: len([32]byte{})}
}

func (r *seededRNG) Read(p []byte) {
	for len(p) > 0 {
		if r.bufPos >= len(r.buf) {
			r.refill()
		}
		n := copy(p, r.buf[r.bufPos:])
		r.bufPos += n
		p = p[n:]
	}
}

func (r *seededRNG) refill() {
	var in [32 + 8]byte
	copy(in[:32], r.seed[:])
	binary.LittleEndian.PutUint64(in[32:], r.counter)
	r.counter++
	r.buf = sha256.Sum256(in[:])
	r.bufPos = 0
}

func (r *seededRNG) bigIntn(max *big.Int) (*big.Int, error) {
	if max == nil || max.Sign() <= 0 {
		return nil, fmt.Errorf("max must be > 0")
	}
	if max.Cmp(big.NewInt(1)) == 0 {
		return big.NewInt(0), nil
	}

	// crypto/rand.Int-style rejection sampling:
	// draw uniformly from [0, 2^bitLen) and reject if >= max.
	bitLen := max.BitLen()
	nbytes := (bitLen + 7) / 8
	excess := uint(nbytes*8 - bitLen) // 0..7

	buf := make([]byte, nbytes)
	for tries := 0; tries < 1_000_000; tries++ {
		r.Read(buf)
		if excess != 0 {
			buf[0] &= byte(0xff >> excess)
		}

		v := new(big.Int).SetBytes(buf)
		if v.Cmp(max) < 0 {
			return v, nil
		}
	}

	return nil, fmt.Errorf("failed to draw bigIntn after many tries (max=%s)", max.String())
}

// PowerCandidate is an eligible validator for committee sampling. ID is the
// app's validator identifier (state.Validator.ValidatorID); Power is the bonded
// stake used for weighting (candidates with Power 0 are skipped).
type PowerCandidate struct {
	ID    string
	Power uint64
}

type weightedCandidate struct {
	id     string
	weight *big.Int
}

// SampleByPower samples k distinct validator ids from candidates, weighted by
// Power. Output is sorted ascending for canonical storage/indices.
func SampleByPower(seed [32]byte, candidates []PowerCandidate, k int) ([]string, error) {
	if k < 0 {
		return nil, fmt.Errorf("k must be >= 0")
	}
	if k == 0 {
		return []string{}, nil
	}

	pool := make([]weightedCandidate, 0, len(candidates))
	total := big.NewInt(0)
	seenIDs := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c.ID == "" {
			return nil, fmt.Errorf("candidate id is empty")
		}
		if c.Power == 0 {
			continue
		}
		if _, exists := seenIDs[c.ID]; exists {
			return nil, fmt.Errorf("duplicate candidate id: %s", c.ID)
		}
		seenIDs[c.ID] = struct{}{}

		w := new(big.Int).SetUint64(c.Power)
		pool = append(pool, weightedCandidate{id: c.ID, weight: w})
		total.Add(total, w)
	}

	if len(pool) < k {
		return nil, fmt.Errorf("not enough eligible candidates: have %d need %d", len(pool), k)
	}

	rng := newSeededRNG(seed)
	selected := make([]string, 0, k)

	var cum big.Int
	for i := 0; i < k; i++ {
		if total.Sign() <= 0 {
			return nil, fmt.Errorf("internal error: total weight became non-positive")
		}

		r, err := rng.bigIntn(total)
		if err != nil {
			return nil, err
		}

		cum.SetInt64(0)
		pick := -1
		for j := range pool {
			cum.Add(&cum, pool[j].weight)
			if cum.Cmp(r) == 1 { // cum > r
				pick = j
				break
			}
		}
		if pick < 0 {
			return nil, fmt.Errorf("internal error: failed to pick candidate")
		}

		selected = append(selected, pool[pick].id)
		total.Sub(total, pool[pick].weight)

		// Remove picked element (swap-remove).
		last := len(pool) - 1
		pool[pick] = pool[last]
		pool = pool[:last]
	}

	sort.Strings(selected)
	return selected, nil
}

// SampleCandidatesByPower samples k distinct candidates, weighted by Power.
// Output is sorted ascending by id for canonical storage/indices.
func SampleCandidatesByPower(seed [32]byte, candidates []PowerCandidate, k int) ([]PowerCandidate, error) {
	ids, err := SampleByPower(seed, candidates, k)
	if err != nil {
		return nil, err
	}

	powerByID := make(map[string]uint64, len(candidates))
	for _, c := range candidates {
		if c.ID == "" {
			return nil, fmt.Errorf("candidate id is empty")
		}
		if c.Power == 0 {
			continue
		}
		if _, exists := powerByID[c.ID]; exists {
			return nil, fmt.Errorf("duplicate candidate id: %s", c.ID)
		}
		powerByID[c.ID] = c.Power
	}

	out := make([]PowerCandidate, 0, len(ids))
	for _, id := range ids {
		p, ok := powerByID[id]
		if !ok {
			return nil, fmt.Errorf("selected id not present in candidates: %s", id)
		}
		out = append(out, PowerCandidate{ID: id, Power: p})
	}

	return out, nil
}
