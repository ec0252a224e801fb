// Package selector chooses a bounded-duration, non-overlapping,
// score-maximizing subset of candidate highlight segments. It is a pure
// computation with no I/O; the analyzer produces the candidates and the
// renderer consumes the chosen list.
package selector

import (
	"math"
	"sort"

	"github.com/clipforge/clipforge-backend/internal/types"
)

// ToleranceFactor stretches the duration budget: the chosen segments may
// total up to TargetDuration * 1.1 seconds.
const ToleranceFactor = 1.1

// Params bound the selection.
type Params struct {
	TargetDuration float64 // T, seconds
	MaxCount       int     // K, upper bound on chosen segments
	SourceDuration float64 // D, total source length; candidate ends are clamped to it when set
}

// Select returns the chosen segments in source order. The result is
// deterministic: identical inputs produce identical output ordering.
//
// When no non-empty subset fits the duration budget, the single
// highest-scoring candidate is returned truncated to TargetDuration from
// its start, with reason "truncated".
func Select(candidates []types.Segment, p Params) []types.Segment {
	if p.TargetDuration <= 0 || p.MaxCount <= 0 {
		return nil
	}

	valid := filterValid(candidates, p.SourceDuration)
	if len(valid) == 0 {
		return nil
	}

	nonOverlapping := resolveOverlaps(valid)

	budget := int(math.Ceil(p.TargetDuration * ToleranceFactor))
	chosen := solve(nonOverlapping, p.MaxCount, budget)
	if len(chosen) > 0 {
		return chosen
	}

	// Every candidate alone blows the budget: truncate the best one.
	best := nonOverlapping[0]
	for _, s := range nonOverlapping[1:] {
		if higherPriority(s, best) {
			best = s
		}
	}
	if best.Duration() > p.TargetDuration {
		best.End = best.Start + p.TargetDuration
	}
	best.Reason = "truncated"
	return []types.Segment{best}
}

func filterValid(candidates []types.Segment, sourceDuration float64) []types.Segment {
	out := make([]types.Segment, 0, len(candidates))
	for _, s := range candidates {
		if sourceDuration > 0 && s.End > sourceDuration {
			s.End = sourceDuration
		}
		if s.End <= s.Start || s.Score <= 0 {
			continue
		}
		out = append(out, s)
	}
	return out
}

// higherPriority orders candidates for overlap resolution: higher score
// wins, ties go to the longer duration, then the earlier start.
func higherPriority(a, b types.Segment) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Duration() != b.Duration() {
		return a.Duration() > b.Duration()
	}
	return a.Start < b.Start
}

// resolveOverlaps drops the lower-priority segment of every intersecting
// pair, returning the surviving set sorted by start.
func resolveOverlaps(candidates []types.Segment) []types.Segment {
	ordered := make([]types.Segment, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return higherPriority(ordered[i], ordered[j])
	})

	var kept []types.Segment
	for _, cand := range ordered {
		conflict := false
		for _, k := range kept {
			if cand.Overlaps(k) {
				conflict = true
				break
			}
		}
		if !conflict {
			kept = append(kept, cand)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}

// solve runs the budgeted, cardinality-constrained weighted interval
// selection over a non-overlapping candidate set sorted by start.
// dp[i][k][b] is the best total score using a subset of the first i
// candidates with at most k picks and at most b seconds (1s buckets).
func solve(segs []types.Segment, maxCount, budget int) []types.Segment {
	n := len(segs)
	if n == 0 || budget <= 0 {
		return nil
	}
	if maxCount > n {
		maxCount = n
	}

	durs := make([]int, n)
	for i, s := range segs {
		d := int(math.Ceil(s.Duration()))
		if d < 1 {
			d = 1
		}
		durs[i] = d
	}

	dp := make([][][]float64, n+1)
	for i := range dp {
		dp[i] = make([][]float64, maxCount+1)
		for k := range dp[i] {
			dp[i][k] = make([]float64, budget+1)
		}
	}

	for i := 1; i <= n; i++ {
		for k := 0; k <= maxCount; k++ {
			for b := 0; b <= budget; b++ {
				best := dp[i-1][k][b]
				if k > 0 && durs[i-1] <= b {
					if take := dp[i-1][k-1][b-durs[i-1]] + segs[i-1].Score; take > best {
						best = take
					}
				}
				dp[i][k][b] = best
			}
		}
	}

	if dp[n][maxCount][budget] <= 0 {
		return nil
	}

	// Backtrack. On score ties prefer skipping the later candidate, which
	// keeps the subset using the earliest segments in source order.
	var chosen []types.Segment
	k, b := maxCount, budget
	for i := n; i >= 1; i-- {
		if dp[i][k][b] == dp[i-1][k][b] {
			continue
		}
		chosen = append(chosen, segs[i-1])
		k--
		b -= durs[i-1]
	}

	// Reverse back into source order.
	for l, r := 0, len(chosen)-1; l < r; l, r = l+1, r-1 {
		chosen[l], chosen[r] = chosen[r], chosen[l]
	}
	return chosen
}
