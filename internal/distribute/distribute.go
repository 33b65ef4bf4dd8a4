// Package distribute assigns one question text to every student of an exam.
//
// Students are processed in registration order. Each position draws from the
// questions that differ from the previous student's question and that have not
// yet reached the evenness floor (numStudents / len(questions)). When that set
// is empty the floor is dropped, and when even that leaves nothing the whole
// pool is used. The result always has exactly numStudents entries.
package distribute

import "math/rand/v2"

// Rand is the source of randomness used to break ties between candidates.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Tier reports which candidate set a position was drawn from.
type Tier int

const (
	// TierStrict means both the adjacency and the evenness rule held.
	TierStrict Tier = iota
	// TierAdjacency means the evenness rule was dropped.
	TierAdjacency
	// TierAny means the whole pool was used and adjacency may be violated.
	TierAny
)

func (t Tier) String() string {
	switch t {
	case TierStrict:
		return "strict"
	case TierAdjacency:
		return "adjacency"
	case TierAny:
		return "any"
	default:
		return "unknown"
	}
}

type processRand struct{}

func (processRand) IntN(n int) int { return rand.IntN(n) }

// Distributor allocates questions using an injected random source.
type Distributor struct {
	rng Rand
}

// New returns a Distributor drawing from r. A nil r uses the process-wide
// generator.
func New(r Rand) *Distributor {
	if r == nil {
		r = processRand{}
	}
	return &Distributor{rng: r}
}

// Distribute is shorthand for New(nil).Distribute.
func Distribute(numStudents int, questions []string) []string {
	return New(nil).Distribute(numStudents, questions)
}

// Distribute returns numStudents questions, one per student in order.
func (d *Distributor) Distribute(numStudents int, questions []string) []string {
	out, _ := d.Plan(numStudents, questions)
	return out
}

// Plan is Distribute that also reports the tier each position was drawn from.
func (d *Distributor) Plan(numStudents int, questions []string) ([]string, []Tier) {
	if numStudents <= 0 || len(questions) == 0 {
		return []string{}, []Tier{}
	}

	out := make([]string, numStudents)
	tiers := make([]Tier, numStudents)

	if singleText(questions) {
		for i := range out {
			out[i] = questions[0]
		}
		return out, tiers
	}

	floor := numStudents / len(questions)
	usage := make([]int, len(questions))
	candidates := make([]int, 0, len(questions))

	for i := 0; i < numStudents; i++ {
		var prev string
		hasPrev := i > 0
		if hasPrev {
			prev = out[i-1]
		}
		relaxed := allAtLeast(usage, floor)

		tier := TierStrict
		candidates = candidates[:0]
		for j, q := range questions {
			if hasPrev && q == prev {
				continue
			}
			if usage[j] < floor || relaxed {
				candidates = append(candidates, j)
			}
		}

		if len(candidates) == 0 {
			tier = TierAdjacency
			for j, q := range questions {
				if !hasPrev || q != prev {
					candidates = append(candidates, j)
				}
			}
		}

		if len(candidates) == 0 {
			tier = TierAny
			for j := range questions {
				candidates = append(candidates, j)
			}
		}

		j := d.pick(candidates, usage)
		out[i] = questions[j]
		tiers[i] = tier
		usage[j]++
	}

	return out, tiers
}

// pick draws uniformly among the least-used candidates. It reorders
// candidates in place.
func (d *Distributor) pick(candidates []int, usage []int) int {
	least := usage[candidates[0]]
	for _, j := range candidates[1:] {
		if usage[j] < least {
			least = usage[j]
		}
	}
	n := 0
	for _, j := range candidates {
		if usage[j] == least {
			candidates[n] = j
			n++
		}
	}
	return candidates[d.rng.IntN(n)]
}

// Degraded counts the positions that were not drawn from the strict tier.
func Degraded(tiers []Tier) int {
	n := 0
	for _, t := range tiers {
		if t != TierStrict {
			n++
		}
	}
	return n
}

func singleText(questions []string) bool {
	for _, q := range questions[1:] {
		if q != questions[0] {
			return false
		}
	}
	return true
}

func allAtLeast(usage []int, floor int) bool {
	for _, u := range usage {
		if u < floor {
			return false
		}
	}
	return true
}
