package schedule

// SeedingStrategy returns the first knockout round's participants in bracket
// order: entries 0 and 1 meet, then 2 and 3, and so on.
type SeedingStrategy interface {
	Qualifiers(groups []string) []Participant
}

type SeedingFunc func(groups []string) []Participant

func (f SeedingFunc) Qualifiers(groups []string) []Participant {
	return f(groups)
}

// CrossoverSeeding is the fixed two group bracket: each group winner meets
// the other group's runner-up.
type CrossoverSeeding struct{}

func (CrossoverSeeding) Qualifiers(groups []string) []Participant {
	if len(groups) < 2 {
		return nil
	}
	a, b := groups[0], groups[1]
	return []Participant{
		Placeholder(GroupRankLabel(1, a)), Placeholder(GroupRankLabel(2, b)),
		Placeholder(GroupRankLabel(1, b)), Placeholder(GroupRankLabel(2, a)),
	}
}

// RankedSeeding fills the smallest power-of-two bracket that holds every
// group winner. Winners come first in group order, then runners-up in
// reverse group order, and seeds are paired 1 vs N, 2 vs N-1 in standard
// bracket positions.
type RankedSeeding struct{}

func (RankedSeeding) Qualifiers(groups []string) []Participant {
	if len(groups) == 0 {
		return nil
	}
	size := 2
	for size < len(groups) {
		size *= 2
	}

	seeds := make([]Participant, 0, size)
	for rank := 1; len(seeds) < size; rank++ {
		for i := range groups {
			if len(seeds) == size {
				break
			}
			name := groups[i]
			if rank%2 == 0 {
				name = groups[len(groups)-1-i]
			}
			seeds = append(seeds, Placeholder(GroupRankLabel(rank, name)))
		}
	}

	ordered := make([]Participant, 0, size)
	for _, seed := range bracketOrder(size) {
		ordered = append(ordered, seeds[seed-1])
	}
	return ordered
}

// bracketOrder returns 1-based seeds laid out so the top seeds can only meet
// in the last round, e.g. [1 8 4 5 2 7 3 6] for eight.
func bracketOrder(size int) []int {
	order := []int{1}
	for len(order) < size {
		next := make([]int, 0, len(order)*2)
		total := len(order)*2 + 1
		for _, seed := range order {
			next = append(next, seed, total-seed)
		}
		order = next
	}
	return order
}
