package schedule

import (
	"strings"

	"github.com/google/uuid"
)

// Generate builds the unscheduled match list for teams under cfg. Matches are
// emitted round-major with dense 1-based slots; ScheduledAt is left unset.
func Generate(teams []Team, cfg TournamentConfig) ([]Match, error) {
	if err := validateTeams(teams); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var matches []Match
	switch cfg.GameMode {
	case GameModeRoundRobin:
		for _, pairing := range buildRoundRobinPairs(teams) {
			matches = append(matches, newMatch(pairing.Home, pairing.Away, pairing.Round, "", ""))
		}
	case GameModeGroupsWithFinals:
		if cfg.NumberOfGroups > len(teams) {
			return nil, configErrorf("numberOfGroups", "must not exceed the number of teams (%d)", len(teams))
		}
		groupMatches, lastRound := buildGroupStage(teams, cfg.NumberOfGroups)
		playoffs, err := buildPlayoffs(cfg, lastRound+1)
		if err != nil {
			return nil, err
		}
		matches = append(groupMatches, playoffs...)
	}

	return numberSlots(matches), nil
}

func validateTeams(teams []Team) error {
	if len(teams) < 2 {
		return configErrorf("teams", "at least two teams are required, got %d", len(teams))
	}
	seen := make(map[string]struct{}, len(teams))
	for _, team := range teams {
		id := strings.TrimSpace(team.ID)
		if id == "" {
			return configErrorf("teams", "team id is required")
		}
		if _, ok := seen[id]; ok {
			return configErrorf("teams", "duplicate team id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

type roundPair struct {
	Round int
	Home  Participant
	Away  Participant
}

// buildRoundRobinPairs uses the circle method: the first team stays fixed
// while the rest rotate. An odd field gets a nil bye entry.
func buildRoundRobinPairs(teams []Team) []roundPair {
	working := make([]*Team, 0, len(teams)+1)
	for i := range teams {
		working = append(working, &teams[i])
	}
	if len(working)%2 == 1 {
		working = append(working, nil)
	}

	rounds := len(working) - 1
	pairs := make([]roundPair, 0, rounds*len(working)/2)

	for round := 0; round < rounds; round++ {
		for i := 0; i < len(working)/2; i++ {
			left := working[i]
			right := working[len(working)-1-i]
			if left == nil || right == nil {
				continue
			}
			home := TeamRef(strings.TrimSpace(left.ID))
			away := TeamRef(strings.TrimSpace(right.ID))
			if i == 0 && round%2 == 1 {
				home, away = away, home
			}
			pairs = append(pairs, roundPair{
				Round: round + 1,
				Home:  home,
				Away:  away,
			})
		}
		rotateTeams(working)
	}

	return pairs
}

func rotateTeams(teams []*Team) {
	if len(teams) <= 2 {
		return
	}
	last := teams[len(teams)-1]
	copy(teams[2:], teams[1:len(teams)-1])
	teams[1] = last
}

// partitionTeams deals teams into count groups in input order, so group
// sizes never differ by more than one.
func partitionTeams(teams []Team, count int) [][]Team {
	groups := make([][]Team, count)
	for i, team := range teams {
		groups[i%count] = append(groups[i%count], team)
	}
	return groups
}

// buildGroupStage runs a round robin per group and interleaves them so that
// round k of every group precedes round k+1 of any group. It returns the
// matches and the highest group round.
func buildGroupStage(teams []Team, groupCount int) ([]Match, int) {
	groups := partitionTeams(teams, groupCount)

	byRound := make([][][]roundPair, len(groups))
	maxRound := 0
	for gi, members := range groups {
		if len(members) < 2 {
			continue
		}
		for _, pairing := range buildRoundRobinPairs(members) {
			for len(byRound[gi]) < pairing.Round {
				byRound[gi] = append(byRound[gi], nil)
			}
			byRound[gi][pairing.Round-1] = append(byRound[gi][pairing.Round-1], pairing)
		}
		if len(byRound[gi]) > maxRound {
			maxRound = len(byRound[gi])
		}
	}

	var matches []Match
	for round := 0; round < maxRound; round++ {
		for gi := range groups {
			if round >= len(byRound[gi]) {
				continue
			}
			for _, pairing := range byRound[gi][round] {
				matches = append(matches, newMatch(pairing.Home, pairing.Away, pairing.Round, GroupName(gi), StageGroup))
			}
		}
	}
	return matches, maxRound
}

// buildPlayoffs allocates the knockout slots after the group stage. Only
// labels are produced; standings are resolved elsewhere.
func buildPlayoffs(cfg TournamentConfig, firstRound int) ([]Match, error) {
	groups := make([]string, cfg.NumberOfGroups)
	for i := range groups {
		groups[i] = GroupName(i)
	}

	if len(groups) == 1 {
		return []Match{
			newMatch(
				Placeholder(GroupRankLabel(1, groups[0])),
				Placeholder(GroupRankLabel(2, groups[0])),
				firstRound, "", StageFinal,
			),
		}, nil
	}

	var seeding SeedingStrategy = CrossoverSeeding{}
	if len(groups) > 2 {
		seeding = cfg.Seeding
		if seeding == nil {
			seeding = RankedSeeding{}
		}
	}
	current := seeding.Qualifiers(groups)
	if !validBracketSize(len(current)) {
		return nil, configErrorf("seeding", "must produce 2, 4, 8 or 16 qualifiers, got %d", len(current))
	}

	var matches []Match
	round := firstRound
	for len(current) > 2 {
		stage, winner := knockoutRound(len(current))
		next := make([]Participant, 0, len(current)/2)
		for i := 0; i < len(current); i += 2 {
			matches = append(matches, newMatch(current[i], current[i+1], round, "", stage))
			next = append(next, Placeholder(Label(winner, i/2+1)))
		}
		current = next
		round++

		if stage == StageSemifinal && cfg.ThirdPlaceMatch {
			matches = append(matches, newMatch(
				Placeholder(Label(LoserSemifinal, 1)),
				Placeholder(Label(LoserSemifinal, 2)),
				round, "", StageThirdPlace,
			))
			round++
		}
	}
	matches = append(matches, newMatch(current[0], current[1], round, "", StageFinal))
	return matches, nil
}

func knockoutRound(participants int) (Stage, LabelKind) {
	switch participants {
	case 16:
		return StageRoundOf16, WinnerRoundOf16
	case 8:
		return StageQuarterfinal, WinnerQuarterfinal
	default:
		return StageSemifinal, WinnerSemifinal
	}
}

func validBracketSize(n int) bool {
	switch n {
	case 2, 4, 8, 16:
		return true
	default:
		return false
	}
}

func newMatch(home, away Participant, round int, group string, stage Stage) Match {
	return Match{
		ID:    uuid.New(),
		Home:  home,
		Away:  away,
		Round: round,
		Group: group,
		Stage: stage,
	}
}

func numberSlots(matches []Match) []Match {
	for i := range matches {
		matches[i].Slot = i + 1
	}
	return matches
}
