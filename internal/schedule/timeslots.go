package schedule

import "time"

// Schedule returns a copy of matches with ScheduledAt assigned from
// cfg.StartTime. Order, rounds, slots and groups are left as they are.
//
// An indoor hall plays one match per interval in list order. A normal
// tournament plays consecutive matches that share group and round at the
// same kickoff, as long as no team would play twice at once.
func Schedule(matches []Match, cfg TournamentConfig) []Match {
	return stampFrom(matches, cfg.StartTime, cfg.SlotInterval(), cfg.TournamentType == TournamentTypeNormal)
}

func stampFrom(matches []Match, start time.Time, interval time.Duration, parallel bool) []Match {
	out := make([]Match, len(matches))
	copy(out, matches)

	step := 0
	busy := make(map[string]struct{})
	for i := range out {
		if i > 0 && !(parallel && sharesKickoff(out[i-1], out[i], busy)) {
			step++
			clear(busy)
		}
		for _, p := range []Participant{out[i].Home, out[i].Away} {
			if p.IsTeam() {
				busy[p.TeamID] = struct{}{}
			}
		}
		out[i].ScheduledAt = start.Add(time.Duration(step) * interval)
	}
	return out
}

// sharesKickoff reports whether next joins the kickoff of prev. busy holds
// the concrete teams already playing at that kickoff.
func sharesKickoff(prev, next Match, busy map[string]struct{}) bool {
	if prev.Round != next.Round || prev.Group != next.Group {
		return false
	}
	for _, p := range []Participant{next.Home, next.Away} {
		if !p.IsTeam() {
			continue
		}
		if _, ok := busy[p.TeamID]; ok {
			return false
		}
	}
	return true
}

// roundsOrdered reports whether rounds describe the playing order of the
// list: they never decrease and more than one round is present. Imported
// lists carry round 1 everywhere and a reorder can scramble rounds; both
// are stamped one match per interval.
func roundsOrdered(matches []Match) bool {
	if len(matches) < 2 {
		return true
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Round < matches[i-1].Round {
			return false
		}
	}
	return matches[len(matches)-1].Round > matches[0].Round
}
