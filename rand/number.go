// Package rand provides bounded random-integer generation. PlayScore is the
// production play-session score generator (spec §6: "score is
// server-generated"), called by api.PublishPlay; RandomIntBetweenInclusive
// is the general-purpose helper underneath it, also exercised directly by
// this package's own tests. [0,
// 1000] inclusive is the product range per spec §9's resolution of the
// score-range open question, kept here as a reusable bound rather than
// inlined per caller.
package rand

import "math/rand"

// RandomIntBetweenInclusive returns a random int in [min, max], with either
// bound optionally made exclusive.
func RandomIntBetweenInclusive(min int, max int, isMinInclusive bool, isMaxInclusive bool) int {
	if min > max {
		panic("min must be <= max")
	}

	if isMinInclusive && isMaxInclusive {
		return rand.Intn(max-min+1) + min
	}

	if isMinInclusive {
		if max-min < 1 {
			panic("need min < max for [min, max)")
		}
		return rand.Intn(max-min) + min
	}

	if isMaxInclusive {
		if max-min < 1 {
			panic("need min < max for (min, max]")
		}
		return rand.Intn(max-min) + (min + 1)
	}

	if max-min < 2 {
		panic("need max-min >= 2 for (min, max)")
	}
	return rand.Intn(max-min-1) + (min + 1)
}

const (
	PlayScoreMin = 0
	PlayScoreMax = 1000
)

// PlayScore returns a random score in the spec-mandated [0, 1000] inclusive
// range. This is the production score generator: api.PublishPlay calls it
// directly to produce the score it publishes and echoes back to the caller.
func PlayScore() int {
	return RandomIntBetweenInclusive(PlayScoreMin, PlayScoreMax, true, true)
}
