package ml

import "math/rand"

func seededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
