package config

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var roomAdjectives = []string{
	"amber", "brisk", "calm", "dusty", "eager", "fuzzy", "gentle", "hollow", "icy", "jolly",
	"keen", "lofty", "mellow", "nimble", "olive", "plucky", "quiet", "rustic", "sunny", "tidy",
}

var roomPlaces = []string{
	"harbor", "meadow", "canyon", "lagoon", "orchard", "summit", "grove", "bayou", "delta", "fjord",
	"prairie", "atoll", "glacier", "valley", "marsh", "ridge", "cove", "dune", "isle", "plaza",
}

var roomThings = []string{
	"lantern", "kettle", "compass", "banjo", "teapot", "anchor", "kite", "quill", "marble", "acorn",
	"beacon", "cello", "drum", "easel", "fiddle", "gong", "harp", "igloo", "jigsaw", "kazoo",
}

// GenerateRoomName returns a memorable room id such as "quiet-harbor-kite".
func GenerateRoomName() string {
	return fmt.Sprintf("%s-%s-%s", pick(roomAdjectives), pick(roomPlaces), pick(roomThings))
}

func pick(words []string) string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		panic(fmt.Sprintf("failed to generate random index: %v", err))
	}
	return words[n.Int64()]
}
