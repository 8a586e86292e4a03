package constants

import (
	"strings"
)

type Rarity string

const (
	RarityN   Rarity = "N"
	RarityR   Rarity = "R"
	RaritySR  Rarity = "SR"
	RaritySSR Rarity = "SSR"
	RarityUR  Rarity = "UR"
)

// allRarities is ordered from most common to rarest.
var allRarities = []Rarity{
	RarityN,
	RarityR,
	RaritySR,
	RaritySSR,
	RarityUR,
}

// matchOrder is the priority used when pulling a tier out of free text.
// Longer codes that contain shorter ones come first (SSR before SR, UR before R).
var matchOrder = []Rarity{
	RaritySSR,
	RarityUR,
	RaritySR,
	RarityR,
	RarityN,
}

func AllRarities() []Rarity {
	out := make([]Rarity, len(allRarities))
	copy(out, allRarities)
	return out
}

// MatchRarity upper-cases text and returns the first tier code it contains,
// following matchOrder. Text without any tier code yields N.
func MatchRarity(text string) Rarity {
	normalized := strings.ToUpper(strings.TrimSpace(text))
	for _, r := range matchOrder {
		if strings.Contains(normalized, string(r)) {
			return r
		}
	}
	return RarityN
}
