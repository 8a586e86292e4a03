package llm

import (
	"strings"
	"unicode"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
)

// Fallbacks for empty multi-call answers.
const (
	DefaultName        = "Unknown Entity"
	DefaultDescription = "No effect."
	DefaultNumber      = "0"
)

// CleanRarity picks the first tier contained in text, checking SSR, UR, SR, R
// and N in that order. Anything else is N.
func CleanRarity(text string) constants.Rarity {
	return constants.MatchRarity(text)
}

// CleanNumber keeps only ASCII digits, defaulting to "0".
func CleanNumber(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return DefaultNumber
	}
	return b.String()
}

// StripCodeFences removes a surrounding ```json ... ``` block if present.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func orDefault(s, def string) string {
	s = strings.TrimFunc(s, unicode.IsSpace)
	if s == "" {
		return def
	}
	return s
}

// attributesFromAnswers turns raw per-attribute answers into clean attributes.
func attributesFromAnswers(answers map[string]string) CardAttributes {
	return CardAttributes{
		Rarity:      CleanRarity(orDefault(answers[AttrRarity], string(constants.RarityN))),
		Name:        orDefault(answers[AttrName], DefaultName),
		Description: orDefault(answers[AttrDescription], DefaultDescription),
		Atk:         CleanNumber(answers[AttrAtk]),
		Def:         CleanNumber(answers[AttrDef]),
	}
}
