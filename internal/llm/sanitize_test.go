package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
)

func TestCleanRarity(t *testing.T) {
	tests := []struct {
		in   string
		want constants.Rarity
	}{
		{"SSR", constants.RaritySSR},
		{"  ssr  ", constants.RaritySSR},
		{"This is UR!", constants.RarityUR},
		{"SR", constants.RaritySR},
		{"r", constants.RarityR},
		{"n", constants.RarityN},
		{"", constants.RarityN},
		{"legendary", constants.RarityR},
		{"common", constants.RarityN},
		// SSR is checked before SR, UR before R.
		{"Rarity: SSR (not SR)", constants.RaritySSR},
		{"SURE", constants.RarityUR},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanRarity(tt.in))
		})
	}
}

func TestCleanNumber(t *testing.T) {
	tests := map[string]string{
		"2500":           "2500",
		"ATK: 1,800 pts": "1800",
		"none":           "0",
		"":               "0",
		"-300":           "300",
		"３０００":           "0",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanNumber(in), "input %q", in)
	}
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences(`  {"a":1} `))
}

func TestAttributesFromAnswers_Defaults(t *testing.T) {
	got := attributesFromAnswers(map[string]string{
		AttrRarity: " ",
		AttrName:   "  Cat Lord ",
	})
	assert.Equal(t, CardAttributes{
		Rarity:      constants.RarityN,
		Name:        "Cat Lord",
		Description: DefaultDescription,
		Atk:         "0",
		Def:         "0",
	}, got)

	got = attributesFromAnswers(map[string]string{})
	assert.Equal(t, DefaultName, got.Name)
}
