package effects

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
)

func TestPolicy_EffectRates(t *testing.T) {
	const trials = 20000
	p := NewPolicy(common.NewRand(2024))

	tests := []struct {
		rarity constants.Rarity
		want   float64
	}{
		{constants.RarityN, 0.10},
		{constants.RarityR, 0.30},
		{constants.RaritySR, 0.60},
		{constants.RaritySSR, 0.90},
	}
	for _, tt := range tests {
		t.Run(string(tt.rarity), func(t *testing.T) {
			hits := 0
			for i := 0; i < trials; i++ {
				if effect, _ := p.Choose(tt.rarity); effect != "" {
					hits++
				}
			}
			assert.InDelta(t, tt.want, float64(hits)/trials, 0.02)
		})
	}
}

func TestPolicy_UltraRareAlwaysHasEffect(t *testing.T) {
	p := NewPolicy(common.NewRand(9))
	for i := 0; i < 2000; i++ {
		effect, theme := p.Choose(constants.RarityUR)
		assert.NotEmpty(t, effect)
		assert.NotEmpty(t, theme)
	}
}

func TestPolicy_DrawsFromTierSets(t *testing.T) {
	p := NewPolicy(common.NewRand(3))
	for _, r := range constants.AllRarities() {
		tier := DefaultTiers[r]
		for i := 0; i < 200; i++ {
			effect, theme := p.Choose(r)
			if effect != "" {
				assert.True(t, slices.Contains(tier.Effects, effect), "%s effect %q", r, effect)
			}
			assert.True(t, slices.Contains(tier.Themes, theme), "%s theme %q", r, theme)
		}
	}
}

func TestPolicy_UnknownRarityUsesNormalTable(t *testing.T) {
	p := NewPolicy(common.NewRand(5))
	for i := 0; i < 200; i++ {
		effect, theme := p.Choose(constants.Rarity("LEGENDARY"))
		if effect != "" {
			assert.Contains(t, DefaultTiers[constants.RarityN].Effects, effect)
		}
		assert.Contains(t, DefaultTiers[constants.RarityN].Themes, theme)
	}
}
