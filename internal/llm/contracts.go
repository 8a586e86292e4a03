package llm

import (
	"context"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
)

// CardAttributes is the normalized shape we want from the model.
type CardAttributes struct {
	Rarity      constants.Rarity `json:"rarity"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Atk         string           `json:"atk"` // digits only
	Def         string           `json:"def"` // digits only
}

type AnalyzeRequest struct {
	ImagePath string

	// Prompts overrides the built-in prompt per attribute; blank values are ignored.
	Prompts map[string]string

	SingleCall       bool
	SingleCallPrompt string
}

// Analyzer derives card attributes from an image. Implementations may fail.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, req AnalyzeRequest) (CardAttributes, error)
}

// Transport sends one image plus one text prompt to a multimodal model and
// returns the raw text answer.
type Transport interface {
	Model() string
	Complete(ctx context.Context, jpeg []byte, prompt string) (string, error)
}
