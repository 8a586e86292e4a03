package llm

import (
	_ "embed"
	"fmt"
	"maps"
	"strings"

	"gopkg.in/yaml.v3"
)

// Attribute keys, in the order the multi-call analyzer asks for them.
const (
	AttrRarity      = "rarity"
	AttrName        = "name"
	AttrDescription = "description"
	AttrAtk         = "atk"
	AttrDef         = "def"
)

var AttributeOrder = []string{AttrRarity, AttrName, AttrDescription, AttrAtk, AttrDef}

//go:embed prompts.yaml
var promptsYAML []byte

type promptCatalog struct {
	Attributes map[string]string `yaml:"attributes"`
	SingleCall struct {
		Instruction string `yaml:"instruction"`
		Format      string `yaml:"format"`
	} `yaml:"single_call"`
}

var defaults = mustLoadPrompts(promptsYAML)

func mustLoadPrompts(raw []byte) promptCatalog {
	var c promptCatalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		panic(fmt.Sprintf("llm: parse embedded prompts: %v", err))
	}
	for _, k := range AttributeOrder {
		if strings.TrimSpace(c.Attributes[k]) == "" {
			panic(fmt.Sprintf("llm: embedded prompts missing %q", k))
		}
	}
	return c
}

// DefaultPrompts returns a copy of the built-in per-attribute prompts.
func DefaultPrompts() map[string]string {
	return maps.Clone(defaults.Attributes)
}

// MergePrompts overlays non-blank overrides onto the defaults.
func MergePrompts(overrides map[string]string) map[string]string {
	out := DefaultPrompts()
	for k, v := range overrides {
		if strings.TrimSpace(v) == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// BuildSingleCallPrompt wraps the user instruction (or the default one) with
// the mandatory JSON output contract.
func BuildSingleCallPrompt(instruction string) string {
	if strings.TrimSpace(instruction) == "" {
		instruction = defaults.SingleCall.Instruction
	}
	return strings.TrimSpace(instruction) + "\n\n" + defaults.SingleCall.Format
}
