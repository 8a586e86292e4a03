package llm

import (
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildCardJSONSchema describes the object a single-call answer must decode
// to once numbers have been coerced to strings. Every key is optional; missing
// keys fall back to defaults.
func BuildCardJSONSchema() map[string]any {
	str := func() map[string]any { return map[string]any{"type": "string"} }
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			AttrRarity:      str(),
			AttrName:        str(),
			AttrDescription: str(),
			AttrAtk:         str(),
			AttrDef:         str(),
		},
	}
}

// BuildSettingsJSONSchema constrains the keys the analyzer and god draw read;
// all other keys are free-form.
func BuildSettingsJSONSchema() map[string]any {
	prompts := map[string]any{}
	for _, k := range AttributeOrder {
		prompts[k] = map[string]any{"type": "string"}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompts": map[string]any{
				"type":                 "object",
				"properties":           prompts,
				"additionalProperties": map[string]any{"type": "string"},
			},
			"single_call_mode":   map[string]any{"type": "boolean"},
			"single_call_prompt": map[string]any{"type": "string"},
			"god_draw_url":       map[string]any{"type": "string"},
		},
	}
}

var cardSchema = sync.OnceValue(func() *jsonschema.Schema {
	compiled, err := CompileSchema(BuildCardJSONSchema())
	if err != nil {
		panic("llm: card schema: " + err.Error())
	}
	return compiled
})
