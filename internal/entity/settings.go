package entity

import "strings"

// Settings is the free-form settings document.
type Settings map[string]any

// Well-known settings keys.
const (
	SettingsPrompts          = "prompts"
	SettingsSingleCallMode   = "single_call_mode"
	SettingsSingleCallPrompt = "single_call_prompt"
	SettingsGodDrawURL       = "god_draw_url"
)

// Prompts returns the non-blank prompt overrides keyed by attribute name.
func (s Settings) Prompts() map[string]string {
	out := map[string]string{}
	raw, ok := s[SettingsPrompts].(map[string]any)
	if !ok {
		return out
	}
	for k, v := range raw {
		str, ok := v.(string)
		if !ok || strings.TrimSpace(str) == "" {
			continue
		}
		out[k] = str
	}
	return out
}

func (s Settings) Bool(key string) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || v == "1"
	default:
		return false
	}
}

func (s Settings) String(key string) string {
	if v, ok := s[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// Merge performs a shallow merge; nested objects under the same key are merged
// one level deep so a partial prompts update keeps the other prompts.
func (s Settings) Merge(patch Settings) Settings {
	out := Settings{}
	for k, v := range s {
		out[k] = v
	}
	for k, v := range patch {
		prev, prevOK := out[k].(map[string]any)
		next, nextOK := v.(map[string]any)
		if prevOK && nextOK {
			merged := map[string]any{}
			for pk, pv := range prev {
				merged[pk] = pv
			}
			for nk, nv := range next {
				merged[nk] = nv
			}
			out[k] = merged
			continue
		}
		out[k] = v
	}
	return out
}
