package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NormalizeCardJSON prepares a single-call answer for validation: numeric
// atk/def become strings, strings are trimmed, null and unknown keys are dropped.
func NormalizeCardJSON(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("normalize: decode: %w", err)
	}

	allowed := map[string]struct{}{}
	for _, k := range AttributeOrder {
		allowed[k] = struct{}{}
	}

	var dropped []string
	for k, v := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
			continue
		}
		switch t := v.(type) {
		case nil:
			delete(m, k)
			dropped = append(dropped, k+"(null)")
		case float64:
			m[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			m[k] = strconv.FormatBool(t)
		case string:
			m[k] = strings.TrimSpace(t)
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("normalize: encode: %w", err)
	}
	return out, dropped, nil
}
