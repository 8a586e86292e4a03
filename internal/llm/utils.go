package llm

import "encoding/base64"

// JPEGDataURL embeds JPEG bytes as a data URL for chat image parts.
func JPEGDataURL(jpeg []byte) string {
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpeg)
}
