package repository

import "encoding/json"

// jsonRawOrEmpty 非法或空的 JSONB 统一返回 {}
func jsonRawOrEmpty(b []byte) json.RawMessage {
	if len(b) == 0 || !json.Valid(b) {
		return json.RawMessage("{}")
	}
	out := make([]byte, len(b))
	copy(out, b)
	return json.RawMessage(out)
}
