package utils

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeStringList decodes a serialized list column. Absent, corrupt or
// non-array values yield a copy of def.
func DecodeStringList(raw string, def []string) []string {
	fallback := append([]string{}, def...)
	if raw == "" {
		return fallback
	}
	var items []string
	if err := json.Unmarshal([]byte(raw), &items); err != nil || items == nil {
		return fallback
	}
	return items
}

// EncodeStringList serializes a list column. A nil list is stored as "[]".
func EncodeStringList(items []string) string {
	if items == nil {
		return "[]"
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}
