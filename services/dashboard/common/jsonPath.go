package common

import "strings"

// JSONPath escapes a document field name so it can be used as a single gjson/sjson path component
func JSONPath(field string) string {
	var sb strings.Builder
	sb.Grow(len(field))
	for _, r := range field {
		if !isPlainPathRune(r) {
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}

	return sb.String()
}

func isPlainPathRune(r rune) bool {
	return r == '_' || r == '-' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r > 127
}
