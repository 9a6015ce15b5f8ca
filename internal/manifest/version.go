package manifest

import (
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// NormalizeVersion canonicalizes a display version for ARP entries.
// Leading "v" prefixes and trailing zero segments survive untouched when the
// string does not parse as a version; best-effort only.
func NormalizeVersion(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	v, err := goversion.NewVersion(strings.TrimPrefix(trimmed, "v"))
	if err != nil {
		return trimmed
	}
	return v.Original()
}
