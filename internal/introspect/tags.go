package introspect

import "strings"

// tagInfo is a parsed `unify:"name,default=a|b,hidden,noauto"` tag.
type tagInfo struct {
	Name     string
	Defaults []string
	Hidden   bool
	NoAuto   bool
}

func parseTag(tag string) tagInfo {
	parts := strings.Split(tag, ",")
	info := tagInfo{Name: strings.TrimSpace(parts[0])}

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch {
		case part == "hidden":
			info.Hidden = true
		case part == "noauto":
			info.NoAuto = true
		case strings.HasPrefix(part, "default="):
			info.Defaults = strings.Split(strings.TrimPrefix(part, "default="), "|")
		}
	}

	return info
}
