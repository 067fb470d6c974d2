package persistence

import "strings"

type modelSet struct {
	pkg    string
	models []any
}

// matchesPackage reports whether pkg equals prefix or lives below it.
func matchesPackage(pkg, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	return pkg == prefix || strings.HasPrefix(pkg, prefix+"/")
}

func anyPackage(pkg string, prefixes []string) bool {
	for _, p := range prefixes {
		if matchesPackage(pkg, p) {
			return true
		}
	}
	return false
}

// ScannedModels returns the registered models selected for this unit, in registration order.
// With autoscan every package is a candidate; without it only the included packages are.
// Excluded packages never contribute.
func (m *Manager) ScannedModels() []any {
	var out []any
	for _, set := range m.models {
		if anyPackage(set.pkg, m.excludes) {
			continue
		}
		if len(m.includes) > 0 || !m.autoscan {
			if !anyPackage(set.pkg, m.includes) {
				continue
			}
		}
		out = append(out, set.models...)
	}
	return out
}
