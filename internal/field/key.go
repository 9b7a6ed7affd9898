package field

import (
	"strings"
)

const (
	keySeparator   = "|"
	looseKeyPrefix = "~"
)

// Key builds the exact cache signature for a field on a platform:
// platform|label|id-fragment|kind. Labels are compared whole, never by
// substring, so "state" and "country" cannot meet on a shared word.
func Key(p Platform, f Field) string {
	return strings.Join([]string{
		string(p.normalized()),
		NormalizeLabel(f.Label),
		NormalizeIDFragment(f.Identifier()),
		f.Kind.String(),
	}, keySeparator)
}

// LooseKey builds the label-only signature used as a fallback when the
// structural id varies between companies. It is empty when the label
// normalizes to nothing, since such fields share no meaningful signature.
func LooseKey(f Field) string {
	label := NormalizeLabel(f.Label)
	if label == "" {
		return ""
	}
	return looseKeyPrefix + keySeparator + label
}

// IsLooseKey reports whether k was produced by LooseKey.
func IsLooseKey(k string) bool {
	return strings.HasPrefix(k, looseKeyPrefix+keySeparator)
}
