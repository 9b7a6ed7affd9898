// Package field describes discovered form controls and derives the
// normalized signatures used as cache keys.
package field

import (
	"strings"
)

// Kind is the element kind of a form control.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindText
	KindTextarea
	KindDropdown
	KindRadio
	KindCheckbox
	KindCheckboxGroup
	KindFile
	KindDate
)

var kindNames = [...]string{
	KindUnknown:       "unknown",
	KindText:          "text",
	KindTextarea:      "textarea",
	KindDropdown:      "dropdown",
	KindRadio:         "radio",
	KindCheckbox:      "checkbox",
	KindCheckboxGroup: "checkbox_group",
	KindFile:          "file",
	KindDate:          "date",
}

var kindAliases = map[string]Kind{
	"":               KindText,
	"input":          KindText,
	"email":          KindText,
	"tel":            KindText,
	"url":            KindText,
	"number":         KindText,
	"select":         KindDropdown,
	"select-one":     KindDropdown,
	"combobox":       KindDropdown,
	"listbox":        KindDropdown,
	"checkbox-group": KindCheckboxGroup,
	"checkboxgroup":  KindCheckboxGroup,
	"upload":         KindFile,
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// ParseKind maps an element kind name (including common HTML input types)
// to a Kind.
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kindNames {
		if s == name {
			return Kind(i)
		}
	}
	if k, ok := kindAliases[s]; ok {
		return k
	}
	return KindUnknown
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	*k = ParseKind(string(b))
	return nil
}

// Field is an immutable snapshot of one discovered form control.
type Field struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name,omitempty"`
	Label       string   `json:"label"`
	Kind        Kind     `json:"type"`
	Options     []string `json:"options,omitempty"`
	Section     string   `json:"section,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
}

// Identifier returns the structural identifier: id when present, else name.
func (f Field) Identifier() string {
	if id := strings.TrimSpace(f.ID); id != "" {
		return id
	}
	return strings.TrimSpace(f.Name)
}

// QuestionText joins label, section and placeholder, the text that
// questionnaire-style rules run against.
func (f Field) QuestionText() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{f.Label, f.Section, f.Placeholder} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

const classifierOptionLimit = 8

// ClassifierText builds the context string handed to the semantic
// classifiers.
func (f Field) ClassifierText() string {
	var b strings.Builder
	b.WriteString(SanitizeText(f.QuestionText()))
	if id := f.Identifier(); id != "" {
		if hint := IdentifierWords(id); hint != "" {
			if b.Len() > 0 {
				b.WriteString(". ")
			}
			b.WriteString(hint)
		}
	}
	if len(f.Options) > 0 {
		opts := f.Options
		if len(opts) > classifierOptionLimit {
			opts = opts[:classifierOptionLimit]
		}
		if b.Len() > 0 {
			b.WriteString(". ")
		}
		b.WriteString("Options: ")
		b.WriteString(SanitizeText(strings.Join(opts, ", ")))
	}
	return b.String()
}
