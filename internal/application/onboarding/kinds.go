package onboarding

import "strings"

// Kind is one importable piece of a demo.
type Kind string

const (
	KindContent     Kind = "content"
	KindWidgets     Kind = "widgets"
	KindOptions     Kind = "options"
	KindSliders     Kind = "sliders"
	KindRedux       Kind = "redux"
	KindAfterImport Kind = "after_import"
)

// Kinds lists every kind in wizard order.
func Kinds() []Kind {
	return []Kind{KindContent, KindWidgets, KindOptions, KindSliders, KindRedux, KindAfterImport}
}

func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// Label is the name shown in the import drawer.
func (k Kind) Label() string {
	s := strings.ReplaceAll(string(k), "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Title is the human name used in logs.
func (k Kind) Title() string {
	switch k {
	case KindSliders:
		return "Revolution Slider"
	case KindRedux:
		return "Redux Options"
	case KindAfterImport:
		return "After import setup"
	default:
		return k.Label()
	}
}
