package templates

import (
	"cmp"
	"slices"

	"github.com/leonelquinteros/gotext"
)

// PoParser parses gettext PO and POT files.
type PoParser struct{}

// Format implements Parser.
func (PoParser) Format() string { return "po" }

// Parse implements Parser. Entries are ordered by source string, then by
// context. Plural entries yield one entry keyed by the singular msgid.
func (PoParser) Parse(data []byte) ([]Entry, error) {
	po := gotext.NewPo()
	po.Parse(data)

	domain := po.GetDomain()
	translations := domain.GetTranslations()
	byContext := domain.GetCtxTranslations()

	entries := make([]Entry, 0, len(translations)+len(byContext))
	for id, tr := range translations {
		if id == "" {
			continue
		}
		entries = append(entries, Entry{Source: id, Target: tr.Trs[0]})
	}
	for msgctxt, ctxTranslations := range byContext {
		for id, tr := range ctxTranslations {
			entries = append(entries, Entry{Context: msgctxt, Source: id, Target: tr.Trs[0]})
		}
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Or(cmp.Compare(a.Source, b.Source), cmp.Compare(a.Context, b.Context))
	})
	return entries, nil
}
