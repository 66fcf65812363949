package templates

import (
	"errors"

	"github.com/tidwall/gjson"
)

// JSONParser parses monolingual JSON files. Nested objects are flattened
// into dotted keys, which become the entry context.
type JSONParser struct{}

// Format implements Parser.
func (JSONParser) Format() string { return "json" }

// Parse implements Parser. Entries keep file order.
func (JSONParser) Parse(data []byte) ([]Entry, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, errors.New("top level value must be an object")
	}

	var entries []Entry
	flatten("", root, &entries)
	return entries, nil
}

func flatten(prefix string, value gjson.Result, out *[]Entry) {
	value.ForEach(func(key, v gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		if v.IsObject() {
			flatten(name, v, out)
			return true
		}
		*out = append(*out, Entry{Context: name, Source: v.String()})
		return true
	})
}
