// Package tagtext extracts typed fields from LLM responses that carry
// structured output in XML-like tag pairs, e.g. <score>4</score>.
//
// Parsing is tolerant: fields are extracted independently, so a garbled
// or absent tag never invalidates the rest of the response. Conversion
// failures are collected per field rather than aborting the parse. The
// only hard failure is an empty response.
package tagtext

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the value type a tagged field converts to.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Bool
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field declares one tag to look for in a response.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
}

// ErrEmptyResponse reports a response with no content at all. Unlike a
// missing tag this is unrecoverable, there is nothing to salvage.
var ErrEmptyResponse = errors.New("tagtext: response is empty")

// Document holds the fields recovered from one response.
type Document struct {
	values map[string]any
	errs   []error
}

// Parse scans response for each declared field. A field whose tag is
// absent or empty is simply left unset. A field whose content fails type
// conversion is left unset and the failure is recorded in Errs.
func Parse(response string, fields []Field) (*Document, error) {
	if strings.TrimSpace(response) == "" {
		return nil, ErrEmptyResponse
	}

	doc := &Document{values: make(map[string]any, len(fields))}
	for _, f := range fields {
		raw, ok := extract(response, f.Name)
		if !ok {
			continue
		}
		v, err := convert(raw, f.Kind)
		if err != nil {
			doc.errs = append(doc.errs, fmt.Errorf("field %q: %w", f.Name, err))
			continue
		}
		doc.values[f.Name] = v
	}
	return doc, nil
}

// extract returns the trimmed content of the first <name>...</name> pair.
// The second return is false when the tag is absent or holds only
// whitespace.
func extract(response, name string) (string, bool) {
	q := regexp.QuoteMeta(name)
	re := regexp.MustCompile(`(?s)<` + q + `>(.*?)</` + q + `>`)
	m := re.FindStringSubmatch(response)
	if m == nil {
		return "", false
	}
	content := strings.TrimSpace(m[1])
	if content == "" {
		return "", false
	}
	return content, true
}

func convert(content string, kind Kind) (any, error) {
	switch kind {
	case String:
		return content, nil
	case Int:
		n, err := strconv.Atoi(content)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to int", content)
		}
		return n, nil
	case Float:
		f, err := strconv.ParseFloat(content, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to float", content)
		}
		return f, nil
	case Bool:
		switch strings.ToLower(content) {
		case "true", "1", "yes", "on", "y":
			return true, nil
		case "false", "0", "no", "off", "n":
			return false, nil
		default:
			return nil, fmt.Errorf("cannot convert %q to bool", content)
		}
	default:
		return nil, fmt.Errorf("unsupported field kind %v", kind)
	}
}

// Errs returns the conversion failures collected during Parse.
func (d *Document) Errs() []error { return d.errs }

// Has reports whether the named field was successfully parsed.
func (d *Document) Has(name string) bool {
	_, ok := d.values[name]
	return ok
}

// Missing returns the names of required fields that were not parsed, in
// declaration order.
func (d *Document) Missing(fields []Field) []string {
	var missing []string
	for _, f := range fields {
		if f.Required && !d.Has(f.Name) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// String returns the named field's string value, or "" when unset or of
// another kind.
func (d *Document) String(name string) string {
	s, _ := d.values[name].(string)
	return s
}

// Int returns the named field's int value and whether it was set.
func (d *Document) Int(name string) (int, bool) {
	n, ok := d.values[name].(int)
	return n, ok
}

// Float returns the named field's float value and whether it was set.
func (d *Document) Float(name string) (float64, bool) {
	f, ok := d.values[name].(float64)
	return f, ok
}

// Bool returns the named field's bool value and whether it was set.
func (d *Document) Bool(name string) (bool, bool) {
	b, ok := d.values[name].(bool)
	return b, ok
}
