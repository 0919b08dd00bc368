package crm

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Record is a single CRM record as returned by the search API
type Record struct {
	raw gjson.Result
}

// ParseRecord parses one record object
func ParseRecord(json string) Record {
	return Record{raw: gjson.Parse(json)}
}

// ID returns the record id
func (r Record) ID() string {
	return r.raw.Get("id").String()
}

// String returns a field as text. Missing and null fields are empty; lookup
// fields (objects) yield their display name.
func (r Record) String(field string) string {
	if field == "" {
		return ""
	}

	v := r.raw.Get(escapePath(field))
	switch {
	case !v.Exists(), v.Type == gjson.Null:
		return ""
	case v.IsObject():
		return v.Get("name").String()
	default:
		return v.String()
	}
}

// Raw returns the record JSON
func (r Record) Raw() string {
	return r.raw.Raw
}

// escapePath escapes gjson/sjson path metacharacters in a field name
func escapePath(field string) string {
	var b strings.Builder
	for _, ch := range field {
		switch ch {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// Equals builds an equality search criterion "(field:equals:value)".
// Parentheses, commas and backslashes in the value are escaped.
func Equals(field, value string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, `,`, `\,`)
	return "(" + field + ":equals:" + r.Replace(value) + ")"
}
