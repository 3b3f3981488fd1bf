package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldKind is the expected JSON type of a request field.
type FieldKind int

const (
	KindString FieldKind = iota
	KindInteger
	KindDecimal
	KindEnum
)

// Field describes one request field and its constraints.
type Field struct {
	Name      string
	Kind      FieldKind
	Required  bool
	MaxLength int      // KindString only, 0 means unlimited
	Choices   []string // KindEnum only
}

// Schema is an explicit description of a request body.
type Schema struct {
	Fields []Field
}

// Values holds the decoded fields of a body that passed its schema.
type Values map[string]any

// Request schemas used by the HTTP layer.
var (
	ClientSchema = Schema{Fields: []Field{
		{Name: "name", Kind: KindString, Required: true, MaxLength: maxNameLength},
	}}

	CategorySchema = Schema{Fields: []Field{
		{Name: "name", Kind: KindString, Required: true, MaxLength: maxNameLength},
	}}

	// MovementSchema leaves the sign of amount to the movement validator,
	// which checks account existence first. Ids are only checked for type:
	// an id that matches no row is a reference error, as it is in a path.
	MovementSchema = Schema{Fields: []Field{
		{Name: "account", Kind: KindInteger, Required: true},
		{Name: "movement_type", Kind: KindEnum, Required: true, Choices: []string{string(CashInflow), string(CashOutflow)}},
		{Name: "amount", Kind: KindDecimal, Required: true},
	}}

	AssignmentSchema = Schema{Fields: []Field{
		{Name: "client", Kind: KindInteger, Required: true},
		{Name: "category", Kind: KindInteger, Required: true},
	}}
)

// Decode checks body against the schema and returns the typed values.
// Numbers in body are expected as json.Number (decoder UseNumber); plain
// strings are accepted for numeric fields as well. All field problems are
// reported together in a *SchemaError.
func (s Schema) Decode(body map[string]any) (Values, error) {
	values := make(Values, len(s.Fields))
	serr := &SchemaError{}

	for _, f := range s.Fields {
		raw, present := body[f.Name]
		if !present || raw == nil {
			if f.Required {
				serr.Add(f.Name, "this field is required.")
			}
			continue
		}

		v, msg := f.decode(raw)
		if msg != "" {
			serr.Add(f.Name, msg)
			continue
		}
		values[f.Name] = v
	}

	if !serr.Empty() {
		return nil, serr
	}
	return values, nil
}

func (f Field) decode(raw any) (any, string) {
	switch f.Kind {
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, "not a valid string."
		}
		s = strings.TrimSpace(s)
		if f.Required && s == "" {
			return nil, "this field may not be blank."
		}
		if f.MaxLength > 0 && len(s) > f.MaxLength {
			return nil, fmt.Sprintf("ensure this field has no more than %d characters.", f.MaxLength)
		}
		return s, ""

	case KindInteger:
		text, ok := numberText(raw)
		if !ok {
			return nil, "a valid integer is required."
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, "a valid integer is required."
		}
		return n, ""

	case KindDecimal:
		text, ok := numberText(raw)
		if !ok {
			return nil, "a valid number is required."
		}
		d, err := ParseAmount(text)
		if err != nil {
			if err == ErrAmountScale {
				return nil, "ensure that there are no more than 2 decimal places."
			}
			return nil, "a valid number is required."
		}
		return d, ""

	case KindEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, "not a valid choice."
		}
		for _, c := range f.Choices {
			if s == c {
				return s, ""
			}
		}
		return nil, fmt.Sprintf("%q is not a valid choice.", s)
	}
	return nil, "unsupported field."
}

func numberText(raw any) (string, bool) {
	switch v := raw.(type) {
	case json.Number:
		return v.String(), true
	case string:
		return strings.TrimSpace(v), true
	default:
		return "", false
	}
}

// String returns the string value of field name.
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// Int64 returns the integer value of field name.
func (v Values) Int64(name string) int64 {
	n, _ := v[name].(int64)
	return n
}

// Decimal returns the decimal value of field name.
func (v Values) Decimal(name string) decimal.Decimal {
	d, _ := v[name].(decimal.Decimal)
	return d
}
