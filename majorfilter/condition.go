package majorfilter

import (
	"fmt"
	"strconv"
	"strings"
)

// ConditionType names the value domain a condition compares in.
type ConditionType string

const (
	TypeText    ConditionType = "text"
	TypeNumber  ConditionType = "number"
	TypeRegex   ConditionType = "regex"
	TypeFuzzy   ConditionType = "fuzzy"
	TypeEnum    ConditionType = "enum"
	TypeBoolean ConditionType = "boolean"
	TypeCode    ConditionType = "code"
)

// Operator names the comparison applied within a type.
type Operator string

const (
	OpEquals     Operator = "equals"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "startswith"
	OpEndsWith   Operator = "endswith"
	OpIn         Operator = "in"
	OpBetween    Operator = "between"
	OpMin        Operator = "min"
	OpMax        Operator = "max"
	OpIs         Operator = "is"
	OpMatch      Operator = "match"
	OpSimilar    Operator = "similar"
)

// supportedOperators lists every valid type/operator pair.
var supportedOperators = map[ConditionType][]Operator{
	TypeText:    {OpEquals, OpContains, OpStartsWith, OpEndsWith},
	TypeEnum:    {OpIn},
	TypeNumber:  {OpBetween, OpMin, OpMax, OpEquals},
	TypeBoolean: {OpIs},
	TypeRegex:   {OpMatch},
	TypeCode:    {OpEquals},
	TypeFuzzy:   {OpSimilar},
}

// Options are the parsed per-condition flags.
type Options struct {
	IgnoreCase bool `json:"ignore_case"`
	Normalize  bool `json:"normalize"`
	CodePrefer bool `json:"code_prefer"`
}

// Key renders the options canonically so conditions can be grouped by them.
func (o Options) Key() string {
	return fmt.Sprintf("ignore_case=%t;normalize=%t;code_prefer=%t", o.IgnoreCase, o.Normalize, o.CodePrefer)
}

// ParseOptions reads a ';'-separated key[=value] list. A bare key is true and
// unknown keys are ignored.
func ParseOptions(s string) Options {
	var opts Options
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		on := true
		if hasValue {
			on = IsTruthy(value)
		}
		switch key {
		case "ignore_case":
			opts.IgnoreCase = on
		case "normalize":
			opts.Normalize = on
		case "code_prefer":
			opts.CodePrefer = on
		}
	}
	return opts
}

// IsTruthy reports whether s is one of true, 1, yes, y, t (any case).
func IsTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "t":
		return true
	}
	return false
}

// Condition is one filter rule as loaded from a condition file. Conditions are
// treated as immutable once loaded.
type Condition struct {
	Column    string        `json:"column"`
	Type      ConditionType `json:"type"`
	Operator  Operator      `json:"operator"`
	Value     string        `json:"value"`
	Threshold string        `json:"threshold,omitempty"`
	Priority  string        `json:"priority,omitempty"`
	Weight    float64       `json:"weight"`
	Options   Options       `json:"options"`
}

// Describe renders the condition as "{column}:{type}/{operator}={value}".
func (c Condition) Describe() string {
	return fmt.Sprintf("%s:%s/%s=%s", c.Column, c.Type, c.Operator, c.Value)
}

// ConditionError reports a condition row that cannot be loaded.
type ConditionError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition row %d: %s: %s", e.Row, e.Field, e.Reason)
}

// NewCondition validates raw fields and builds a Condition. row is used only
// for error reporting.
func NewCondition(row int, column, typ, operator, value, threshold, priority, weight, options string) (Condition, error) {
	c := Condition{
		Column:    strings.TrimSpace(column),
		Type:      ConditionType(strings.ToLower(strings.TrimSpace(typ))),
		Operator:  Operator(strings.ToLower(strings.TrimSpace(operator))),
		Value:     strings.TrimSpace(value),
		Threshold: strings.TrimSpace(threshold),
		Priority:  strings.TrimSpace(priority),
		Weight:    1.0,
		Options:   ParseOptions(options),
	}
	switch {
	case c.Column == "":
		return c, &ConditionError{Row: row, Field: "column", Reason: "empty"}
	case c.Type == "":
		return c, &ConditionError{Row: row, Field: "type", Reason: "empty"}
	case c.Operator == "":
		return c, &ConditionError{Row: row, Field: "operator", Reason: "empty"}
	}
	ops, ok := supportedOperators[c.Type]
	if !ok {
		return c, &ConditionError{Row: row, Field: "type", Reason: fmt.Sprintf("unknown type %q", c.Type)}
	}
	if !containsOperator(ops, c.Operator) {
		return c, &ConditionError{Row: row, Field: "operator", Reason: fmt.Sprintf("%q is not valid for type %s", c.Operator, c.Type)}
	}
	if w := strings.TrimSpace(weight); w != "" {
		f, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return c, &ConditionError{Row: row, Field: "weight", Reason: fmt.Sprintf("invalid number %q", w)}
		}
		c.Weight = f
	}
	return c, nil
}

func containsOperator(ops []Operator, op Operator) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

// ParseThreshold reads a similarity threshold as a fraction. "80%" and "80"
// both mean 0.8. An empty string is 0.
func ParseThreshold(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid threshold %q: %w", s, err)
	}
	if percent || f > 1 {
		f /= 100
	}
	return f, nil
}
