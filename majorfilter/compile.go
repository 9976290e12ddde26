package majorfilter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	ahocorasick "github.com/BobuSumisu/aho-corasick"
	"github.com/dlclark/regexp2"
)

// Contains strategies.
const (
	ContainsAuto      = "auto"
	ContainsRegex     = "regex"
	ContainsAutomaton = "automaton"
)

const (
	// regexBatchSize bounds the number of alternatives in one pattern.
	regexBatchSize = 500
	// automatonMinTokens is the group size at which auto picks the automaton.
	automatonMinTokens = 64
	// regexTimeout bounds a single user pattern evaluation.
	regexTimeout = 2 * time.Second
)

// predicate is the compiled form of a condition. The set of implementations
// is closed; Evaluator switches over all of them.
type predicate interface {
	isPredicate()
}

type textPredicate struct {
	op    Operator
	value string
}

type containsPredicate struct {
	group *ContainsGroup
}

type enumPredicate struct {
	set map[string]struct{}
}

type numberPredicate struct {
	op     Operator
	lo, hi float64
}

type boolPredicate struct {
	want bool
}

type regexPredicate struct {
	re *regexp2.Regexp
}

type codePredicate struct {
	code string
}

type fuzzyPredicate struct {
	target     string
	targetCode string
	threshold  float64
}

// invalidPredicate never hits; reason is logged once per run.
type invalidPredicate struct {
	reason string
}

func (textPredicate) isPredicate()     {}
func (containsPredicate) isPredicate() {}
func (enumPredicate) isPredicate()     {}
func (numberPredicate) isPredicate()   {}
func (boolPredicate) isPredicate()     {}
func (regexPredicate) isPredicate()    {}
func (codePredicate) isPredicate()     {}
func (fuzzyPredicate) isPredicate()    {}
func (invalidPredicate) isPredicate()  {}

// substringMatcher reports whether any token occurs in s.
type substringMatcher interface {
	MatchString(s string) bool
}

type regexBatches []*regexp.Regexp

func (b regexBatches) MatchString(s string) bool {
	for _, re := range b {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

type automaton struct {
	trie *ahocorasick.Trie
}

func (a automaton) MatchString(s string) bool {
	return len(a.trie.MatchString(s)) > 0
}

// ContainsGroup merges every text/contains condition sharing a column and
// option set into one matcher evaluated once per row.
type ContainsGroup struct {
	Column   string
	Options  Options
	Tokens   []string
	Members  []int
	Strategy string

	matcher substringMatcher
}

// Match applies the merged matcher to a raw cell value.
func (g *ContainsGroup) Match(value string) bool {
	if g.matcher == nil {
		return false
	}
	return g.matcher.MatchString(g.Options.fold(value))
}

// CompiledCondition pairs a loaded condition with its prepared predicate.
type CompiledCondition struct {
	Condition
	// Diagnostic is set when the condition can never hit.
	Diagnostic string

	pred predicate
}

// Plan is the compiled, read-only form of a condition set.
type Plan struct {
	Conditions []CompiledCondition
	Groups     []*ContainsGroup
}

// CompileOptions tune matcher construction.
type CompileOptions struct {
	ContainsStrategy string
}

// Compile prepares conditions for evaluation. Malformed condition values do
// not fail compilation; the affected condition gets a Diagnostic and never
// hits.
func Compile(conds []Condition, opts CompileOptions) (*Plan, error) {
	strategy := strings.ToLower(strings.TrimSpace(opts.ContainsStrategy))
	switch strategy {
	case "":
		strategy = ContainsAuto
	case ContainsAuto, ContainsRegex, ContainsAutomaton:
	default:
		return nil, fmt.Errorf("unknown contains strategy %q", opts.ContainsStrategy)
	}
	plan := &Plan{Conditions: make([]CompiledCondition, len(conds))}
	groups := make(map[string]*ContainsGroup)
	for i, c := range conds {
		cc := CompiledCondition{Condition: c}
		if c.Type == TypeText && c.Operator == OpContains {
			key := c.Column + "\x00" + c.Options.Key()
			g, ok := groups[key]
			if !ok {
				g = &ContainsGroup{Column: c.Column, Options: c.Options}
				groups[key] = g
				plan.Groups = append(plan.Groups, g)
			}
			g.Members = append(g.Members, i)
			if tok := c.Options.fold(c.Value); tok != "" {
				g.Tokens = appendUnique(g.Tokens, tok)
				cc.pred = containsPredicate{group: g}
			} else {
				cc.pred = invalidPredicate{reason: "empty contains value"}
			}
		} else {
			cc.pred = compilePredicate(c)
		}
		if inv, ok := cc.pred.(invalidPredicate); ok {
			cc.Diagnostic = inv.reason
		}
		plan.Conditions[i] = cc
	}
	for _, g := range plan.Groups {
		if err := g.build(strategy); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

func (g *ContainsGroup) build(strategy string) error {
	if len(g.Tokens) == 0 {
		return nil
	}
	if strategy == ContainsAuto {
		strategy = ContainsRegex
		if len(g.Tokens) >= automatonMinTokens {
			strategy = ContainsAutomaton
		}
	}
	g.Strategy = strategy
	if strategy == ContainsAutomaton {
		g.matcher = automaton{trie: ahocorasick.NewTrieBuilder().AddStrings(g.Tokens).Build()}
		return nil
	}
	var batches regexBatches
	for start := 0; start < len(g.Tokens); start += regexBatchSize {
		end := min(start+regexBatchSize, len(g.Tokens))
		quoted := make([]string, 0, end-start)
		for _, tok := range g.Tokens[start:end] {
			quoted = append(quoted, regexp.QuoteMeta(tok))
		}
		re, err := regexp.Compile(strings.Join(quoted, "|"))
		if err != nil {
			return fmt.Errorf("compile contains group on %s: %w", g.Column, err)
		}
		batches = append(batches, re)
	}
	g.matcher = batches
	return nil
}

func compilePredicate(c Condition) predicate {
	switch c.Type {
	case TypeText:
		return textPredicate{op: c.Operator, value: c.Options.fold(c.Value)}
	case TypeEnum:
		set := make(map[string]struct{})
		for _, item := range strings.Split(c.Value, ";") {
			if item = strings.TrimSpace(item); item != "" {
				set[c.Options.fold(item)] = struct{}{}
			}
		}
		if len(set) == 0 {
			return invalidPredicate{reason: "empty enum set"}
		}
		return enumPredicate{set: set}
	case TypeNumber:
		return compileNumber(c)
	case TypeBoolean:
		return boolPredicate{want: IsTruthy(c.Value)}
	case TypeRegex:
		if c.Value == "" {
			return invalidPredicate{reason: "empty pattern"}
		}
		flags := regexp2.None
		if c.Options.IgnoreCase {
			flags |= regexp2.IgnoreCase
		}
		re, err := regexp2.Compile(c.Value, flags)
		if err != nil {
			return invalidPredicate{reason: fmt.Sprintf("invalid pattern: %v", err)}
		}
		re.MatchTimeout = regexTimeout
		return regexPredicate{re: re}
	case TypeCode:
		code := DigitsOnly(c.Value)
		if code == "" {
			return invalidPredicate{reason: "value has no digits"}
		}
		return codePredicate{code: code}
	case TypeFuzzy:
		th, err := ParseThreshold(c.Threshold)
		if err != nil {
			return invalidPredicate{reason: err.Error()}
		}
		return fuzzyPredicate{target: NormalizeKey(c.Value), targetCode: ExtractCode(c.Value), threshold: th}
	}
	return invalidPredicate{reason: fmt.Sprintf("unsupported %s/%s", c.Type, c.Operator)}
}

// betweenPattern accepts "lo-hi" with optional signs and spaces.
var betweenPattern = regexp.MustCompile(`^\s*(-?[0-9]*\.?[0-9]+)\s*-\s*(-?[0-9]*\.?[0-9]+)\s*$`)

func compileNumber(c Condition) predicate {
	if c.Operator == OpBetween {
		m := betweenPattern.FindStringSubmatch(c.Value)
		if m == nil {
			return invalidPredicate{reason: fmt.Sprintf("invalid range %q", c.Value)}
		}
		lo, _ := strconv.ParseFloat(m[1], 64)
		hi, _ := strconv.ParseFloat(m[2], 64)
		return numberPredicate{op: OpBetween, lo: lo, hi: hi}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
	if err != nil {
		return invalidPredicate{reason: fmt.Sprintf("invalid number %q", c.Value)}
	}
	return numberPredicate{op: c.Operator, lo: v, hi: v}
}

// fold applies the option-driven canonicalization used by text and enum
// comparisons.
func (o Options) fold(s string) string {
	if o.Normalize {
		return NormalizeText(s)
	}
	if o.IgnoreCase {
		return strings.ToLower(s)
	}
	return s
}

func appendUnique(tokens []string, tok string) []string {
	for _, t := range tokens {
		if t == tok {
			return tokens
		}
	}
	return append(tokens, tok)
}
