package majorfilter

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Result columns written by Evaluator.
const (
	ColMatchAll = "_match_all"
	ColScoreAll = "_score_all"
)

// EvaluatorOptions configure an Evaluator.
type EvaluatorOptions struct {
	Mode      CombineMode
	Threshold float64
	Audit     bool
	// Similarity scores fuzzy conditions; nil uses SequenceRatio.
	Similarity Similarity
	Logger     *zap.Logger
}

// Evaluator applies a compiled plan to row blocks. It is safe for concurrent
// use; the plan is never mutated.
type Evaluator struct {
	plan *Plan
	opts EvaluatorOptions

	logger *zap.Logger
	warned sync.Map
}

// NewEvaluator binds a plan to combine settings. Conditions carrying a
// compile diagnostic are reported once here.
func NewEvaluator(plan *Plan, opts EvaluatorOptions) *Evaluator {
	if opts.Similarity == nil {
		opts.Similarity = SequenceRatio{}
	}
	if opts.Mode == "" {
		opts.Mode = CombineOr
	}
	e := &Evaluator{plan: plan, opts: opts, logger: opts.Logger}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	for i, c := range plan.Conditions {
		if c.Diagnostic != "" {
			e.warnOnce(i, c.Condition, c.Diagnostic)
		}
	}
	return e
}

func (e *Evaluator) warnOnce(idx int, c Condition, reason string) {
	key := fmt.Sprintf("%d\x00%s", idx, reason)
	if _, loaded := e.warned.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	e.logger.Warn("condition cannot hit",
		zap.Int("index", idx+1),
		zap.String("column", c.Column),
		zap.String("type", string(c.Type)),
		zap.String("operator", string(c.Operator)),
		zap.String("reason", reason))
}

// blockState caches per-block derived columns shared across conditions.
type blockState struct {
	block  *Block
	values map[string][]string
	codes  map[string][]string
	groups map[*ContainsGroup][]bool
}

func (s *blockState) column(name string) ([]string, bool) {
	if v, ok := s.values[name]; ok {
		return v, true
	}
	v, ok := s.block.Column(name)
	if !ok {
		return nil, false
	}
	s.values[name] = v
	return v, true
}

func (s *blockState) codesFor(name string, values []string) []string {
	if c, ok := s.codes[name]; ok {
		return c
	}
	c := ExtractCodes(values)
	s.codes[name] = c
	return c
}

// EvaluateCondition evaluates condition idx of the plan over the whole block.
func (e *Evaluator) EvaluateCondition(block *Block, idx int) ConditionResult {
	return e.evaluate(e.newState(block), idx)
}

func (e *Evaluator) newState(block *Block) *blockState {
	return &blockState{
		block:  block,
		values: make(map[string][]string),
		codes:  make(map[string][]string),
		groups: make(map[*ContainsGroup][]bool),
	}
}

func (e *Evaluator) evaluate(st *blockState, idx int) ConditionResult {
	n := st.block.Len()
	res := newConditionResult(n)
	cc := e.plan.Conditions[idx]
	if _, ok := cc.pred.(invalidPredicate); ok {
		return res
	}
	values, ok := st.column(cc.Column)
	if !ok {
		e.warnOnce(idx, cc.Condition, "column not found")
		return res
	}
	opts := cc.Options
	switch p := cc.pred.(type) {
	case textPredicate:
		for i, v := range values {
			v = opts.fold(v)
			switch p.op {
			case OpEquals:
				res.Hits[i] = v == p.value
			case OpStartsWith:
				res.Hits[i] = strings.HasPrefix(v, p.value)
			case OpEndsWith:
				res.Hits[i] = strings.HasSuffix(v, p.value)
			}
		}
	case containsPredicate:
		hits, ok := st.groups[p.group]
		if !ok {
			hits = make([]bool, n)
			for i, v := range values {
				hits[i] = p.group.Match(v)
			}
			st.groups[p.group] = hits
		}
		copy(res.Hits, hits)
	case enumPredicate:
		for i, v := range values {
			_, res.Hits[i] = p.set[opts.fold(strings.TrimSpace(v))]
		}
	case numberPredicate:
		for i, v := range values {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				continue
			}
			switch p.op {
			case OpBetween:
				res.Hits[i] = f >= p.lo && f <= p.hi
			case OpMin:
				res.Hits[i] = f >= p.lo
			case OpMax:
				res.Hits[i] = f <= p.hi
			case OpEquals:
				res.Hits[i] = f == p.lo
			}
		}
	case boolPredicate:
		for i, v := range values {
			res.Hits[i] = IsTruthy(v) == p.want
		}
	case regexPredicate:
		for i, v := range values {
			ok, err := p.re.MatchString(v)
			if err != nil {
				e.warnOnce(idx, cc.Condition, err.Error())
				continue
			}
			res.Hits[i] = ok
		}
	case codePredicate:
		codes := st.codesFor(cc.Column, values)
		for i, c := range codes {
			res.Hits[i] = c == p.code
		}
	case fuzzyPredicate:
		e.evaluateFuzzy(st, cc, p, values, res)
		return res
	case invalidPredicate:
		return res
	}
	for i, hit := range res.Hits {
		if hit {
			res.Scores[i] = 1
		}
	}
	return res
}

func (e *Evaluator) evaluateFuzzy(st *blockState, cc CompiledCondition, p fuzzyPredicate, values []string, res ConditionResult) {
	var codes []string
	if cc.Options.CodePrefer && p.targetCode != "" {
		codes = st.codesFor(cc.Column, values)
	}
	for i, v := range values {
		if codes != nil && codes[i] == p.targetCode {
			res.Hits[i] = true
			res.Scores[i] = 1
			continue
		}
		score := e.opts.Similarity.Score(NormalizeKey(v), p.target, p.threshold)
		res.Scores[i] = score
		res.Hits[i] = score >= p.threshold
	}
}

// Evaluate runs every condition over block, records _match_all and
// _score_all (plus audit columns when enabled) and returns the verdict mask.
func (e *Evaluator) Evaluate(block *Block) []bool {
	n := block.Len()
	st := e.newState(block)
	results := make([]ConditionResult, len(e.plan.Conditions))
	weights := make([]float64, len(e.plan.Conditions))
	for i, cc := range e.plan.Conditions {
		results[i] = e.evaluate(st, i)
		weights[i] = cc.Weight
	}
	combined := Combine(results, weights, e.opts.Mode, e.opts.Threshold, n)
	if e.opts.Audit {
		for i, cc := range e.plan.Conditions {
			writeAudit(block, i+1, cc.Condition, results[i])
		}
	}
	flags := make([]string, n)
	totals := make([]string, n)
	for i := 0; i < n; i++ {
		flags[i] = formatBool(combined.Verdict[i])
		totals[i] = formatScore(combined.Total[i])
	}
	block.SetColumn(ColMatchAll, flags)
	block.SetColumn(ColScoreAll, totals)
	return combined.Verdict
}

func writeAudit(block *Block, idx int, c Condition, res ConditionResult) {
	n := block.Len()
	hits := make([]string, n)
	scores := make([]string, n)
	desc := make([]string, n)
	d := c.Describe()
	for i := 0; i < n; i++ {
		hits[i] = formatBool(res.Hits[i])
		scores[i] = formatScore(res.Scores[i])
		desc[i] = d
	}
	block.SetColumn(fmt.Sprintf("_cond_%d_match", idx), hits)
	block.SetColumn(fmt.Sprintf("_cond_%d_score", idx), scores)
	block.SetColumn(fmt.Sprintf("_cond_%d_desc", idx), desc)
}
