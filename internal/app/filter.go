package app

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"yashubustudio/majorfilter/majorfilter"
)

// rowFilter marks the rows of a block to keep, annotating the block with its
// result columns.
type rowFilter interface {
	apply(block *majorfilter.Block) []bool
}

type conditionFilter struct {
	ev *majorfilter.Evaluator
}

func (f conditionFilter) apply(block *majorfilter.Block) []bool {
	return f.ev.Evaluate(block)
}

// requirementFilter is the legacy single-column name matcher.
type requirementFilter struct {
	matcher   *majorfilter.Matcher
	column    string
	threshold float64
	logger    *zap.Logger
	missing   sync.Once
}

func (f *requirementFilter) apply(block *majorfilter.Block) []bool {
	col := majorfilter.ResolveMajorColumn(block.Header, f.column)
	if col == "" {
		f.missing.Do(func() {
			f.logger.Warn("major column not found, no row can match", zap.String("column", f.column))
		})
		col = f.column
	}
	return f.matcher.Annotate(block, col, f.threshold)
}

// buildFilter loads the condition set or the requirements catalog. Any
// failure here is fatal for the run.
func buildFilter(cfg majorfilter.Config, logger *zap.Logger) (rowFilter, error) {
	majorfilter.SetMajorCandidates(cfg.MajorCandidates)
	sim, err := majorfilter.NewSimilarity(cfg.FuzzyStrategy, cfg.SimilarityCache)
	if err != nil {
		return nil, err
	}
	switch {
	case cfg.ConditionsFile != "":
		if cfg.RequirementsFile != "" {
			logger.Warn("both condition and requirements files set, using conditions",
				zap.String("conditions", cfg.ConditionsFile), zap.String("requirements", cfg.RequirementsFile))
		}
		mode, err := majorfilter.ParseCombineMode(string(cfg.CombineMode))
		if err != nil {
			return nil, err
		}
		conds, err := majorfilter.LoadConditions(cfg.ConditionsFile)
		if err != nil {
			return nil, err
		}
		plan, err := majorfilter.Compile(conds, majorfilter.CompileOptions{ContainsStrategy: cfg.ContainsStrategy})
		if err != nil {
			return nil, err
		}
		logger.Info("conditions loaded", zap.Int("count", len(conds)), zap.Int("contains_groups", len(plan.Groups)),
			zap.String("mode", string(mode)))
		ev := majorfilter.NewEvaluator(plan, majorfilter.EvaluatorOptions{
			Mode:       mode,
			Threshold:  cfg.CombineThreshold,
			Audit:      cfg.Audit,
			Similarity: sim,
			Logger:     logger,
		})
		return conditionFilter{ev: ev}, nil
	case cfg.RequirementsFile != "":
		reqs, err := majorfilter.LoadRequirements(cfg.RequirementsFile)
		if err != nil {
			return nil, err
		}
		logger.Info("requirements loaded", zap.Int("count", len(reqs)), zap.String("column", cfg.MajorColumn))
		return &requirementFilter{
			matcher:   majorfilter.NewMatcher(reqs, sim).WithThreshold(cfg.MajorThreshold),
			column:    cfg.MajorColumn,
			threshold: cfg.MajorThreshold,
			logger:    logger,
		}, nil
	}
	return nil, fmt.Errorf("%w: neither conditions_file nor requirements_file is set", majorfilter.ErrNoConditions)
}
