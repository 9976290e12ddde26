package majorfilter

import (
	"encoding/json"
	"strings"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultMajorColumn      = "Major"
	DefaultMajorThreshold   = 0.8
	DefaultCombineThreshold = 0.8
	DefaultDedupKey         = "PersonID"
	DefaultChunkSize        = 50000
	DefaultProgressStep     = 5000
	DefaultSimilarityCache  = 4096
	DefaultMergeFile        = "merged_filtered.xlsx"
)

// Config aggregates the resolved settings for one run.
type Config struct {
	Files            []string `json:"files" yaml:"files" mapstructure:"files"`
	Sheet            string   `json:"sheet" yaml:"sheet" mapstructure:"sheet"`
	ConditionsFile   string   `json:"conditions_file" yaml:"conditions_file" mapstructure:"conditions_file"`
	RequirementsFile string   `json:"requirements_file" yaml:"requirements_file" mapstructure:"requirements_file"`

	MajorColumn     string   `json:"major_column" yaml:"major_column" mapstructure:"major_column"`
	MajorCandidates []string `json:"major_candidates" yaml:"major_candidates" mapstructure:"major_candidates"`
	MajorThreshold  float64  `json:"major_threshold" yaml:"major_threshold" mapstructure:"major_threshold"`

	CombineMode      CombineMode `json:"combine_mode" yaml:"combine_mode" mapstructure:"combine_mode"`
	CombineThreshold float64     `json:"combine_threshold" yaml:"combine_threshold" mapstructure:"combine_threshold"`

	OutDir    string `json:"out_dir" yaml:"out_dir" mapstructure:"out_dir"`
	MergeOut  string `json:"merge_out" yaml:"merge_out" mapstructure:"merge_out"`
	OnlyMerge bool   `json:"only_merge" yaml:"only_merge" mapstructure:"only_merge"`
	Append    bool   `json:"append" yaml:"append" mapstructure:"append"`
	Dedup     bool   `json:"dedup" yaml:"dedup" mapstructure:"dedup"`
	DedupKey  string `json:"dedup_key" yaml:"dedup_key" mapstructure:"dedup_key"`

	ChunkSize    int  `json:"chunk_size" yaml:"chunk_size" mapstructure:"chunk_size"`
	ProgressStep int  `json:"progress_step" yaml:"progress_step" mapstructure:"progress_step"`
	Limit        int  `json:"limit" yaml:"limit" mapstructure:"limit"`
	Audit        bool `json:"audit" yaml:"audit" mapstructure:"audit"`
	Workers      int  `json:"workers" yaml:"workers" mapstructure:"workers"`

	ContainsStrategy string `json:"contains_strategy" yaml:"contains_strategy" mapstructure:"contains_strategy"`
	FuzzyStrategy    string `json:"fuzzy_strategy" yaml:"fuzzy_strategy" mapstructure:"fuzzy_strategy"`
	SimilarityCache  int    `json:"similarity_cache" yaml:"similarity_cache" mapstructure:"similarity_cache"`
}

// DefaultConfig returns a config with every default set.
func DefaultConfig() Config {
	return Config{
		MajorThreshold:   DefaultMajorThreshold,
		CombineThreshold: DefaultCombineThreshold,
		Dedup:            true,
		DedupKey:         DefaultDedupKey,
		SimilarityCache:  DefaultSimilarityCache,
	}.Sanitize()
}

// Clone creates a deep copy of the configuration so callers can mutate safely.
func (c Config) Clone() Config {
	buf, _ := json.Marshal(c)
	var out Config
	_ = json.Unmarshal(buf, &out)
	return out
}

// ApplyDefaults populates zero values that have no meaning of their own.
// Thresholds are left alone: 0 is a valid threshold, so their defaults come
// from DefaultConfig and the viper defaults.
func (c *Config) ApplyDefaults() {
	if c.MajorColumn == "" {
		c.MajorColumn = DefaultMajorColumn
	}
	if c.CombineMode == "" {
		c.CombineMode = CombineOr
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ProgressStep <= 0 {
		c.ProgressStep = DefaultProgressStep
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.ContainsStrategy == "" {
		c.ContainsStrategy = ContainsAuto
	}
	if c.FuzzyStrategy == "" {
		c.FuzzyStrategy = StrategyRatio
	}
	if c.SimilarityCache < 0 {
		c.SimilarityCache = 0
	}
}

// Sanitize trims string fields, drops blank file entries and clamps values
// into their valid ranges. It returns the cleaned copy.
func (c Config) Sanitize() Config {
	c = c.Clone()
	files := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		if f = strings.TrimSpace(f); f != "" {
			files = append(files, f)
		}
	}
	c.Files = files
	candidates := make([]string, 0, len(c.MajorCandidates))
	for _, name := range c.MajorCandidates {
		if name = strings.TrimSpace(name); name != "" {
			candidates = append(candidates, name)
		}
	}
	c.MajorCandidates = candidates
	c.Sheet = strings.TrimSpace(c.Sheet)
	c.ConditionsFile = strings.TrimSpace(c.ConditionsFile)
	c.RequirementsFile = strings.TrimSpace(c.RequirementsFile)
	c.MajorColumn = strings.TrimSpace(c.MajorColumn)
	c.OutDir = strings.TrimSpace(c.OutDir)
	c.MergeOut = strings.TrimSpace(c.MergeOut)
	c.DedupKey = strings.TrimSpace(c.DedupKey)
	c.CombineMode = CombineMode(strings.ToUpper(strings.TrimSpace(string(c.CombineMode))))
	if c.MajorThreshold > 1 {
		c.MajorThreshold /= 100
	}
	if c.MajorThreshold < 0 {
		c.MajorThreshold = 0
	}
	if c.Limit < 0 {
		c.Limit = 0
	}
	c.ApplyDefaults()
	return c
}
