package majorfilter

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigFile = "majorfilter.yaml"
	envPrefix         = "MAJORFILTER"
)

// NewViper returns a viper instance carrying every config default and bound
// to MAJORFILTER_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()
	v.SetDefault("files", []string{})
	v.SetDefault("sheet", d.Sheet)
	v.SetDefault("conditions_file", "")
	v.SetDefault("requirements_file", "")
	v.SetDefault("major_column", d.MajorColumn)
	v.SetDefault("major_candidates", []string{})
	v.SetDefault("major_threshold", d.MajorThreshold)
	v.SetDefault("combine_mode", string(d.CombineMode))
	v.SetDefault("combine_threshold", d.CombineThreshold)
	v.SetDefault("out_dir", "")
	v.SetDefault("merge_out", "")
	v.SetDefault("only_merge", false)
	v.SetDefault("append", false)
	v.SetDefault("dedup", d.Dedup)
	v.SetDefault("dedup_key", d.DedupKey)
	v.SetDefault("chunk_size", d.ChunkSize)
	v.SetDefault("progress_step", d.ProgressStep)
	v.SetDefault("limit", 0)
	v.SetDefault("audit", false)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("contains_strategy", d.ContainsStrategy)
	v.SetDefault("fuzzy_strategy", d.FuzzyStrategy)
	v.SetDefault("similarity_cache", d.SimilarityCache)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadConfigFile loads path into v. A missing file leaves the defaults in
// place.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// DecodeConfig unmarshals v into a sanitized Config.
func DecodeConfig(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg.Sanitize(), nil
}

// LoadConfig loads configuration from the given yaml or json path, falling
// back to defaults when the file does not exist.
func LoadConfig(path string) (Config, error) {
	v := NewViper()
	if err := ReadConfigFile(v, path); err != nil {
		return Config{}, err
	}
	return DecodeConfig(v)
}

// SaveConfig persists configuration to disk as json or yaml depending on the
// extension.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigFile
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
