package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"yashubustudio/majorfilter/internal/app"
	"yashubustudio/majorfilter/majorfilter"
)

type cliOptions struct {
	configPath     string
	majorThreshold string
	verbose        bool
	noProgress     bool
}

type cli struct {
	opts   cliOptions
	v      *viper.Viper
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("majorfilter-cli: %v", err)
	}
}

// flagKeys maps cobra flag names to config keys.
var flagKeys = map[string]string{
	"sheet":             "sheet",
	"conditions":        "conditions_file",
	"requirements":      "requirements_file",
	"major-col":         "major_column",
	"major-candidates":  "major_candidates",
	"mode":              "combine_mode",
	"combine-threshold": "combine_threshold",
	"out-dir":           "out_dir",
	"merge-out":         "merge_out",
	"only-merge":        "only_merge",
	"append":            "append",
	"dedup":             "dedup",
	"dedup-key":         "dedup_key",
	"chunk-size":        "chunk_size",
	"progress-step":     "progress_step",
	"limit":             "limit",
	"audit":             "audit",
	"workers":           "workers",
	"contains-strategy": "contains_strategy",
	"fuzzy-strategy":    "fuzzy_strategy",
	"similarity-cache":  "similarity_cache",
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	d := majorfilter.DefaultConfig()

	root := &cobra.Command{
		Use:           "majorfilter-cli [flags] FILE...",
		Args:          cobra.ArbitraryArgs,
		Short:         "Filter spreadsheet rows by a condition set or a requirements catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(c.opts.verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			c.logger = logger
			c.v = majorfilter.NewViper()
			if err := majorfilter.ReadConfigFile(c.v, strings.TrimSpace(c.opts.configPath)); err != nil {
				return err
			}
			return bindFlags(c.v, cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, args)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.opts.configPath, "config", "", "Path to majorfilter.yaml or .json")
	pf.BoolVarP(&c.opts.verbose, "verbose", "v", false, "Enable debug logging")

	f := root.Flags()
	f.String("sheet", d.Sheet, "Sheet name, comma list, or * for every sheet (default: first sheet)")
	f.String("conditions", "", "Condition file (csv or xlsx)")
	f.String("requirements", "", "Requirements catalog, one major per line (legacy mode)")
	f.String("major-col", d.MajorColumn, "Major column used in requirements mode and for dedup")
	f.StringSlice("major-candidates", nil, "Headers tried when --major-col is absent (default: "+strings.Join(majorfilter.DefaultMajorCandidates(), ",")+")")
	f.StringVar(&c.opts.majorThreshold, "major-threshold", "", "Requirements match threshold: 0.8, 80 or 80%")
	f.String("mode", string(d.CombineMode), "Combine mode: AND, OR or WEIGHTED")
	f.Float64("combine-threshold", d.CombineThreshold, "Total score required in WEIGHTED mode")
	f.String("out-dir", "", "Directory for per-file outputs (default: next to each input)")
	f.String("merge-out", "", "Merged output path (default: merged_filtered.xlsx next to the first input)")
	f.Bool("only-merge", false, "Write only the merged output")
	f.Bool("append", false, "Append to existing outputs instead of replacing them")
	f.Bool("dedup", d.Dedup, "Drop duplicate rows when writing")
	f.String("dedup-key", d.DedupKey, "Column identifying duplicate rows")
	f.Int("chunk-size", d.ChunkSize, "Rows per chunk")
	f.Int("progress-step", d.ProgressStep, "Rows between progress reports")
	f.Int("limit", 0, "Read at most this many rows per file (0 = all)")
	f.Bool("audit", false, "Write per-condition hit, score and description columns")
	f.Int("workers", d.Workers, "Chunks evaluated in parallel")
	f.String("contains-strategy", d.ContainsStrategy, "contains matcher: auto, regex or automaton")
	f.String("fuzzy-strategy", d.FuzzyStrategy, "Fuzzy scorer: ratio or quick")
	f.Int("similarity-cache", majorfilter.DefaultSimilarityCache, "Similarity memo size (0 disables)")
	f.BoolVar(&c.opts.noProgress, "no-progress", false, "Disable the progress bar")

	root.AddCommand(newValidateCmd(c), newInitConfigCmd(c))
	return root
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// bindFlags lets explicitly set flags override the config file.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func (c *cli) loadConfig(args []string) (majorfilter.Config, error) {
	if len(args) > 0 {
		c.v.Set("files", args)
	}
	cfg, err := majorfilter.DecodeConfig(c.v)
	if err != nil {
		return cfg, err
	}
	if c.opts.majorThreshold != "" {
		th, err := majorfilter.ParseThreshold(c.opts.majorThreshold)
		if err != nil {
			return cfg, fmt.Errorf("--major-threshold: %w", err)
		}
		cfg.MajorThreshold = th
	}
	return cfg.Sanitize(), nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	cfg, err := c.loadConfig(args)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Files) == 0 {
		_ = cmd.Usage()
		return errors.New("no input files")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rc := app.NewRunContext(256)
	service := app.NewService(cfg, rc, c.logger)

	var watcher *progressWatcher
	if !c.opts.noProgress {
		watcher = startProgress(rc, os.Stderr)
	}
	go func() {
		<-ctx.Done()
		rc.Cancel()
	}()
	res, err := service.Run(ctx)
	if watcher != nil {
		watcher.Stop()
	}
	if err != nil {
		return err
	}
	printSummary(res)
	return nil
}

func printSummary(res *app.Result) {
	fmt.Println()
	if res.Cancelled {
		fmt.Println("==== 已取消（已写出取消前的结果） ====")
	} else {
		fmt.Println("==== 处理完成 ====")
	}
	for _, f := range res.Files {
		switch {
		case f.Skipped:
			fmt.Printf("  %s: 跳过（%v）\n", f.Path, f.Err)
		case f.Output != "":
			fmt.Printf("  %s: %s 行，命中 %s 行 -> %s\n", f.Path, humanize.Comma(f.Processed), humanize.Comma(int64(f.Matched)), f.Output)
		default:
			fmt.Printf("  %s: %s 行，命中 %s 行\n", f.Path, humanize.Comma(f.Processed), humanize.Comma(int64(f.Matched)))
		}
	}
	if res.MergedOutput != "" {
		fmt.Printf("合并结果：%s（%s 行）\n", res.MergedOutput, humanize.Comma(int64(res.MergedRows)))
	}
	fmt.Printf("总计处理 %s 行，命中 %s 行，耗时 %s\n",
		humanize.Comma(res.Processed), humanize.Comma(res.Matched), app.FormatElapsed(res.Elapsed))
}
