package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yashubustudio/majorfilter/internal/sheetio"
	"yashubustudio/majorfilter/majorfilter"
)

// Service drives the chunked filter pipeline over a list of input files.
type Service struct {
	cfg    majorfilter.Config
	run    *RunContext
	logger *zap.Logger
}

// NewService prepares a pipeline. run may be shared with a UI that polls it;
// nil creates a private one.
func NewService(cfg majorfilter.Config, run *RunContext, logger *zap.Logger) *Service {
	if run == nil {
		// nobody reads a private context, so log lines never wait
		run = NewRunContext(64)
		run.logWait = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:    cfg.Sanitize(),
		run:    run,
		logger: logger.With(zap.String("run", run.ID)),
	}
}

func (s *Service) stopRequested(ctx context.Context) bool {
	return s.run.Cancelled() || ctx.Err() != nil
}

// Run processes every configured file. Configuration problems abort before
// any row is read; missing or unreadable inputs are skipped. Cancellation,
// through ctx or the RunContext, stops at the next chunk boundary and still
// writes what was matched so far.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	res := &Result{RunID: s.run.ID}

	s.run.setState(StateLoadingConditions)
	filter, err := buildFilter(s.cfg, s.logger)
	if err != nil {
		s.run.setState(StateIdle)
		return nil, err
	}

	merged := majorfilter.NewBlock(nil, nil)
	for _, path := range s.cfg.Files {
		if s.stopRequested(ctx) {
			res.Cancelled = true
			break
		}
		fr, block, cancelled := s.processFile(ctx, path, filter)
		res.Processed += fr.Processed
		res.Matched += int64(fr.Matched)
		if block.Len() > 0 {
			if !s.cfg.OnlyMerge {
				s.run.setState(StateWritingFileResult)
				fr.Output, _, fr.Err = s.write(block, s.outputPath(path))
			}
			merged.Append(block)
		} else if !fr.Skipped {
			s.logger.Info("no matches, nothing written", zap.String("file", filepath.Base(path)))
		}
		res.Files = append(res.Files, fr)
		if cancelled {
			res.Cancelled = true
			break
		}
	}

	if merged.Len() > 0 {
		s.run.setState(StateMerging)
		out, rows, err := s.write(merged, s.mergePath())
		if err == nil {
			res.MergedOutput, res.MergedRows = out, rows
		}
	}

	res.Elapsed = time.Since(started)
	if res.Cancelled {
		s.run.setState(StateCancelled)
	} else {
		s.run.setState(StateDone)
	}
	s.logger.Info("run finished",
		zap.Int64("rows", res.Processed),
		zap.Int64("matched", res.Matched),
		zap.Duration("elapsed", res.Elapsed),
		zap.Bool("cancelled", res.Cancelled))
	s.run.logf("完成：总计处理 %d 行，命中 %d 行，耗时 %s", res.Processed, res.Matched, FormatElapsed(res.Elapsed))
	return res, nil
}

// processFile streams one file through the filter. The returned block holds
// the matched rows in input order.
func (s *Service) processFile(ctx context.Context, path string, filter rowFilter) (FileResult, *majorfilter.Block, bool) {
	fr := FileResult{Path: path}
	acc := majorfilter.NewBlock(nil, nil)
	logger := s.logger.With(zap.String("file", filepath.Base(path)))

	if _, err := os.Stat(path); err != nil {
		logger.Warn("input file missing, skipped", zap.Error(err))
		s.run.logf("文件不存在：%s（跳过）", path)
		fr.Skipped, fr.Err = true, err
		return fr, acc, false
	}

	total := int64(sheetio.EstimateRows(path, s.cfg.Sheet))
	if s.cfg.Limit > 0 && total > int64(s.cfg.Limit) {
		total = int64(s.cfg.Limit)
	}
	s.run.setState(StateProcessingFile)
	s.run.startFile(filepath.Base(path), total)
	s.run.logf("开始处理：%s", filepath.Base(path))
	logger.Info("processing", zap.Int64("estimated_rows", total))

	reader, err := sheetio.Open(path, s.cfg.Sheet, sheetio.Options{
		ChunkSize: s.cfg.ChunkSize,
		Limit:     s.cfg.Limit,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("input file unreadable, skipped", zap.Error(err))
		fr.Skipped, fr.Err = true, err
		return fr, acc, false
	}
	defer reader.Close()

	step := int64(s.cfg.ProgressStep)
	var lastStep int64
	cancelled := false
	for done := false; !done; {
		window := make([]sheetio.Chunk, 0, s.cfg.Workers)
		for len(window) < s.cfg.Workers {
			if s.stopRequested(ctx) {
				cancelled = true
				break
			}
			chunk, err := reader.Next()
			if errors.Is(err, io.EOF) {
				done = true
				break
			}
			if err != nil {
				logger.Error("read failed, rest of file skipped", zap.Error(err))
				fr.Err = err
				done = true
				break
			}
			window = append(window, chunk)
		}
		if len(window) > 0 {
			for _, kept := range s.evaluateWindow(window, filter) {
				acc.Append(kept)
			}
			var rows int64
			for _, c := range window {
				rows += int64(len(c.Rows))
			}
			fr.Processed += rows
			s.run.processed.Add(rows)
			s.run.matched.Store(int64(acc.Len()))
			if step > 0 && fr.Processed/step > lastStep {
				lastStep = fr.Processed / step
				s.reportProgress(logger)
			}
		}
		if cancelled {
			break
		}
	}
	fr.Matched = acc.Len()
	s.reportProgress(logger)
	if cancelled {
		logger.Warn("cancelled", zap.Int64("rows", fr.Processed), zap.Int("matched", fr.Matched))
	}
	return fr, acc, cancelled
}

// evaluateWindow filters chunks in parallel and returns the kept rows in
// chunk order.
func (s *Service) evaluateWindow(window []sheetio.Chunk, filter rowFilter) []*majorfilter.Block {
	out := make([]*majorfilter.Block, len(window))
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, chunk := range window {
		g.Go(func() error {
			block := majorfilter.NewBlock(append([]string(nil), chunk.Header...), chunk.Rows)
			keep := filter.apply(block)
			out[i] = block.Filter(keep)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Service) reportProgress(logger *zap.Logger) {
	p := s.run.Snapshot()
	s.run.emit(Event{Kind: EventProgress, Progress: p})
	logger.Info(ProgressText(p))
}

func (s *Service) write(block *majorfilter.Block, dest string) (string, int, error) {
	out, rows, err := majorfilter.WriteResultRows(block, dest, majorfilter.WriteOptions{
		Append:      s.cfg.Append,
		Dedup:       s.cfg.Dedup,
		DedupKey:    s.cfg.DedupKey,
		MajorColumn: s.cfg.MajorColumn,
		Logger:      s.logger,
	})
	if err != nil {
		s.logger.Error("write failed", zap.String("path", dest), zap.Error(err))
		return "", 0, err
	}
	s.logger.Info("written", zap.String("path", out), zap.Int("rows", rows))
	s.run.logf("已写出：%s（%d 行）", out, rows)
	return out, rows, nil
}

// outputPath is <out_dir or source dir>/<base>_filtered.xlsx.
func (s *Service) outputPath(input string) string {
	dir := s.cfg.OutDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+"_filtered.xlsx")
}

// mergePath is merge_out when set, otherwise merged_filtered.xlsx next to
// the first input file.
func (s *Service) mergePath() string {
	if s.cfg.MergeOut != "" {
		return s.cfg.MergeOut
	}
	dir := "."
	if len(s.cfg.Files) > 0 {
		dir = filepath.Dir(s.cfg.Files[0])
	}
	return filepath.Join(dir, majorfilter.DefaultMergeFile)
}

// String renders a one-line summary.
func (r *Result) String() string {
	return fmt.Sprintf("run %s: %d rows, %d matched, %d outputs, cancelled=%t",
		r.RunID, r.Processed, r.Matched, len(r.Outputs()), r.Cancelled)
}
