package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/citycluster-cli/internal/utils"
)

// OutputSuffix is appended to the input stem for batch outputs.
const OutputSuffix = ".clustered.csv"

// BatchOptions configures RunBatch.
type BatchOptions struct {
	OutDir      string
	Concurrency int
	// Reports writes a <stem>.report.md next to each output.
	Reports bool
}

// BatchItem is the outcome for one input file.
type BatchItem struct {
	Input  string
	Output string
	Result *Result
	Err    error
}

// RunBatch runs base over every input, writing each output into OutDir under a
// name that collides neither with existing files nor with other inputs of the
// same batch. A failing input is recorded in its item and does not stop the rest.
func RunBatch(ctx context.Context, base Config, inputs []string, opt BatchOptions, log *zap.Logger) ([]BatchItem, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opt.OutDir == "" {
		return nil, eris.Wrap(ErrInvalidConfig, "pipeline: batch output directory is required")
	}
	if err := utils.EnsureDir(opt.OutDir); err != nil {
		return nil, eris.Wrapf(err, "pipeline: create %s", opt.OutDir)
	}

	items := make([]BatchItem, len(inputs))
	taken := map[string]bool{}
	for i, in := range inputs {
		items[i] = BatchItem{Input: in, Output: utils.UniquePath(opt.OutDir, stem(in), OutputSuffix, taken)}
	}

	g, ctx := errgroup.WithContext(ctx)
	if opt.Concurrency > 0 {
		g.SetLimit(opt.Concurrency)
	}
	for i := range items {
		item := &items[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				item.Err = err
				return err
			}
			cfg := base
			cfg.Input = item.Input
			cfg.Output = item.Output
			cfg.ReportPath = ""
			if opt.Reports {
				cfg.ReportPath = strings.TrimSuffix(item.Output, OutputSuffix) + ".report.md"
			}
			item.Result, item.Err = Run(cfg, log.With(zap.String("input", item.Input)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, err
	}
	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
	}
	log.Info("batch complete", zap.Int("files", len(items)), zap.Int("failed", failed))
	return items, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
