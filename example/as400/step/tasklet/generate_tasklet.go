package tasklet

import (
	"context"

	"github.com/Vignesh4110/finance-modernization/example/as400/generator"
	config "github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

// ExecutionContext のキー。
const (
	OutputDirKey     = "generate.output_dir"
	RecordsKeyPrefix = "generate.records."
)

// GenerateTasklet は合成レガシーファイルを生成する Tasklet です。
type GenerateTasklet struct {
	registry *fixedwidth.Registry
	cfg      config.GenerateConfig
}

var _ core.Tasklet = (*GenerateTasklet)(nil)

// NewGenerateTasklet は新しい GenerateTasklet を作成します。
func NewGenerateTasklet(registry *fixedwidth.Registry, cfg config.GenerateConfig) *GenerateTasklet {
	return &GenerateTasklet{registry: registry, cfg: cfg}
}

// Execute はファイルを生成し、出力件数を StepExecution の ExecutionContext に記録します。
func (t *GenerateTasklet) Execute(ctx context.Context, se *core.StepExecution) (core.ExitStatus, error) {
	if err := ctx.Err(); err != nil {
		return core.ExitStatusFailed, err
	}
	logger.Infof("合成ファイルを '%s' に生成します (seed=%d)。", t.cfg.OutputDir, t.cfg.Seed)
	gen := generator.New(t.registry, generator.Options{
		Seed:          t.cfg.Seed,
		Customers:     t.cfg.Customers,
		Invoices:      t.cfg.Invoices,
		Payments:      t.cfg.Payments,
		JournalLines:  t.cfg.JournalLines,
		MalformedRate: t.cfg.MalformedRate,
	})
	res, err := gen.WriteAll(t.cfg.OutputDir)
	if err != nil {
		return core.ExitStatusFailed, exception.NewBatchError("generate_tasklet", "合成ファイルの生成に失敗しました", err, false, false)
	}
	se.ExecutionContext.Put(OutputDirKey, t.cfg.OutputDir)
	total := 0
	for name, n := range res.Records {
		se.ExecutionContext.Put(RecordsKeyPrefix+name, n)
		total += n
	}
	se.WriteCount = total
	return core.ExitStatusCompleted, nil
}

func (t *GenerateTasklet) Close(ctx context.Context) error {
	return nil
}
