package job

import (
	"context"

	tasklet "github.com/Vignesh4110/finance-modernization/example/as400/step/tasklet"
	config "github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/step"
	steplistener "github.com/Vignesh4110/finance-modernization/pkg/batch/step/listener"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

const GenerateJobName = "generateJob"

const generateStepName = "generateStep"

// ジョブパラメータ。設定ファイルの ingest.generate より優先されます。
const (
	OutputDirParam = "output.dir"
	SeedParam      = "seed"
)

// GenerateJob は合成レガシーファイルを生成する単一 Tasklet のジョブです。
// 出力先と件数は JobExecution の ExecutionContext に引き上げられます。
type GenerateJob struct {
	name         string
	repo         repository.JobRepository
	cfg          *config.Config
	registry     *fixedwidth.Registry
	jobListeners []core.JobExecutionListener
}

var _ core.Job = (*GenerateJob)(nil)

func NewGenerateJob(
	repo repository.JobRepository,
	cfg *config.Config,
	registry *fixedwidth.Registry,
	listeners []core.JobExecutionListener,
) *GenerateJob {
	return &GenerateJob{
		name:         GenerateJobName,
		repo:         repo,
		cfg:          cfg,
		registry:     registry,
		jobListeners: listeners,
	}
}

func (j *GenerateJob) JobName() string {
	return j.name
}

func (j *GenerateJob) ValidateParameters(params core.JobParameters) error {
	if v, ok := params.Params[OutputDirParam]; ok {
		if s, isString := v.(string); !isString || s == "" {
			return exception.NewBatchErrorf(j.name, nil, "パラメータ '%s' は空でない文字列で指定してください: %v", OutputDirParam, v)
		}
	}
	if v, ok := params.Params[SeedParam]; ok {
		if _, isInt := params.GetInt(SeedParam); !isInt {
			return exception.NewBatchErrorf(j.name, nil, "パラメータ '%s' は整数で指定してください: %v", SeedParam, v)
		}
	}
	if r := j.cfg.Ingest.Generate.MalformedRate; r < 0 || r > 1 {
		return exception.NewBatchErrorf(j.name, nil, "ingest.generate.malformed_rate は 0 から 1 の範囲で指定してください: %v", r)
	}
	return nil
}

func (j *GenerateJob) Run(ctx context.Context, je *core.JobExecution, params core.JobParameters) error {
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, je)
	}
	defer func() {
		for _, l := range j.jobListeners {
			l.AfterJob(context.WithoutCancel(ctx), je)
		}
	}()

	gcfg := j.cfg.Ingest.Generate
	if v, ok := params.GetString(OutputDirParam); ok {
		gcfg.OutputDir = v
	}
	if v, ok := params.GetInt(SeedParam); ok {
		gcfg.Seed = int64(v)
	}

	keys := []string{tasklet.OutputDirKey}
	for name := range j.registry.Names() {
		keys = append(keys, tasklet.RecordsKeyPrefix+name)
	}
	st := step.NewTaskletStep(
		generateStepName,
		tasklet.NewGenerateTasklet(j.registry, gcfg),
		j.repo,
		[]core.StepExecutionListener{steplistener.NewLoggingStepExecutionListener()},
		&step.ExecutionContextPromotion{Keys: keys},
	)

	se := core.NewStepExecution(generateStepName, je)
	if err := st.Execute(ctx, je, se); err != nil {
		if ctx.Err() != nil {
			je.AddFailureException(err)
			je.MarkAsStopped()
			return err
		}
		je.MarkAsFailed(err)
		return err
	}
	je.MarkAsCompleted()
	return nil
}
