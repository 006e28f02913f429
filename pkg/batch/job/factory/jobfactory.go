package factory

import (
	"fmt"
	"sort"
	"sync"

	config "github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// JobBuilder は特定の Job を生成するための関数型です。
type JobBuilder func(
	jobRepository repository.JobRepository,
	cfg *config.Config,
	listeners []core.JobExecutionListener,
) (core.Job, error)

// JobListenerBuilder は JobExecutionListener を生成するための関数型です。
type JobListenerBuilder func(cfg *config.Config) (core.JobExecutionListener, error)

// JobFactory はジョブ名から Job オブジェクトを生成するためのファクトリです。
type JobFactory struct {
	config        *config.Config
	jobRepository repository.JobRepository

	mu                  sync.RWMutex
	jobBuilders         map[string]JobBuilder
	jobListenerBuilders []JobListenerBuilder
	incrementers        map[string]core.JobParametersIncrementer
}

// NewJobFactory は新しい JobFactory のインスタンスを作成します。
func NewJobFactory(cfg *config.Config, repo repository.JobRepository) *JobFactory {
	return &JobFactory{
		config:        cfg,
		jobRepository: repo,
		jobBuilders:   make(map[string]JobBuilder),
		incrementers:  make(map[string]core.JobParametersIncrementer),
	}
}

// RegisterJobBuilder は、指定された名前でジョブビルド関数を登録します。
func (f *JobFactory) RegisterJobBuilder(name string, builder JobBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobBuilders[name] = builder
	logger.Debugf("JobFactory: ジョブビルダー '%s' を登録しました。", name)
}

// RegisterJobListenerBuilder は全てのジョブに付与する JobExecutionListener のビルド関数を登録します。
func (f *JobFactory) RegisterJobListenerBuilder(builder JobListenerBuilder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobListenerBuilders = append(f.jobListenerBuilders, builder)
}

// RegisterJobParametersIncrementer はジョブの JobParametersIncrementer を登録します。
func (f *JobFactory) RegisterJobParametersIncrementer(jobName string, inc core.JobParametersIncrementer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incrementers[jobName] = inc
	logger.Debugf("JobFactory: Job '%s' に JobParametersIncrementer %v を登録しました。", jobName, inc)
}

// CreateJob は指定されたジョブ名の core.Job を作成します。
func (f *JobFactory) CreateJob(jobName string) (core.Job, error) {
	f.mu.RLock()
	builder, found := f.jobBuilders[jobName]
	listenerBuilders := append([]JobListenerBuilder(nil), f.jobListenerBuilders...)
	f.mu.RUnlock()
	if !found {
		return nil, exception.NewBatchErrorf("job_factory", nil, "指定された Job '%s' のビルダーが登録されていません", jobName)
	}

	listeners := make([]core.JobExecutionListener, 0, len(listenerBuilders))
	for _, lb := range listenerBuilders {
		l, err := lb(f.config)
		if err != nil {
			return nil, exception.NewBatchError("job_factory", "JobExecutionListener のビルドに失敗しました", err, false, false)
		}
		listeners = append(listeners, l)
	}

	job, err := builder(f.jobRepository, f.config, listeners)
	if err != nil {
		return nil, exception.NewBatchError("job_factory", fmt.Sprintf("ジョブ '%s' のインスタンス化に失敗しました", jobName), err, false, false)
	}
	logger.Debugf("JobFactory: Job '%s' を生成しました。", jobName)
	return job, nil
}

// GetJobParametersIncrementer はジョブの JobParametersIncrementer を返します。未登録なら nil です。
func (f *JobFactory) GetJobParametersIncrementer(jobName string) core.JobParametersIncrementer {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.incrementers[jobName]
}

// JobNames は登録済みのジョブ名を名前順で返します。
func (f *JobFactory) JobNames() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.jobBuilders))
	for name := range f.jobBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
