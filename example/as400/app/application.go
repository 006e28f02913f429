package app

import (
	"context"
	"errors"

	godotenv "github.com/joho/godotenv"

	appJob "github.com/Vignesh4110/finance-modernization/example/as400/job"
	config "github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	initializer "github.com/Vignesh4110/finance-modernization/pkg/batch/initializer"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	factory "github.com/Vignesh4110/finance-modernization/pkg/batch/job/factory"
	incrementer "github.com/Vignesh4110/finance-modernization/pkg/batch/job/incrementer"
	joboperator "github.com/Vignesh4110/finance-modernization/pkg/batch/job/joboperator"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth/layouts"
)

// Application は初期化済みのバッチ基盤と組み込みレイアウトをまとめたものです。
type Application struct {
	initializer *initializer.BatchInitializer
	operator    joboperator.JobOperator
	registry    *fixedwidth.Registry
}

// Config は読み込み済みの設定です。
func (a *Application) Config() *config.Config {
	return a.initializer.Config
}

// Close はデータベース接続を解放します。
func (a *Application) Close() {
	if err := a.initializer.Close(); err != nil {
		logger.Errorf("バッチアプリケーションのリソースクローズ中にエラーが発生しました: %v", err)
	}
}

// registerApplicationJobs はアプリケーションのジョブと Incrementer を JobFactory に登録します。
func registerApplicationJobs(jobFactory *factory.JobFactory, registry *fixedwidth.Registry) {
	jobFactory.RegisterJobBuilder(appJob.IngestJobName, func(
		jobRepository repository.JobRepository,
		cfg *config.Config,
		listeners []core.JobExecutionListener,
	) (core.Job, error) {
		return appJob.NewIngestJob(jobRepository, cfg, registry, listeners), nil
	})
	jobFactory.RegisterJobBuilder(appJob.GenerateJobName, func(
		jobRepository repository.JobRepository,
		cfg *config.Config,
		listeners []core.JobExecutionListener,
	) (core.Job, error) {
		return appJob.NewGenerateJob(jobRepository, cfg, registry, listeners), nil
	})

	// 取込は毎回新しい JobInstance として実行する。失敗した実行は restart で再開する
	jobFactory.RegisterJobParametersIncrementer(appJob.IngestJobName, incrementer.NewRunIDIncrementer("run.id"))
	jobFactory.RegisterJobParametersIncrementer(appJob.GenerateJobName, incrementer.NewTimestampIncrementer("timestamp"))

	logger.Debugf("全てのアプリケーションジョブビルダーを登録しました。")
}

// loadEnvFile は .env ファイルを読み込みます。存在しない場合は環境変数だけを使います。
func loadEnvFile(envFilePath string) {
	if envFilePath == "" {
		logger.Debugf(".env ファイルのパスが指定されていないため、ロードをスキップします。")
		return
	}
	if err := godotenv.Load(envFilePath); err != nil {
		logger.Debugf(".env ファイル '%s' をロードしませんでした (環境変数を使用します): %v", envFilePath, err)
		return
	}
	logger.Infof(".env ファイル '%s' をロードしました。", envFilePath)
}

// Setup は .env と埋め込み設定を読み込み、バッチ基盤を初期化します。
func Setup(ctx context.Context, envFilePath string, embeddedConfig []byte) (*Application, error) {
	loadEnvFile(envFilePath)

	registry, err := layouts.NewRegistry()
	if err != nil {
		return nil, exception.NewBatchError("app", "組み込みレイアウトの登録に失敗しました", err, false, false)
	}

	batchInitializer := initializer.NewBatchInitializer(&config.Config{EmbeddedConfig: embeddedConfig})
	jobOperator, jobFactory, initErr := batchInitializer.Initialize(ctx)
	if initErr != nil {
		return nil, exception.NewBatchError("app", "バッチアプリケーションの初期化に失敗しました", initErr, false, false)
	}
	registerApplicationJobs(jobFactory, registry)
	logger.Infof("バッチアプリケーションの初期化が完了しました。")

	return &Application{
		initializer: batchInitializer,
		operator:    jobOperator,
		registry:    registry,
	}, nil
}

// launch はジョブを起動し、終了コードを返します。
func (a *Application) launch(ctx context.Context, jobName string, params core.JobParameters) (*core.JobExecution, int) {
	logger.Infof("実行する Job: '%s'", jobName)
	jobExecution, err := a.initializer.JobLauncher.Launch(ctx, jobName, params)
	return jobExecution, handleApplicationError(err, jobExecution, jobName)
}

// handleApplicationError はアプリケーションのエラーを処理し、適切な終了コードを返します。
func handleApplicationError(err error, jobExecution *core.JobExecution, jobName string) int {
	hasError := false

	if err != nil {
		hasError = true
		if jobExecution != nil {
			logger.Errorf("Job '%s' (Execution ID: %s) の実行中にエラーが発生しました: %v", jobName, jobExecution.ID, err)
			logger.Errorf("Job '%s' (Execution ID: %s) の最終状態: %s, ExitStatus: %s",
				jobName, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
		} else {
			logger.Errorf("Job '%s' の起動処理中にエラーが発生しました: %v", jobName, err)
		}

		var be *exception.BatchError
		if errors.As(err, &be) {
			logger.Errorf("BatchError 詳細: Module=%s, Message=%s, OriginalErr=%v", be.Module, be.Message, be.OriginalErr)
			if be.StackTrace != "" {
				logger.Debugf("BatchError StackTrace:\n%s", be.StackTrace)
			}
		}
	}

	if jobExecution != nil && jobExecution.Status != core.BatchStatusCompleted {
		hasError = true
		logger.Errorf("Job '%s' はステータス %s で終了しました。詳細は JobExecution (ID: %s) およびログを確認してください。",
			jobExecution.JobName, jobExecution.Status, jobExecution.ID)
	}

	if hasError {
		return 1
	}
	return 0
}
