package initializer

import (
	"context"
	"errors"
	"fmt"
	"time"

	config "github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	factory "github.com/Vignesh4110/finance-modernization/pkg/batch/job/factory"
	joblauncher "github.com/Vignesh4110/finance-modernization/pkg/batch/job/joblauncher"
	joboperator "github.com/Vignesh4110/finance-modernization/pkg/batch/job/joboperator"
	joblistener "github.com/Vignesh4110/finance-modernization/pkg/batch/job/listener"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	repository "github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// BatchInitializer はバッチアプリケーションの初期化処理を担当します。
type BatchInitializer struct {
	Config        *config.Config
	JobRepository repository.JobRepository
	JobFactory    *factory.JobFactory
	JobLauncher   *joblauncher.SimpleJobLauncher
	JobOperator   joboperator.JobOperator

	// 接続リトライ設定。0 の場合はデフォルト値を使用します。
	MaxConnectAttempts int
	ConnectRetryDelay  time.Duration
}

// NewBatchInitializer は新しい BatchInitializer のインスタンスを作成します。
// cfg.EmbeddedConfig には main.go で埋め込んだ設定ファイルの内容を渡します。
func NewBatchInitializer(cfg *config.Config) *BatchInitializer {
	return &BatchInitializer{
		Config:             cfg,
		MaxConnectAttempts: 5,
		ConnectRetryDelay:  2 * time.Second,
	}
}

// Initialize は設定のロード、ジョブリポジトリの生成、JobFactory と JobOperator の構築を行います。
func (bi *BatchInitializer) Initialize(ctx context.Context) (joboperator.JobOperator, *factory.JobFactory, error) {
	logger.Debugf("BatchInitializer.Initialize が呼び出されました。")

	// Step 1: 設定のロード
	if len(bi.Config.EmbeddedConfig) > 0 {
		cfg, err := config.NewBytesConfigLoader(bi.Config.EmbeddedConfig).Load()
		if err != nil {
			return nil, nil, exception.NewBatchError("initializer", "設定のロードに失敗しました", err, false, false)
		}
		bi.Config = cfg
	}

	logger.SetLogLevel(bi.Config.System.Logging.Level)
	logger.Infof("ロギングレベルを '%s' に設定しました。", bi.Config.System.Logging.Level)

	// Step 2: ジョブリポジトリの生成 (マイグレーション込み)
	jobRepository, err := bi.connectWithRetry(ctx)
	if err != nil {
		return nil, nil, exception.NewBatchError("initializer", "Job Repository の生成に失敗しました", err, false, false)
	}
	bi.JobRepository = jobRepository
	logger.Infof("Job Repository を生成しました。(type: %s)", bi.Config.Database.Type)

	// Step 3: JobFactory の生成
	bi.JobFactory = factory.NewJobFactory(bi.Config, bi.JobRepository)
	bi.JobFactory.RegisterJobListenerBuilder(func(*config.Config) (core.JobExecutionListener, error) {
		return joblistener.NewLoggingJobListener(), nil
	})
	logger.Debugf("JobFactory を Job Repository と共に作成しました。")

	// Step 4: JobLauncher と JobOperator の生成
	bi.JobLauncher = joblauncher.NewSimpleJobLauncher(bi.JobRepository, bi.JobFactory)
	bi.JobOperator = joboperator.NewDefaultJobOperator(bi.JobRepository, bi.JobLauncher)
	logger.Infof("DefaultJobOperator を生成しました。")

	return bi.JobOperator, bi.JobFactory, nil
}

// connectWithRetry はデータベースの起動待ちを考慮して、ジョブリポジトリの生成をリトライします。
func (bi *BatchInitializer) connectWithRetry(ctx context.Context) (repository.JobRepository, error) {
	attempts := bi.MaxConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		logger.Debugf("データベース接続を試行中 (試行 %d/%d)...", i+1, attempts)
		repo, err := repository.NewJobRepositoryWithMigrations(ctx, *bi.Config)
		if err == nil {
			return repo, nil
		}
		lastErr = err
		logger.Warnf("データベースへの接続に失敗しました: %v", err)
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(bi.ConnectRetryDelay):
		}
	}
	return nil, fmt.Errorf("データベースへの接続に最大試行回数 (%d) 失敗しました: %w", attempts, lastErr)
}

// Close は BatchInitializer が保持するリソースを解放します。
func (bi *BatchInitializer) Close() error {
	var errs []error
	if bi.JobRepository != nil {
		if closeErr := bi.JobRepository.Close(); closeErr != nil {
			logger.Errorf("Job Repository のクローズに失敗しました: %v", closeErr)
			errs = append(errs, fmt.Errorf("Job Repository クローズエラー: %w", closeErr))
		} else {
			logger.Infof("Job Repository を正常にクローズしました。")
		}
	}
	return errors.Join(errs...)
}
