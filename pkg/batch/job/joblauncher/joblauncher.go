package joblauncher

import (
	"context"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
)

// JobLauncher は Job を JobParameters とともに起動するためのインターフェースです。
type JobLauncher interface {
	// Launch はジョブを同期的に実行し、最終状態の JobExecution を返します。
	// 返されるエラーはジョブ自体の実行エラーも含みます。
	Launch(ctx context.Context, jobName string, params core.JobParameters) (*core.JobExecution, error)
}
