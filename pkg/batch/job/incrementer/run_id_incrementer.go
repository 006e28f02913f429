package incrementer

import (
	"fmt"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// RunIDIncrementer はジョブパラメータの name キーを 1 から順に採番します。
// 完了済みの JobInstance と同じパラメータで起動された場合に、新しい JobInstance を作るために使います。
type RunIDIncrementer struct {
	name string
}

// NewRunIDIncrementer は RunIDIncrementer を作成します。name が空の場合は "run.id" です。
func NewRunIDIncrementer(name string) *RunIDIncrementer {
	if name == "" {
		name = "run.id"
	}
	return &RunIDIncrementer{name: name}
}

// GetNext は params のコピーに name キーを設定して返します。
func (i *RunIDIncrementer) GetNext(params core.JobParameters) core.JobParameters {
	next := core.NewJobParameters()
	for k, v := range params.Params {
		next.Put(k, v)
	}
	current, ok := params.GetInt(i.name)
	if !ok {
		current = 0
	}
	next.Put(i.name, current+1)
	logger.Debugf("JobParametersIncrementer: '%s' を %d に設定しました。", i.name, current+1)
	return next
}

func (i *RunIDIncrementer) String() string {
	return fmt.Sprintf("RunIDIncrementer[name=%s]", i.name)
}

var _ core.JobParametersIncrementer = (*RunIDIncrementer)(nil)
