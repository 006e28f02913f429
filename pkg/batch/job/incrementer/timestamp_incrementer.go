package incrementer

import (
	"fmt"
	"time"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
)

// TimestampIncrementer はジョブパラメータの name キーに現在時刻 (RFC3339, UTC) を設定します。
// 毎回新しい JobInstance として実行したいジョブに使います。
type TimestampIncrementer struct {
	name string
	now  func() time.Time
}

func NewTimestampIncrementer(name string) *TimestampIncrementer {
	if name == "" {
		name = "run.timestamp"
	}
	return &TimestampIncrementer{name: name, now: time.Now}
}

// GetNext は params のコピーに現在時刻を設定して返します。
func (i *TimestampIncrementer) GetNext(params core.JobParameters) core.JobParameters {
	next := core.NewJobParameters()
	for k, v := range params.Params {
		next.Put(k, v)
	}
	next.Put(i.name, i.now().UTC().Format(time.RFC3339Nano))
	return next
}

func (i *TimestampIncrementer) String() string {
	return fmt.Sprintf("TimestampIncrementer[name=%s]", i.name)
}

var _ core.JobParametersIncrementer = (*TimestampIncrementer)(nil)
