package serialization

import (
	"encoding/json"
	"errors"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
)

const module = "serialization"

func isEmpty(data []byte) bool {
	return len(data) == 0 || string(data) == "null"
}

// MarshalExecutionContext は ExecutionContext を JSON にシリアライズします。nil は "{}" になります。
func MarshalExecutionContext(ec core.ExecutionContext) ([]byte, error) {
	if ec == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(ec)
	if err != nil {
		return nil, exception.NewBatchError(module, "ExecutionContext のシリアライズに失敗しました", err, false, false)
	}
	return data, nil
}

// UnmarshalExecutionContext は JSON を ExecutionContext にデシリアライズします。
// 既存の内容は破棄されます。
func UnmarshalExecutionContext(data []byte, ec *core.ExecutionContext) error {
	*ec = core.NewExecutionContext()
	if isEmpty(data) {
		return nil
	}
	if err := json.Unmarshal(data, ec); err != nil {
		return exception.NewBatchError(module, "ExecutionContext のデシリアライズに失敗しました", err, false, false)
	}
	return nil
}

// MarshalJobParameters は JobParameters を JSON にシリアライズします。
func MarshalJobParameters(params core.JobParameters) ([]byte, error) {
	if params.Params == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(params.Params)
	if err != nil {
		return nil, exception.NewBatchError(module, "JobParameters のシリアライズに失敗しました", err, false, false)
	}
	return data, nil
}

// UnmarshalJobParameters は JSON を JobParameters にデシリアライズします。
func UnmarshalJobParameters(data []byte, params *core.JobParameters) error {
	*params = core.NewJobParameters()
	if isEmpty(data) {
		return nil
	}
	if err := json.Unmarshal(data, &params.Params); err != nil {
		return exception.NewBatchError(module, "JobParameters のデシリアライズに失敗しました", err, false, false)
	}
	return nil
}

// MarshalFailures は []error をメッセージ文字列の配列としてシリアライズします。
func MarshalFailures(failures []error) ([]byte, error) {
	msgs := make([]string, 0, len(failures))
	for _, err := range failures {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return nil, exception.NewBatchError(module, "Failures のシリアライズに失敗しました", err, false, false)
	}
	return data, nil
}

// UnmarshalFailures はメッセージ文字列の配列を []error に戻します。元のエラー型は復元されません。
func UnmarshalFailures(data []byte) ([]error, error) {
	if isEmpty(data) {
		return []error{}, nil
	}
	var msgs []string
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, exception.NewBatchError(module, "Failures のデシリアライズに失敗しました", err, false, false)
	}
	failures := make([]error, len(msgs))
	for i, msg := range msgs {
		failures[i] = errors.New(msg)
	}
	return failures, nil
}
