package exception

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// BatchError はバッチ処理中に発生するエラーを表します。
// 発生元モジュール、メッセージ、ラップされた元のエラー、
// リトライ可否とスキップ可否のフラグを保持します。
type BatchError struct {
	Module      string // 発生元モジュール (例: "reader", "decoder", "writer", "config")
	Message     string
	OriginalErr error
	isRetryable bool
	isSkippable bool
	StackTrace  string
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// NewBatchError は新しい BatchError を作成します。
func NewBatchError(module, message string, originalErr error, isRetryable, isSkippable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf はフォーマット済みメッセージで BatchError を作成します。
// リトライ不可・スキップ不可として扱われます。
func NewBatchErrorf(module string, originalErr error, format string, a ...interface{}) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, a...),
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

// NewSkippableError はスキップ可能な BatchError を作成します。
// レコード単位で読み飛ばしてよい不正データに使用します。
func NewSkippableError(module, message string, originalErr error) *BatchError {
	return NewBatchError(module, message, originalErr, false, true)
}

// Error は error インターフェースの実装です。
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap は元のエラーを返します。
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable はリトライ可能かどうかを返します。
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable はスキップ可能かどうかを返します。
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// AsBatchError はエラーチェーンから BatchError を取り出します。
func AsBatchError(err error) (*BatchError, bool) {
	var be *BatchError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// IsTemporary は一時的なエラーかどうかを判定します。
// BatchError を含む場合はそのリトライフラグを優先します。
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	if be, ok := AsBatchError(err); ok {
		return be.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset")
}

// IsSkippable はエラーチェーンにスキップ可能な BatchError が含まれるかを判定します。
func IsSkippable(err error) bool {
	if be, ok := AsBatchError(err); ok {
		return be.IsSkippable()
	}
	return false
}

// IsFatal は致命的なエラーかどうかを判定します。
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if be, ok := AsBatchError(err); ok {
		return !be.IsSkippable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "invalid argument") ||
		strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "data corruption")
}

// IsErrorOfType はエラーが指定された型名、またはメッセージ断片に一致するかを判定します。
// errorTypeName には "*fs.PathError" のような型名か、"connection refused" のような文字列を指定します。
// ラップされたエラーも再帰的に確認します。
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}
	errType := reflect.TypeOf(err)
	if errType != nil && (errType.String() == errorTypeName || (errType.Kind() == reflect.Ptr && errType.Elem().String() == errorTypeName)) {
		return true
	}
	if strings.Contains(err.Error(), errorTypeName) {
		return true
	}
	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		return IsErrorOfType(unwrapped, errorTypeName)
	}
	return false
}
