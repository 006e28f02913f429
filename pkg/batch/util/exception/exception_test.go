package exception_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
)

func TestBatchError_Flags(t *testing.T) {
	cause := errors.New("boom")
	be := exception.NewBatchError("decoder", "デコード失敗", cause, true, false)

	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Equal(t, "[decoder] デコード失敗: boom", be.Error())
	assert.ErrorIs(t, be, cause)
	assert.NotEmpty(t, be.StackTrace)
}

func TestBatchErrorf(t *testing.T) {
	be := exception.NewBatchErrorf("config", nil, "キー %s が不正です", "ingest.sinks")
	assert.Equal(t, "[config] キー ingest.sinks が不正です", be.Error())
	assert.False(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
}

func TestClassification_ThroughWrapping(t *testing.T) {
	skip := exception.NewSkippableError("processor", "不正レコード", nil)
	wrapped := fmt.Errorf("line 3: %w", skip)

	assert.True(t, exception.IsSkippable(wrapped))
	assert.False(t, exception.IsFatal(wrapped))
	assert.False(t, exception.IsTemporary(wrapped))

	be, ok := exception.AsBatchError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "processor", be.Module)
}

func TestIsTemporary_PlainErrors(t *testing.T) {
	assert.False(t, exception.IsTemporary(nil))
	assert.True(t, exception.IsTemporary(errors.New("dial tcp: connection refused")))
	assert.False(t, exception.IsTemporary(errors.New("syntax error")))
}

func TestIsErrorOfType(t *testing.T) {
	pathErr := &fs.PathError{Op: "open", Path: "CUSMAS.txt", Err: fs.ErrNotExist}
	wrapped := fmt.Errorf("reader: %w", pathErr)

	assert.True(t, exception.IsErrorOfType(wrapped, "*fs.PathError"))
	assert.True(t, exception.IsErrorOfType(wrapped, "file does not exist"))
	assert.False(t, exception.IsErrorOfType(wrapped, "*net.OpError"))
	assert.False(t, exception.IsErrorOfType(nil, "x"))
}
