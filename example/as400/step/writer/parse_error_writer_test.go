package writer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

type fakeSource struct {
	pending []*fixedwidth.DecodeError
}

func (s *fakeSource) add(errs ...*fixedwidth.DecodeError) {
	s.pending = append(s.pending, errs...)
}

func (s *fakeSource) Drain() []*fixedwidth.DecodeError {
	out := s.pending
	s.pending = nil
	return out
}

func decodeErr(line int, source string) *fixedwidth.DecodeError {
	return &fixedwidth.DecodeError{File: "ITEM.TXT", Line: line, SourceName: source, Raw: "XX", Cause: fixedwidth.ErrNotNumeric}
}

func TestToParseError(t *testing.T) {
	pe := ToParseError("exec-1", "ITEM", decodeErr(4, "ITAMT"))
	assert.Equal(t, "exec-1", pe.JobExecutionID)
	assert.Equal(t, "ITEM", pe.LayoutName)
	assert.Equal(t, "ITEM.TXT", pe.FileName)
	assert.Equal(t, 4, pe.LineNumber)
	assert.Equal(t, "ITAMT", pe.SourceName)
	assert.Equal(t, fixedwidth.ErrNotNumeric.Error(), pe.Cause)

	assert.Empty(t, ToParseError("exec-1", "ITEM", &fixedwidth.DecodeError{Line: 1}).Cause)
}

func TestParseErrorWriter_PersistsWithChunkAndAfterChunk(t *testing.T) {
	repo := newTestRepository(t)
	conn := repo.GetDBConnection()
	ctx := context.Background()
	src := &fakeSource{}
	w := NewParseErrorWriter(repo, src, "exec-1", "ITEM", 0)
	se := &core.StepExecution{}

	// 書き込みのあるチャンク: tx 内で挿入される
	src.add(decodeErr(1, "ITAMT"), decodeErr(2, "ITDATE"))
	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, tx, nil))
	require.NoError(t, tx.Commit())
	w.AfterChunk(ctx, se)
	assert.Equal(t, 2, w.Persisted())

	// 全件破棄のチャンク: Write は呼ばれず AfterChunk で保存する
	src.add(&fixedwidth.DecodeError{File: "ITEM.TXT", Line: 3, Raw: "0", Cause: fixedwidth.ErrRecordLength})
	w.AfterChunk(ctx, se)
	require.NoError(t, w.Close(ctx))
	assert.Equal(t, 3, w.Persisted())

	pes, err := repo.FindParseErrorsByJobExecutionID(ctx, "exec-1")
	require.NoError(t, err)
	require.Len(t, pes, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{pes[0].LineNumber, pes[1].LineNumber, pes[2].LineNumber})
	assert.Empty(t, pes[2].SourceName)
}

func TestParseErrorWriter_ResavesAfterSkippedWrite(t *testing.T) {
	repo := newTestRepository(t)
	conn := repo.GetDBConnection()
	ctx := context.Background()
	src := &fakeSource{}
	w := NewParseErrorWriter(repo, src, "exec-2", "ITEM", 0)
	se := &core.StepExecution{}

	src.add(decodeErr(5, "ITAMT"))
	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, tx, nil))
	require.NoError(t, tx.Rollback())

	se.SkipWriteCount = 1
	w.AfterChunk(ctx, se)
	require.NoError(t, w.Close(ctx))

	pes, err := repo.FindParseErrorsByJobExecutionID(ctx, "exec-2")
	require.NoError(t, err)
	require.Len(t, pes, 1)
	assert.Equal(t, 5, pes[0].LineNumber)
}

func TestParseErrorWriter_LimitDropsExcess(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	src := &fakeSource{}
	w := NewParseErrorWriter(repo, src, "exec-3", "ITEM", 2)

	src.add(decodeErr(1, "A"), decodeErr(2, "B"), decodeErr(3, "C"))
	w.AfterChunk(ctx, &core.StepExecution{})
	src.add(decodeErr(4, "D"))
	require.NoError(t, w.Close(ctx))

	assert.Equal(t, 2, w.Persisted())
	pes, err := repo.FindParseErrorsByJobExecutionID(ctx, "exec-3")
	require.NoError(t, err)
	assert.Len(t, pes, 2)
}

func TestParseErrorWriter_CauseKeepsWrappedMessage(t *testing.T) {
	e := decodeErr(1, "ITAMT")
	e.Cause = errors.Join(fixedwidth.ErrNotNumeric, errors.New("detail"))
	assert.Contains(t, ToParseError("x", "ITEM", e).Cause, "detail")
}
