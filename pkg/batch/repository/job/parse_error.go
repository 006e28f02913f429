package job

import (
	"context"
	"time"
)

// ParseError は取り込み時に拒否された行またはフィールドの記録です。
type ParseError struct {
	ID             string
	JobExecutionID string
	LayoutName     string
	FileName       string
	LineNumber     int
	SourceName     string
	RawValue       string
	Cause          string
	CreatedAt      time.Time
}

// ParseErrorRecorder は ParseError の永続化と取得を定義します。
type ParseErrorRecorder interface {
	SaveParseErrors(ctx context.Context, errs []ParseError) error
	FindParseErrorsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]ParseError, error)
}
