package listener

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type namedItem struct{ name string }

func (n namedItem) String() string { return n.name }

func TestLoggingSkipListener_CountsAllKinds(t *testing.T) {
	l := NewLoggingSkipListener("ingest.ITEM")
	ctx := context.Background()
	err := errors.New("bad")

	l.OnSkipRead(ctx, err)
	l.OnSkipProcess(ctx, namedItem{"ITEM.TXT:3"}, err)
	l.OnSkipWrite(ctx, 42, err)
	assert.Equal(t, int64(3), l.Skipped())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "ITEM.TXT:3", describe(namedItem{"ITEM.TXT:3"}))
	assert.Equal(t, "int", describe(7))
	assert.Equal(t, "0s", describe(time.Duration(0)))
}
