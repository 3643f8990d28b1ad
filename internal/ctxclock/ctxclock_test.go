package ctxclock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow(t *testing.T) {
	a := assert.New(t)

	fixed := time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)

	ctx := WithClock(context.Background(), NewStaticClock(fixed))

	now, err := Now(ctx)
	a.NoError(err)
	a.Equal(fixed, now)
}

func TestNowWithoutClock(t *testing.T) {
	a := assert.New(t)

	_, err := Now(context.Background())
	a.Error(err)
}

func TestWithClockNilFallsBackToRealClock(t *testing.T) {
	a := assert.New(t)

	ctx := WithClock(context.Background(), nil)

	before := time.Now()
	now, err := Now(ctx)
	a.NoError(err)
	a.False(now.Before(before))
}
