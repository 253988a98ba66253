package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingExpirer struct {
	calls []time.Time
	err   error
}

func (r *recordingExpirer) ExpireStories(_ context.Context, now time.Time) (int64, error) {
	r.calls = append(r.calls, now)
	return 2, r.err
}

func TestStorySweeperSweepsWithClock(t *testing.T) {
	exp := &recordingExpirer{}
	sw, err := NewStorySweeper(exp, "@every 1m", quietLogger())
	require.NoError(t, err)
	sw.now = func() time.Time { return fixedNow }

	sw.Sweep()
	exp.err = errors.New("db down")
	sw.Sweep()

	require.Equal(t, []time.Time{fixedNow, fixedNow}, exp.calls)
}

func TestStorySweeperRejectsBadSchedule(t *testing.T) {
	_, err := NewStorySweeper(&recordingExpirer{}, "every now and then", quietLogger())
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestStorySweeperStartStop(t *testing.T) {
	sw, err := NewStorySweeper(&recordingExpirer{}, "@every 1h", quietLogger())
	require.NoError(t, err)

	sw.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sw.Stop(ctx)
	require.NoError(t, ctx.Err())
}
