package bcycle

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultHolderEmpty(t *testing.T) {
	var h resultHolder
	assert.Equal(t, resultEmpty, h.load().kind)
	assert.Nil(t, h.stream())
	assert.Nil(t, h.claimPending())
	assert.False(t, h.cancelOutstanding())
}

func TestResultHolderSecondFuture(t *testing.T) {
	var h resultHolder
	first := &pendingResult{future: NewFuture()}
	require.NoError(t, h.setPending(first))

	second := &pendingResult{future: NewFuture()}
	require.ErrorIs(t, h.setPending(second), ErrFutureInFlight)

	assert.Same(t, first, h.load().pending)
	assert.False(t, first.future.IsDone())
	assert.False(t, second.future.IsDone())
}

func TestResultHolderFutureAfterCompletion(t *testing.T) {
	var h resultHolder
	first := &pendingResult{future: Resolved("a")}
	require.NoError(t, h.setPending(first))

	second := &pendingResult{future: NewFuture()}
	require.NoError(t, h.setPending(second))
	assert.Same(t, second, h.load().pending)
}

func TestResultHolderStreamCancelsFuture(t *testing.T) {
	var h resultHolder
	pr := &pendingResult{future: NewFuture()}
	require.NoError(t, h.setPending(pr))

	h.setPrevious(strings.NewReader("body"))

	_, err := pr.future.Result()
	require.ErrorIs(t, err, ErrFutureCancelled)

	b, err := io.ReadAll(h.stream())
	require.NoError(t, err)
	assert.Equal(t, "body", string(b))

	h.setPrevious(nil)
	assert.Nil(t, h.stream())
}

func TestResultHolderClaimOnce(t *testing.T) {
	var h resultHolder
	pr := &pendingResult{future: NewFuture()}
	require.NoError(t, h.setPending(pr))

	assert.Same(t, pr, h.claimPending())
	assert.Nil(t, h.claimPending())

	assert.True(t, h.cancelOutstanding())
	assert.False(t, h.cancelOutstanding())
}

func TestFutureCompletesOnce(t *testing.T) {
	f := NewFuture()

	var calls int
	f.onComplete(func() { calls++ })

	assert.True(t, f.Resolve(1))
	assert.False(t, f.Reject(io.EOF))
	assert.False(t, f.Cancel())

	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, calls)

	f.onComplete(func() { calls++ })
	assert.Equal(t, 2, calls)
}

func TestFutureReject(t *testing.T) {
	f := NewFuture()
	f.Reject(io.ErrUnexpectedEOF)

	_, err := f.Result()
	var cerr *CompletionError
	require.ErrorAs(t, err, &cerr)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
