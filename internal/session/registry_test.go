package session_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prepwise/interviewd/internal/session"
)

func newRegistry(f *sessionFixture) *session.Registry {
	return session.NewRegistry(f.svc, f.cache, f.pub, slog.Default(), quietOpts())
}

func TestRegistrySharesOpenController(t *testing.T) {
	f := newSessionFixture(t, 120, 1)
	r := newRegistry(f)
	t.Cleanup(r.CloseAll)
	ctx := context.Background()

	c1, res1, err := r.Start(ctx, f.iv)
	require.NoError(t, err)
	require.False(t, res1.Resumed)

	_, err = c1.Jump(2)
	require.NoError(t, err)

	c2, res2, err := r.Start(ctx, f.iv)
	require.NoError(t, err)
	require.Same(t, c1, c2, "a second start must attach to the open controller")
	require.True(t, res2.Resumed)
	require.Equal(t, 2, res2.CurrentQuestionIndex)
}

func TestRegistryRemovesTerminalSessions(t *testing.T) {
	f := newSessionFixture(t, 120, 1)
	r := newRegistry(f)
	t.Cleanup(r.CloseAll)
	ctx := context.Background()

	c, _, err := r.Start(ctx, f.iv)
	require.NoError(t, err)
	_, ok := r.Get(f.iv.ID)
	require.True(t, ok)

	_, err = c.SaveAndExit(ctx)
	require.NoError(t, err)

	// Removal runs on the controller's terminal hook, off the caller's
	// goroutine.
	require.Eventually(t, func() bool {
		_, ok := r.Get(f.iv.ID)
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRegistryDoesNotRegisterExpiredStart(t *testing.T) {
	f := newSessionFixture(t, 120, 1)
	r := newRegistry(f)
	t.Cleanup(r.CloseAll)

	f.iv.DurationLeft = 0
	_, res, err := r.Start(context.Background(), f.iv)
	require.NoError(t, err)
	require.True(t, res.Expired)

	_, ok := r.Get(f.iv.ID)
	require.False(t, ok)
}

func TestRegistryStartAfterExitOpensFresh(t *testing.T) {
	f := newSessionFixture(t, 120, 1)
	r := newRegistry(f)
	t.Cleanup(r.CloseAll)
	ctx := context.Background()

	c, _, err := r.Start(ctx, f.iv)
	require.NoError(t, err)
	_, err = c.SaveAndExit(ctx)
	require.NoError(t, err)

	// The exit marked the interview completed, so a new start is refused.
	f.iv = f.reload(t)
	_, _, err = r.Start(ctx, f.iv)
	require.ErrorIs(t, err, session.ErrAlreadyCompleted)
}
