package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllowed(t *testing.T) {
	t.Parallel()

	allowed := [][2]JobStatus{
		{StatusPending, StatusScraping},
		{StatusScraping, StatusCompleted},
		{StatusScraping, StatusFailed},
		{StatusCompleted, StatusGenerating},
		{StatusGenerating, StatusCompleted},
		{StatusGenerating, StatusFailed},
	}
	for _, tr := range allowed {
		require.True(t, Allowed(tr[0], tr[1]), "%s -> %s should be allowed", tr[0], tr[1])
	}

	denied := [][2]JobStatus{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusGenerating},
		{StatusScraping, StatusGenerating},
		{StatusScraping, StatusPending},
		{StatusCompleted, StatusScraping},
		{StatusCompleted, StatusFailed},
		{StatusFailed, StatusScraping},
		{StatusFailed, StatusGenerating},
		{StatusFailed, StatusCompleted},
		{StatusGenerating, StatusScraping},
	}
	for _, tr := range denied {
		require.False(t, Allowed(tr[0], tr[1]), "%s -> %s should be denied", tr[0], tr[1])
	}
}

func TestCheckTransition(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckTransition(StatusPending, StatusScraping))

	err := CheckTransition(StatusFailed, StatusScraping)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	require.True(t, Terminal(StatusFailed))
	require.False(t, Terminal(StatusCompleted))
	require.False(t, Terminal(StatusScraping))
}
