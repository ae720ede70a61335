package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition_CourierPath(t *testing.T) {
	path := []Status{StatusPending, StatusDijemput, StatusDitimbang, StatusSelesai}
	for i := 0; i < len(path)-1; i++ {
		assert.NoError(t, CanTransition(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
	}
	assert.NoError(t, CanTransition(StatusPending, StatusDibatalkan))
}

func TestCanTransition_RejectsEverythingElse(t *testing.T) {
	all := []Status{StatusPending, StatusDijemput, StatusDitimbang, StatusSelesai, StatusDibatalkan}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusDijemput}:   true,
		{StatusDijemput, StatusDitimbang}: true,
		{StatusDitimbang, StatusSelesai}:  true,
		{StatusPending, StatusDibatalkan}: true,
	}
	for _, from := range all {
		for _, to := range all {
			if allowed[[2]Status{from, to}] {
				continue
			}
			err := CanTransition(from, to)
			require.Error(t, err, "%s -> %s", from, to)
			assert.True(t, errors.Is(err, ErrInvalidTransition))
		}
	}
}

func TestCanTransition_UnknownTarget(t *testing.T) {
	err := CanTransition(StatusPending, Status("Hilang"))
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestCanTransition_MessageNamesExpectedSuccessor(t *testing.T) {
	err := CanTransition(StatusPending, StatusSelesai)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Pending -> Selesai")
	assert.Contains(t, err.Error(), "expected Dijemput")
}

func TestNextAndTerminal(t *testing.T) {
	n, ok := Next(StatusDijemput)
	assert.True(t, ok)
	assert.Equal(t, StatusDitimbang, n)

	_, ok = Next(StatusSelesai)
	assert.False(t, ok)

	assert.True(t, StatusSelesai.Terminal())
	assert.True(t, StatusDibatalkan.Terminal())
	assert.False(t, StatusPending.Terminal())
}

func TestCreatesTrack(t *testing.T) {
	assert.True(t, CreatesTrack(StatusPending, StatusDijemput))
	assert.False(t, CreatesTrack(StatusDijemput, StatusDitimbang))
}
