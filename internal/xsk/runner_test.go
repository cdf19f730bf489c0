package xsk

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_StopWakesPipeReader(t *testing.T) {
	r, err := NewRunner()
	require.NoError(t, err)
	require.True(t, r.IsRunning())

	fds := []unix.PollFd{{Fd: int32(r.PipeReaderFD()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	require.NoError(t, err)
	require.Equal(t, 0, n, "pipe must not be readable before Stop")

	r.Stop()
	assert.False(t, r.IsRunning())

	n, err = unix.Poll(fds, int(time.Second.Milliseconds()))
	require.NoError(t, err)
	assert.Equal(t, 1, n, "pipe reader must become readable after Stop")
	assert.NotZero(t, fds[0].Revents&unix.POLLIN)
}

func TestRunner_StopIsIdempotent(t *testing.T) {
	r, err := NewRunner()
	require.NoError(t, err)

	r.Stop()
	r.Stop()
	r.Stop()

	assert.False(t, r.IsRunning())
}

func TestThreadsRunner_WaitForThreadsBlocksUntilSpawnedFuncsReturn(t *testing.T) {
	tr, err := NewThreadsRunner()
	require.NoError(t, err)

	const n = 4
	done := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		tr.Spawn(func(r *Runner) {
			fds := []unix.PollFd{{Fd: int32(r.PipeReaderFD()), Events: unix.POLLIN}}
			for r.IsRunning() {
				unix.Poll(fds, 100)
			}
			done <- struct{}{}
		})
	}

	tr.Runner.Stop()
	tr.WaitForThreads()

	assert.Len(t, done, n)
}
