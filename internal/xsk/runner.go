package xsk

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Runner tracks the running state shared by every RX loop goroutine and
// holds the write end of the shutdown pipe each loop's poll() also watches.
// Stop is safe to call more than once and from any goroutine.
type Runner struct {
	running    atomic.Bool
	pipeReader int
	pipeWriter int
}

// NewRunner opens the shutdown pipe and returns a Runner in the running state.
func NewRunner() (*Runner, error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return nil, err
	}

	r := &Runner{pipeReader: fds[0], pipeWriter: fds[1]}
	r.running.Store(true)
	return r, nil
}

// IsRunning reports whether Stop has been called yet.
func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// PipeReaderFD returns the read end of the shutdown pipe, polled by every
// RX loop alongside its socket fd.
func (r *Runner) PipeReaderFD() int {
	return r.pipeReader
}

// Stop marks the runner stopped and wakes every thread blocked in poll() by
// writing to the shutdown pipe.
func (r *Runner) Stop() {
	if !r.running.CompareAndSwap(true, false) {
		return
	}
	unix.Write(r.pipeWriter, []byte("kthxbye"))
}

// ThreadsRunner owns the Runner plus the set of goroutines driving each
// socket's RX loop, and joins them all on WaitForThreads.
type ThreadsRunner struct {
	Runner *Runner
	wg     sync.WaitGroup
}

// NewThreadsRunner opens a new Runner and returns an empty ThreadsRunner
// bound to it.
func NewThreadsRunner() (*ThreadsRunner, error) {
	r, err := NewRunner()
	if err != nil {
		return nil, err
	}
	return &ThreadsRunner{Runner: r}, nil
}

// Spawn launches fn on its own goroutine, tracked by WaitForThreads.
func (t *ThreadsRunner) Spawn(fn func(r *Runner)) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn(t.Runner)
	}()
}

// WaitForThreads blocks until every goroutine spawned via Spawn has returned.
func (t *ThreadsRunner) WaitForThreads() {
	t.wg.Wait()
}
