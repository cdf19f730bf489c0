// Package xsk drives one or more AF_XDP sockets against a network
// interface: UMEM setup, ring-buffer producer/consumer protocol, the XDP
// program that steers traffic into them, and the RX loops that hand
// received packets up to a protocol layer (see NetAllocator).
package xsk

import (
	"fmt"

	"github.com/cilium/ebpf/rlimit"
)

// Xsk is the top-level handle for a running AF_XDP setup: the attached XDP
// program and the goroutines driving every socket's RX loop.
type Xsk struct {
	xdpProg       *XdpProg
	threadsRunner *ThreadsRunner
}

// New validates cfg, creates one UMEM and socket group per configured
// queue, loads and attaches the XDP program, and spawns one RX loop
// goroutine per socket. netAlloc builds the protocol-layer Net for each
// socket from the Handle wrapping its TX half.
func New(cfg Config, netAlloc NetAllocator) (*Xsk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	threadsRunner, err := NewThreadsRunner()
	if err != nil {
		return nil, fmt.Errorf("creating shutdown pipe: %w", err)
	}

	var queues []*Queue
	var umems []*Umem
	cleanup := func() {
		for _, q := range queues {
			for _, s := range q.Sockets {
				s.Close()
			}
		}
		for _, u := range umems {
			u.Close()
		}
	}

	for _, queueNum := range cfg.Queues {
		umem, err := NewUmem(&cfg)
		if err != nil {
			cleanup()
			return nil, err
		}
		umems = append(umems, umem)

		q, err := NewQueue(&cfg, umem, queueNum, threadsRunner.Runner.PipeReaderFD())
		if err != nil {
			cleanup()
			return nil, err
		}
		queues = append(queues, q)
	}

	sockets := allSockets(queues)

	xdpProg, err := LoadXdpProg(&cfg, sockets)
	if err != nil {
		cleanup()
		return nil, err
	}

	for _, sock := range sockets {
		handle := NewHandle(sock.TX())
		net := netAlloc(handle)
		rx := sock.RX()
		threadsRunner.Spawn(func(r *Runner) {
			rx.RunLoop(r, net)
		})
	}

	return &Xsk{xdpProg: xdpProg, threadsRunner: threadsRunner}, nil
}

// RemoveMemlock lifts the memlock rlimit so eBPF map/program allocations
// don't fail on kernels still enforcing RLIMIT_MEMLOCK accounting.
func RemoveMemlock() error {
	return rlimit.RemoveMemlock()
}

// Runner returns the runner controlling every spawned RX loop, for use in a
// signal handler that calls Stop.
func (x *Xsk) Runner() *Runner {
	return x.threadsRunner.Runner
}

// WaitForThreads blocks until every RX loop goroutine has returned.
func (x *Xsk) WaitForThreads() {
	x.threadsRunner.WaitForThreads()
}

// Close stops every RX loop, waits for them to return, and detaches the XDP
// program.
func (x *Xsk) Close() {
	x.threadsRunner.Runner.Stop()
	x.threadsRunner.WaitForThreads()
	x.xdpProg.Close()
}
