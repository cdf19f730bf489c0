package xsk

import (
	"errors"
	"fmt"
	"log"

	"golang.org/x/sys/unix"
)

// RxSocket owns the RX half of an XSK socket: the consumer ring descriptors
// of newly arrived packets are read from, plus the poll() file descriptor
// pair (socket fd + shutdown-pipe reader fd) that blocks the owning thread
// between batches.
type RxSocket struct {
	fd      int
	rx      consRing
	umem    *Umem
	pollFDs []unix.PollFd
}

// Poll blocks until either the socket fd becomes readable or the shutdown
// pipe is written to, returning the number of ready fds (0 on a benign
// EINTR-style retry signal).
func (s *RxSocket) Poll() (int, error) {
	n, err := unix.Poll(s.pollFDs, -1)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrSocketPollFailed, err)
	}
	return n, nil
}

// ShutdownRequested reports whether the shutdown-pipe fd (the second entry
// in pollFDs) became readable on the last Poll call.
func (s *RxSocket) ShutdownRequested() bool {
	return s.pollFDs[1].Revents&unix.POLLIN != 0
}

// RunOnce polls, then drains at most BatchSize received descriptors,
// handing each to net.RxPacket before releasing them and reclaiming their
// frames through the fill ring.
func (s *RxSocket) RunOnce(net Net) error {
	n, err := s.Poll()
	if err != nil {
		return err
	}
	if n <= 0 {
		return nil
	}
	if s.ShutdownRequested() {
		return nil
	}

	idx, rcvd := s.rx.peek(BatchSize)
	pollFn := func() error { _, err := s.Poll(); return err }

	if rcvd == 0 {
		// Honors the fill ring's wakeup request even on an empty batch, per
		// the reclaim contract: the kernel may still be waiting on a kick.
		if err := s.umem.ReclaimFillRing(pollFn, 0); err != nil {
			log.Printf("xsk: error reclaiming fill-ring buffers: %v", err)
		}
		return nil
	}

	freed := make([]uint64, 0, rcvd)
	for i := uint32(0); i < rcvd; i++ {
		desc := newDesc(s.umem.Pool(), s.rx.descAt(idx+i), idx+i)
		if err := net.RxPacket(desc); err != nil {
			log.Printf("xsk: error processing received packet: %v", err)
		}
		freed = append(freed, desc.Addr())
	}

	s.rx.release(rcvd)
	s.umem.Pool().FreeBatch(freed)

	if err := s.umem.ReclaimFillRing(pollFn, rcvd); err != nil {
		log.Printf("xsk: error reclaiming fill-ring buffers: %v", err)
	}

	return nil
}

// RunLoop repeatedly calls RunOnce until runner is stopped or the shutdown
// pipe wakes a poll() call, logging and continuing past per-batch errors so
// one bad batch doesn't take the whole socket down.
func (s *RxSocket) RunLoop(runner *Runner, net Net) {
	for runner.IsRunning() {
		if err := s.RunOnce(net); err != nil {
			log.Printf("xsk: rx loop error: %v", err)
		}
		if s.ShutdownRequested() {
			return
		}
	}
}
