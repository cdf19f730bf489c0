package xsk

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// TxSocket owns the TX half of an XSK socket: the producer ring descriptors
// are reserved into and filled with outbound packets, then marked ready and
// flushed in order.
type TxSocket struct {
	fd   int
	tx   prodRing
	umem *Umem

	needsWakeup bool

	currentSlot int
	readyForTX  []bool

	config *Config
}

// NextTxSlot reserves the next TX descriptor for the caller to fill in.
func (s *TxSocket) NextTxSlot() (Desc, error) {
	idx, ok := s.tx.reserve(1)
	if !ok {
		return Desc{}, ErrTxRingReserve
	}
	return newDesc(s.umem.Pool(), s.tx.descAt(idx), idx), nil
}

// TX marks desc ready for transmission, then submits every consecutive
// ready descriptor starting from the ring's current position — slots can
// be handed back here out of order (e.g. a delayed repeated echo racing a
// fresh reply) but this keeps what actually hits the wire in ring order.
// sendto() is issued whenever the kernel asks for a wakeup, or on every
// call when wakeup gating is disabled.
func (s *TxSocket) TX(desc Desc) error {
	s.markReady(int(desc.Index()) % len(s.readyForTX))

	n := s.readyRunLength()
	if n > 0 {
		s.tx.submit(n)
	}

	if s.needsWakeup {
		if s.tx.needsWakeup() {
			if err := s.sendto(); err != nil {
				return err
			}
		}
	} else if err := s.sendto(); err != nil {
		return err
	}

	s.umem.ReclaimCompletionRing()

	return nil
}

func (s *TxSocket) markReady(idx int) {
	s.readyForTX[idx] = true
}

// readyRunLength walks forward from currentSlot counting consecutive ready
// slots, clearing each as it's counted and advancing currentSlot past them.
func (s *TxSocket) readyRunLength() uint32 {
	count := uint32(0)
	total := len(s.readyForTX)

	for i := 0; i < total; i++ {
		if !s.readyForTX[s.currentSlot] {
			break
		}
		s.readyForTX[s.currentSlot] = false
		s.currentSlot = (s.currentSlot + 1) % total
		count++
	}

	return count
}

func (s *TxSocket) sendto() error {
	_, err := unix.Sendto(s.fd, nil, unix.MSG_DONTWAIT, nil)
	if err != nil {
		switch err {
		case unix.ENOBUFS, unix.EAGAIN, unix.EBUSY, unix.ENETDOWN:
			return nil
		default:
			return fmt.Errorf("%w: %v", ErrSendtoFailed, err)
		}
	}
	return nil
}

// Config returns the XSK configuration associated with the socket.
func (s *TxSocket) Config() *Config {
	return s.config
}
