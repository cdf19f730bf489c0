package xsk

import (
	"fmt"
	"net"
)

// Mode selects how the XDP program is attached to the interface.
type Mode int

const (
	// ModeSkb is the generic, driver-independent attach mode.
	ModeSkb Mode = iota
	// ModeDrv requires native XDP driver support.
	ModeDrv
	// ModeDrvZeroCopy requires native XDP support plus a zero-copy capable driver.
	ModeDrvZeroCopy
)

// ParseMode converts the CLI/config string representation of a mode
// ("skb", "drv", "drv-zc") into a Mode value.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "skb", "":
		return ModeSkb, nil
	case "drv":
		return ModeDrv, nil
	case "drv-zc":
		return ModeDrvZeroCopy, nil
	default:
		return ModeSkb, fmt.Errorf("%w: invalid xsk mode %q", ErrInvalidConfig, s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeDrv:
		return "drv"
	case ModeDrvZeroCopy:
		return "drv-zc"
	default:
		return "skb"
	}
}

const (
	// DefaultRingSize matches libbpf's XSK_RING_PROD__DEFAULT_NUM_DESCS.
	DefaultRingSize = 2048
	// DefaultFrameSize matches libbpf's XSK_UMEM__DEFAULT_FRAME_SIZE.
	DefaultFrameSize = 4096
	// BatchSize bounds how many descriptors are moved through a ring in one pass.
	BatchSize = 64
)

// Config holds everything needed to stand up one or more XDP sockets on an
// interface: where to bind, which queues to bind to, ring geometry, and the
// compiled XDP program to load.
type Config struct {
	Interface string
	BindAddr  net.IP
	BindPort  uint16

	XDPProgPath   string
	Queues        []uint32
	SocksPerQueue int
	RxRingSize    uint32
	TxRingSize    uint32
	FrameSize     uint32
	Mode          Mode
	NeedsWakeup   bool
	UDPChecksum   bool
}

// DefaultConfig returns a Config populated with the same defaults the
// original implementation uses.
func DefaultConfig() Config {
	return Config{
		XDPProgPath:   "./kern/xsk_kern.o",
		Queues:        []uint32{0},
		SocksPerQueue: 1,
		RxRingSize:    DefaultRingSize,
		TxRingSize:    DefaultRingSize,
		FrameSize:     DefaultFrameSize,
		Mode:          ModeSkb,
		NeedsWakeup:   true,
	}
}

// Validate checks that all mandatory fields are set and well formed,
// returning a wrapped ErrInvalidConfig describing the first problem found.
func (c *Config) Validate() error {
	if c.Interface == "" {
		return fmt.Errorf("%w: missing interface", ErrInvalidConfig)
	}
	if c.BindAddr == nil || c.BindAddr.To4() == nil {
		return fmt.Errorf("%w: missing or non-IPv4 bind address", ErrInvalidConfig)
	}
	if c.BindPort == 0 {
		return fmt.Errorf("%w: missing bind port", ErrInvalidConfig)
	}
	if len(c.Queues) == 0 {
		return fmt.Errorf("%w: no queues configured", ErrInvalidConfig)
	}
	if c.SocksPerQueue <= 0 || !isPowerOfTwo(uint32(c.SocksPerQueue)) {
		return fmt.Errorf("%w: socks-per-queue must be a power of two, got %d", ErrInvalidConfig, c.SocksPerQueue)
	}
	if !isPowerOfTwo(c.RxRingSize) || !isPowerOfTwo(c.TxRingSize) {
		return fmt.Errorf("%w: ring sizes must be powers of two", ErrInvalidConfig)
	}
	if !isPowerOfTwo(c.FrameSize) {
		return fmt.Errorf("%w: frame size must be a power of two, got %d", ErrInvalidConfig, c.FrameSize)
	}
	return nil
}

func isPowerOfTwo(v uint32) bool {
	return v != 0 && v&(v-1) == 0
}
