package xsk

import "errors"

// Sentinel errors for the XSK data path, one per failure class a caller may
// want to distinguish with errors.Is.
var (
	ErrInvalidConfig        = errors.New("xsk: invalid configuration")
	ErrFrameAllocFailed     = errors.New("xsk: frame pool allocation failed")
	ErrUmemCreateFailed     = errors.New("xsk: umem registration failed")
	ErrSocketCreateFailed   = errors.New("xsk: socket creation failed")
	ErrFillRingReserve      = errors.New("xsk: failed to reserve descriptors in fill ring")
	ErrTxRingReserve        = errors.New("xsk: failed to reserve descriptors in tx ring")
	ErrSocketPollFailed     = errors.New("xsk: poll() on socket fd failed")
	ErrSendtoFailed         = errors.New("xsk: sendto() failed")
	ErrBpfProgLoadFailed    = errors.New("xsk: failed to load xdp program")
	ErrBpfAttachFailed      = errors.New("xsk: failed to attach xdp program to interface")
	ErrMapNotFound          = errors.New("xsk: bpf map not found")
	ErrMapUpdateFailed      = errors.New("xsk: bpf map update failed")
)
