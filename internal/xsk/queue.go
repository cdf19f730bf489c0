package xsk

// Queue is a group of sockets bound to the same interface queue — sharing
// the same NIC queue but distinct AF_XDP sockets when SocksPerQueue > 1.
type Queue struct {
	Sockets []*Socket
}

// NewQueue creates and binds SocksPerQueue sockets against umem for
// queueNum, all sharing umem's registered UMEM memory.
func NewQueue(cfg *Config, umem *Umem, queueNum uint32, pipeReaderFD int) (*Queue, error) {
	sockets := make([]*Socket, 0, cfg.SocksPerQueue)

	for i := 0; i < cfg.SocksPerQueue; i++ {
		sock, err := NewSocket(cfg, umem, queueNum, pipeReaderFD)
		if err != nil {
			for _, s := range sockets {
				s.Close()
			}
			return nil, err
		}
		sockets = append(sockets, sock)
	}

	return &Queue{Sockets: sockets}, nil
}

// allSockets flattens a slice of queues into a single slice of every socket
// they contain, in queue order — used to enumerate xsks_map slots and to
// spawn one RX loop per socket.
func allSockets(queues []*Queue) []*Socket {
	var out []*Socket
	for _, q := range queues {
		out = append(out, q.Sockets...)
	}
	return out
}
