package main

import (
	"fmt"
	"net"

	"github.com/jibi/hydrogen-peroxide/internal/xsk"
	"github.com/spf13/viper"
)

func loadConfig(configPath string) (xsk.Config, error) {
	v := viper.GetViper()

	v.SetDefault("interface", "")
	v.SetDefault("bind_addr", "")
	v.SetDefault("bind_port", 0)
	v.SetDefault("xdp_prog_path", "./kern/xsk_kern.o")
	v.SetDefault("queues", []int{0})
	v.SetDefault("socks_per_queue", 1)
	v.SetDefault("rx_ring_size", xsk.DefaultRingSize)
	v.SetDefault("tx_ring_size", xsk.DefaultRingSize)
	v.SetDefault("frame_size", xsk.DefaultFrameSize)
	v.SetDefault("mode", "skb")
	v.SetDefault("needs_wakeup", true)
	v.SetDefault("udp_checksum", false)
	v.SetDefault("repeat", false)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return xsk.Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("XDPECHO")
	v.AutomaticEnv()

	queuesInt := v.GetIntSlice("queues")
	queues := make([]uint32, len(queuesInt))
	for i, q := range queuesInt {
		queues[i] = uint32(q)
	}

	mode, err := xsk.ParseMode(v.GetString("mode"))
	if err != nil {
		return xsk.Config{}, err
	}

	bindAddr := net.ParseIP(v.GetString("bind_addr"))

	cfg := xsk.Config{
		Interface:     v.GetString("interface"),
		BindAddr:      bindAddr,
		BindPort:      uint16(v.GetUint("bind_port")),
		XDPProgPath:   v.GetString("xdp_prog_path"),
		Queues:        queues,
		SocksPerQueue: v.GetInt("socks_per_queue"),
		RxRingSize:    uint32(v.GetUint("rx_ring_size")),
		TxRingSize:    uint32(v.GetUint("tx_ring_size")),
		FrameSize:     uint32(v.GetUint("frame_size")),
		Mode:          mode,
		NeedsWakeup:   v.GetBool("needs_wakeup"),
		UDPChecksum:   v.GetBool("udp_checksum"),
	}

	return cfg, nil
}
