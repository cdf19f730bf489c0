// Command xdpecho runs a UDP echo server directly over an AF_XDP socket,
// bypassing the kernel network stack for received and transmitted packets.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jibi/hydrogen-peroxide/internal/echo"
	"github.com/jibi/hydrogen-peroxide/internal/netstack"
	"github.com/jibi/hydrogen-peroxide/internal/xsk"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var configPath string
	var repeat bool

	rootCmd := &cobra.Command{
		Use:   "xdpecho",
		Short: "UDP echo server over AF_XDP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, repeat)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "config file path (yaml/json/toml)")
	flags.String("interface", "", "network interface to bind to")
	flags.String("bind-addr", "", "IPv4 address to bind to")
	flags.Uint16("bind-port", 0, "UDP port to bind to")
	flags.String("xdp-prog-path", "./kern/xsk_kern.o", "path to the compiled XDP program")
	flags.IntSlice("queues", []int{0}, "interface queue indices to bind")
	flags.Int("socks-per-queue", 1, "AF_XDP sockets per queue (power of two)")
	flags.Uint32("rx-ring-size", xsk.DefaultRingSize, "RX ring size (power of two)")
	flags.Uint32("tx-ring-size", xsk.DefaultRingSize, "TX ring size (power of two)")
	flags.Uint32("frame-size", xsk.DefaultFrameSize, "UMEM frame size")
	flags.String("mode", "skb", "XDP attach mode: skb, drv, drv-zc")
	flags.Bool("needs-wakeup", true, "use the XDP_USE_NEED_WAKEUP socket option")
	flags.Bool("udp-checksum", false, "compute UDP checksums on transmit")
	flags.BoolVar(&repeat, "repeat", false, "send a second delayed echo reply for every packet")

	for _, name := range []string{
		"interface", "bind-addr", "bind-port", "xdp-prog-path", "queues",
		"socks-per-queue", "rx-ring-size", "tx-ring-size", "frame-size",
		"mode", "needs-wakeup", "udp-checksum",
	} {
		key := flagToConfigKey(name)
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "xdpecho: binding flag %q: %v\n", name, err)
			os.Exit(1)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "xdpecho: %v\n", err)
		os.Exit(1)
	}
}

func flagToConfigKey(flag string) string {
	key := []byte(flag)
	for i, b := range key {
		if b == '-' {
			key[i] = '_'
		}
	}
	return string(key)
}

func run(configPath string, repeat bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	fmt.Printf("🔄 Removing eBPF memlock rlimit...\n")
	if err := xsk.RemoveMemlock(); err != nil {
		return fmt.Errorf("removing memlock rlimit: %w", err)
	}

	fmt.Printf("📋 Starting AF_XDP echo server on %s (%s:%d), mode=%s, queues=%v\n",
		cfg.Interface, cfg.BindAddr, cfg.BindPort, cfg.Mode, cfg.Queues)

	netAlloc := netstack.NetAllocator(func(h netstack.Handle) netstack.App {
		return echo.New(h, repeat)
	})

	x, err := xsk.New(cfg, netAlloc)
	if err != nil {
		return fmt.Errorf("starting xsk: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("🚀 Ready\n")
	<-sigCh

	fmt.Printf("📊 Shutting down...\n")
	x.Close()

	return nil
}
