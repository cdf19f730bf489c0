package xsk

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	c := DefaultConfig()
	c.Interface = "eth0"
	c.BindAddr = net.IPv4(10, 0, 0, 1)
	c.BindPort = 9000
	return c
}

func TestConfig_Validate_AcceptsWellFormedConfig(t *testing.T) {
	c := validConfig()
	require.NoError(t, c.Validate())
}

func TestConfig_Validate_RejectsMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
	}{
		{"no interface", func(c *Config) { c.Interface = "" }},
		{"nil bind addr", func(c *Config) { c.BindAddr = nil }},
		{"ipv6 bind addr", func(c *Config) { c.BindAddr = net.ParseIP("::1") }},
		{"zero bind port", func(c *Config) { c.BindPort = 0 }},
		{"no queues", func(c *Config) { c.Queues = nil }},
		{"zero socks per queue", func(c *Config) { c.SocksPerQueue = 0 }},
		{"non-power-of-two socks per queue", func(c *Config) { c.SocksPerQueue = 3 }},
		{"non-power-of-two rx ring", func(c *Config) { c.RxRingSize = 100 }},
		{"non-power-of-two tx ring", func(c *Config) { c.TxRingSize = 100 }},
		{"zero frame size", func(c *Config) { c.FrameSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"", ModeSkb, true},
		{"skb", ModeSkb, true},
		{"drv", ModeDrv, true},
		{"drv-zc", ModeDrvZeroCopy, true},
		{"bogus", ModeSkb, false},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if tt.ok {
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		} else {
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		}
	}
}

func TestMode_String_RoundTripsThroughParseMode(t *testing.T) {
	for _, m := range []Mode{ModeSkb, ModeDrv, ModeDrvZeroCopy} {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}
