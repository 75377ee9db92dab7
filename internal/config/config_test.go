package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kprusa/rpfmesh/internal/wire"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeForwarder, false},
		{"forwarder", ModeForwarder, false},
		{"sender", ModeSender, false},
		{"receiver", ModeReceiver, false},
		{"bogus", 0, true},
	}
	for _, tt := range cases {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNodeConfig_Validate(t *testing.T) {
	base := NodeConfig{ID: 0, Duration: 10, WorkDir: "/tmp/node0"}

	t.Run("valid forwarder", func(t *testing.T) {
		c := base
		c.Mode = ModeForwarder
		assert.NoError(t, c.Validate())
	})

	t.Run("invalid id", func(t *testing.T) {
		c := base
		c.ID = wire.NodeID(wire.MaxNodes)
		require.Error(t, c.Validate())
	})

	t.Run("non-positive duration", func(t *testing.T) {
		c := base
		c.Duration = 0
		require.Error(t, c.Validate())
	})

	t.Run("sender without string", func(t *testing.T) {
		c := base
		c.Mode = ModeSender
		require.Error(t, c.Validate())
	})

	t.Run("sender with string", func(t *testing.T) {
		c := base
		c.Mode = ModeSender
		c.SendString = "hi"
		assert.NoError(t, c.Validate())
	})

	t.Run("receiver without observed sender", func(t *testing.T) {
		c := base
		c.Mode = ModeReceiver
		c.ObservedSender = wire.NodeID(wire.MaxNodes)
		require.Error(t, c.Validate())
	})

	t.Run("receiver with observed sender", func(t *testing.T) {
		c := base
		c.Mode = ModeReceiver
		c.ObservedSender = 0
		assert.NoError(t, c.Validate())
	})

	t.Run("missing workdir", func(t *testing.T) {
		c := base
		c.Mode = ModeForwarder
		c.WorkDir = ""
		require.Error(t, c.Validate())
	})
}
