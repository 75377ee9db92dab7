// Package config validates and holds the per-node launch configuration
// named in spec.md §6: a node id and duration, optionally extended with
// a sender or receiver role.
package config

import (
	"github.com/pkg/errors"

	"github.com/kprusa/rpfmesh/internal/wire"
)

// Mode is a node's role in the multicast plane.
type Mode int

const (
	// ModeForwarder participates in unicast and relays multicast traffic
	// but neither originates nor terminates any stream.
	ModeForwarder Mode = iota
	// ModeSender originates a DATA stream as the root of its own group.
	ModeSender
	// ModeReceiver joins another node's group as a leaf.
	ModeReceiver
)

func (m Mode) String() string {
	switch m {
	case ModeForwarder:
		return "forwarder"
	case ModeSender:
		return "sender"
	case ModeReceiver:
		return "receiver"
	default:
		return "unknown"
	}
}

// ParseMode validates a mode string from the CLI.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "forwarder":
		return ModeForwarder, nil
	case "sender":
		return ModeSender, nil
	case "receiver":
		return ModeReceiver, nil
	default:
		return 0, errors.Errorf("invalid mode %q: must be forwarder, sender, or receiver", s)
	}
}

// NodeConfig is the fully validated configuration for one engine run,
// equivalent to the positional launcher arguments of spec.md §6:
//   - (node_id, duration)
//   - (node_id, "sender", send_string, duration)
//   - (node_id, "receiver", observed_sender_id, duration)
type NodeConfig struct {
	ID       wire.NodeID
	Mode     Mode
	Duration int

	// SendString is the payload a sender emits every DATA_PERIOD ticks.
	// Only meaningful when Mode == ModeSender.
	SendString string

	// ObservedSender is the root this node wants to receive traffic
	// from. Only meaningful when Mode == ModeReceiver.
	ObservedSender wire.NodeID

	// WorkDir holds the per-root received-payload files (under its
	// "received" subdirectory); the inbound and outbound stream files are
	// given separately.
	WorkDir string
}

// Validate enforces the configuration-error taxonomy of spec.md §7:
// wrong argument combinations fail fast with a diagnostic.
func (c NodeConfig) Validate() error {
	if !c.ID.Valid() {
		return errors.Errorf("node id %d outside [0, %d)", c.ID, wire.MaxNodes)
	}
	if c.Duration <= 0 {
		return errors.Errorf("duration must be positive, got %d", c.Duration)
	}
	switch c.Mode {
	case ModeForwarder:
	case ModeSender:
		if c.SendString == "" {
			return errors.New("sender mode requires a non-empty send string")
		}
	case ModeReceiver:
		if !c.ObservedSender.Valid() {
			return errors.Errorf("receiver mode requires an observed sender id in [0, %d)", wire.MaxNodes)
		}
	default:
		return errors.Errorf("unknown mode %v", c.Mode)
	}
	if c.WorkDir == "" {
		return errors.New("work directory must be set")
	}
	return nil
}
