package transport

import (
	"github.com/sirupsen/logrus"

	"github.com/kprusa/rpfmesh/internal/wire"
)

// Controller is the external collaborator spec.md §1 and §9 deliberately
// keep out of the core engine: it relays messages between nodes'
// inbound/outbound streams according to the link-state topology at the
// tick its caller passes to RelayTick, adapted from the teacher's
// Controller/NetworkTypology pair for an in-memory simulation (no real
// per-process files required to run a scenario end-to-end).
type Controller struct {
	topology *Topology
	streams  map[wire.NodeID]*MemoryStream
	relayed  map[wire.NodeID]int
	log      *logrus.Entry
}

// NewController wires one MemoryStream per node id over topology.
func NewController(topology *Topology, ids []wire.NodeID, log *logrus.Entry) *Controller {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	c := &Controller{
		topology: topology,
		streams:  make(map[wire.NodeID]*MemoryStream, len(ids)),
		relayed:  make(map[wire.NodeID]int, len(ids)),
		log:      log,
	}
	for _, id := range ids {
		c.streams[id] = NewMemoryStream()
	}
	return c
}

// Stream returns the Stream a node with the given id should read/write.
func (c *Controller) Stream(id wire.NodeID) Stream {
	return c.streams[id]
}

// RelayTick copies every node's outbound lines produced since the last
// relay into the inbound stream of every other node currently linked to
// it at tick, per spec.md §5's ordering guarantee: a message written at
// tick t is observable no earlier than the receiving node's tick t+1, so
// RelayTick must run strictly after every node has produced its tick-t
// output and strictly before any node consumes tick-(t+1) input.
func (c *Controller) RelayTick(tick int) {
	for from, src := range c.streams {
		lines, newMark := src.outboundSince(c.relayed[from])
		c.relayed[from] = newMark
		if len(lines) == 0 {
			continue
		}
		for to, dst := range c.streams {
			if to == from {
				continue
			}
			if c.topology.IsUp(tick, from, to) {
				dst.deliver(lines)
				c.log.WithFields(logrus.Fields{"from": from, "to": to, "tick": tick}).Debug("relayed messages")
			}
		}
	}
}
