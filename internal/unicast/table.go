// Package unicast implements components C2 and C3 of the node engine:
// neighbor liveness via HELLO, and the two independent distance-vector
// computations (in-distance and out-distance) described in spec.md §4.2
// and §4.3. The two are folded into one table because spec.md's data
// model already does so: in_refresh, the only state C2 owns, is a field
// of the same per-k entry as in_distance and in_prev_hop.
package unicast

import (
	"github.com/kprusa/rpfmesh/internal/wire"
)

// hop is an optional next/prev-hop pointer; ok is false when unset.
type hop struct {
	id wire.NodeID
	ok bool
}

// refresh is an optional last-refresh tick; ok is false when unset.
type refresh struct {
	tick int
	ok   bool
}

// Table holds both distance-vector computations for one node.
type Table struct {
	self wire.NodeID

	inDistance [wire.MaxNodes]wire.Distance
	inPrevHop  [wire.MaxNodes]hop
	inRefresh  [wire.MaxNodes]refresh

	outDistance [wire.MaxNodes]wire.Distance
	outNextHop  [wire.MaxNodes]hop
	outRefresh  [wire.MaxNodes]refresh
}

// New creates a Table with only the self entries populated, satisfying
// invariant 1 of spec.md §3 from construction onward.
func New(self wire.NodeID) *Table {
	t := &Table{self: self}
	for k := 0; k < wire.MaxNodes; k++ {
		if wire.NodeID(k) == self {
			continue
		}
		t.inDistance[k] = wire.Unreachable
		t.outDistance[k] = wire.Unreachable
	}
	return t
}

// Self returns the node this table belongs to.
func (t *Table) Self() wire.NodeID { return t.self }

// InDistance returns the current in-distance of k.
func (t *Table) InDistance(k wire.NodeID) wire.Distance { return t.inDistance[k] }

// OutDistance returns the current out-distance of k.
func (t *Table) OutDistance(k wire.NodeID) wire.Distance { return t.outDistance[k] }

// InPrevHop returns the direct in-neighbor on the chosen shortest reverse
// path from k, if any.
func (t *Table) InPrevHop(k wire.NodeID) (wire.NodeID, bool) {
	h := t.inPrevHop[k]
	return h.id, h.ok
}

// OutNextHop returns the first hop on the chosen shortest path to k, if
// any.
func (t *Table) OutNextHop(k wire.NodeID) (wire.NodeID, bool) {
	h := t.outNextHop[k]
	return h.id, h.ok
}

// InVector returns a copy of the full in-distance vector, for
// self-advertisement at IN-DISTANCE ticks.
func (t *Table) InVector() [wire.MaxNodes]wire.Distance { return t.inDistance }

// OutVector returns a copy of the full out-distance vector, for
// self-advertisement at DVECTOR ticks.
func (t *Table) OutVector() [wire.MaxNodes]wire.Distance { return t.outDistance }

// DirectInNeighbors lists every k with in_distance[k] == 1, the set a
// DVECTOR self-advertisement attaches as its in-neighbor list.
func (t *Table) DirectInNeighbors() []wire.NodeID {
	var out []wire.NodeID
	for k := 0; k < wire.MaxNodes; k++ {
		if wire.NodeID(k) != t.self && t.inDistance[k] == 1 {
			out = append(out, wire.NodeID(k))
		}
	}
	return out
}

// HandleHello unconditionally (re)creates self's direct in-neighbor entry
// for sender, per spec.md §4.2.
func (t *Table) HandleHello(sender wire.NodeID, now int) {
	if sender == t.self {
		return
	}
	t.inDistance[sender] = 1
	t.inPrevHop[sender] = hop{id: sender, ok: true}
	t.inRefresh[sender] = refresh{tick: now, ok: true}
}

// ApplyInDistance applies a received IN-DISTANCE vector from a direct
// in-neighbor sender, per the four-case table of spec.md §4.3. in_refresh
// is not touched; only HELLO refreshes direct-link liveness. Withdrawal
// and cost-rise only clear the single entry k; unlike Purge, they never
// invalidate other destinations that happen to share sender as prev-hop.
func (t *Table) ApplyInDistance(sender wire.NodeID, adv [wire.MaxNodes]wire.Distance) {
	for k := 0; k < wire.MaxNodes; k++ {
		if wire.NodeID(k) == t.self {
			continue
		}
		applyCase(&t.inDistance[k], &t.inPrevHop[k], sender, adv[k], nil)
	}
}

// ApplyOutDistance applies an origin's out-distance vector, as if self
// had received it one hop before origin on the reverse direction (spec.md
// §4.3's update_out_distances). Callers must first confirm self appears
// in the DVECTOR's in-neighbor list. On withdrawal/cost-rise, every m
// with out_next_hop[m] = k (the withdrawn destination, not origin) is
// also invalidated, per spec.md §4.3's transitive-invalidation note.
func (t *Table) ApplyOutDistance(origin wire.NodeID, adv [wire.MaxNodes]wire.Distance) {
	for k := 0; k < wire.MaxNodes; k++ {
		if wire.NodeID(k) == t.self {
			continue
		}
		dest := wire.NodeID(k)
		applyCase(&t.outDistance[k], &t.outNextHop[k], origin, adv[k], func() { t.invalidateOut(dest) })
	}
}

// applyCase implements the withdrawal / improve / tie-break / cost-rise
// table shared by both the IN-DISTANCE and out-distance computations.
// invalidate, when non-nil, is called on withdrawal or an over-horizon
// cost rise to propagate the loss to dependent entries; IN-DISTANCE
// passes nil since the ground-truth protocol only clears the single
// entry there.
func applyCase(curr *wire.Distance, via *hop, s wire.NodeID, adv wire.Distance, invalidate func()) {
	switch {
	case adv.Infinite() && via.ok && via.id == s && !curr.Infinite():
		// Withdrawal.
		*curr = wire.Unreachable
		*via = hop{}
		if invalidate != nil {
			invalidate()
		}

	case !adv.Infinite() && (curr.Infinite() || int(adv)+1 < int(*curr)):
		// Improve.
		if int(adv)+1 < wire.MaxNodes {
			*curr = adv + 1
			*via = hop{id: s, ok: true}
		}

	case !adv.Infinite() && int(adv)+1 == int(*curr) && via.ok && s < via.id:
		// Tie-break: lower sender id wins, no distance change.
		*via = hop{id: s, ok: true}

	case !adv.Infinite() && via.ok && via.id == s && int(adv)+1 > int(*curr):
		// Cost rise on the chosen hop.
		if int(adv)+1 >= wire.MaxNodes {
			*curr = wire.Unreachable
			*via = hop{}
			if invalidate != nil {
				invalidate()
			}
		} else {
			*curr = adv + 1
		}
	}
}

// invalidateIn clears every m whose in_prev_hop is k, after k's own
// in-refresh has expired.
func (t *Table) invalidateIn(k wire.NodeID) {
	for m := 0; m < wire.MaxNodes; m++ {
		if wire.NodeID(m) == t.self {
			continue
		}
		if t.inPrevHop[m].ok && t.inPrevHop[m].id == k {
			t.inDistance[m] = wire.Unreachable
			t.inPrevHop[m] = hop{}
		}
	}
}

// invalidateOut clears every m whose out_next_hop is k.
func (t *Table) invalidateOut(k wire.NodeID) {
	for m := 0; m < wire.MaxNodes; m++ {
		if wire.NodeID(m) == t.self {
			continue
		}
		if t.outNextHop[m].ok && t.outNextHop[m].id == k {
			t.outDistance[m] = wire.Unreachable
			t.outNextHop[m] = hop{}
		}
	}
}

// ShouldFloodDVector reports whether a DVECTOR about origin, received
// from sender, should be re-emitted: sender must be a direct in-neighbor
// of self AND lie on self's chosen shortest reverse path from origin.
func (t *Table) ShouldFloodDVector(sender, origin wire.NodeID) bool {
	if t.inDistance[sender] != 1 {
		return false
	}
	parent, ok := t.InPrevHop(origin)
	return ok && parent == sender
}

// ReceivesFrom reports whether self appears in a direct neighbor list,
// i.e. whether self should apply a DVECTOR whose origin advertises it.
func ReceivesFrom(self wire.NodeID, neighbors []wire.NodeID) bool {
	for _, n := range neighbors {
		if n == self {
			return true
		}
	}
	return false
}

// SetOutRefresh records that a DVECTOR from origin was just applied.
func (t *Table) SetOutRefresh(origin wire.NodeID, now int) {
	t.outRefresh[origin] = refresh{tick: now, ok: true}
}

// Purge expires stale in- and out-side entries, run once per tick per
// spec.md §4.2. Entries whose refresh has aged past expiry are cleared,
// along with every entry that was only reachable through them.
func (t *Table) Purge(now, expiry int) {
	for k := 0; k < wire.MaxNodes; k++ {
		if wire.NodeID(k) == t.self {
			continue
		}
		if t.inRefresh[k].ok && now-t.inRefresh[k].tick > expiry {
			t.inRefresh[k] = refresh{}
			t.invalidateIn(wire.NodeID(k))
		}
		if t.outRefresh[k].ok && now-t.outRefresh[k].tick > expiry {
			t.outRefresh[k] = refresh{}
			t.invalidateOut(wire.NodeID(k))
		}
	}
}
