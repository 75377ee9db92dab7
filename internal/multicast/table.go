// Package multicast implements component C4: per-root reverse-path
// multicast tree maintenance on top of the unicast routing table built by
// package unicast. Per spec.md §9, multicast only borrows the unicast
// table (a non-owning read interface); unicast never references
// multicast, avoiding an ownership cycle.
package multicast

import (
	"github.com/kprusa/rpfmesh/internal/wire"
)

// Routes is the narrow read-only view of the unicast table the multicast
// plane needs: parent/next-hop lookups for reverse-path forwarding.
type Routes interface {
	InPrevHop(k wire.NodeID) (wire.NodeID, bool)
	OutNextHop(k wire.NodeID) (wire.NodeID, bool)
}

// Entry is one (receiver, last-refresh) pair under a root.
type Entry struct {
	Receiver    wire.NodeID
	LastRefresh int
}

// Table is the mapping sender_root_id -> ordered list of Entry.
type Table struct {
	self   wire.NodeID
	routes Routes
	roots  map[wire.NodeID][]Entry
}

// New creates an empty multicast Table bound to a unicast Routes view.
func New(self wire.NodeID, routes Routes) *Table {
	return &Table{self: self, routes: routes, roots: make(map[wire.NodeID][]Entry)}
}

// EnsureRoot initializes an empty entry list for root if absent, so a
// receiver node always carries its own configured root in the table and
// therefore emits JOIN refreshes for it (spec.md §4.4).
func (t *Table) EnsureRoot(root wire.NodeID) {
	if _, ok := t.roots[root]; !ok {
		t.roots[root] = nil
	}
}

// Roots lists every root currently carried, including ones with an empty
// list (pending their first JOIN).
func (t *Table) Roots() []wire.NodeID {
	out := make([]wire.NodeID, 0, len(t.roots))
	for r := range t.roots {
		out = append(out, r)
	}
	return out
}

// HasRoot reports whether root is present in the table.
func (t *Table) HasRoot(root wire.NodeID) bool {
	_, ok := t.roots[root]
	return ok
}

// Entries returns a copy of root's entry list.
func (t *Table) Entries(root wire.NodeID) []Entry {
	return append([]Entry(nil), t.roots[root]...)
}

// Parent returns in_prev_hop[root], the logical next hop toward root along
// the reverse tree.
func (t *Table) Parent(root wire.NodeID) (wire.NodeID, bool) {
	return t.routes.InPrevHop(root)
}

// NextHopTowardParent returns out_next_hop[parent(root)], the wire-level
// hop used to actually address a JOIN toward the tree parent.
func (t *Table) NextHopTowardParent(root wire.NodeID) (wire.NodeID, bool) {
	parent, ok := t.Parent(root)
	if !ok {
		return 0, false
	}
	return t.routes.OutNextHop(parent)
}

// RefreshSelf bumps the self-entry (present only on receiver-mode nodes,
// for their configured root) to now, exempting it from expiry. Spec.md §9
// recommends doing this at the top of every tick, before Purge.
func (t *Table) RefreshSelf(root wire.NodeID, now int) {
	entries := t.roots[root]
	for i := range entries {
		if entries[i].Receiver == t.self {
			entries[i].LastRefresh = now
			return
		}
	}
}

// InsertSelf adds the permanent self-entry a receiver-mode node carries
// for its observed root.
func (t *Table) InsertSelf(root wire.NodeID, now int) {
	t.EnsureRoot(root)
	t.upsert(root, t.self, now)
}

// HandleJoin processes a received JOIN per spec.md §4.4. It returns a
// forwarded message when the join must be relayed onward, or ok=false
// when it was consumed locally or silently dropped (next hop unset).
func (t *Table) HandleJoin(j wire.Join, now int) (fwd wire.Join, ok bool) {
	if j.NextHop != t.self {
		// Not addressed to this node on this hop.
		return wire.Join{}, false
	}
	if j.Parent != t.self {
		next, have := t.routes.OutNextHop(j.Parent)
		if !have {
			return wire.Join{}, false
		}
		fwd = j
		fwd.NextHop = next
		return fwd, true
	}

	t.upsert(j.Root, j.Receiver, now)
	return wire.Join{}, false
}

// upsert inserts or refreshes a (receiver, now) entry under root.
func (t *Table) upsert(root, receiver wire.NodeID, now int) {
	entries, ok := t.roots[root]
	if !ok {
		t.roots[root] = []Entry{{Receiver: receiver, LastRefresh: now}}
		return
	}
	for i := range entries {
		if entries[i].Receiver == receiver {
			entries[i].LastRefresh = now
			t.roots[root] = entries
			return
		}
	}
	t.roots[root] = append(entries, Entry{Receiver: receiver, LastRefresh: now})
}

// GenerateJoins builds one JOIN per carried root, per spec.md §4.4. A root
// is skipped (suppressed) this tick when the parent or next hop toward it
// cannot be determined.
func (t *Table) GenerateJoins() []wire.Join {
	var joins []wire.Join
	for root := range t.roots {
		parent, ok := t.Parent(root)
		if !ok {
			continue
		}
		next, ok := t.routes.OutNextHop(parent)
		if !ok {
			continue
		}
		joins = append(joins, wire.Join{
			Receiver: t.self,
			Root:     root,
			Parent:   parent,
			NextHop:  next,
		})
	}
	return joins
}

// Purge drops expired entries and removes roots whose list becomes empty,
// per spec.md §4.4. Entries for self are exempt (refreshed by RefreshSelf
// beforehand, not by this call).
func (t *Table) Purge(now, expiry int) {
	for root, entries := range t.roots {
		kept := entries[:0]
		for _, e := range entries {
			if e.Receiver == t.self || now-e.LastRefresh <= expiry {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(t.roots, root)
			continue
		}
		t.roots[root] = kept
	}
}

// HandleData processes an incoming DATA message per spec.md §4.4. deliver
// is true when this node is itself a receiver for root and payload should
// be written to the per-root sink; fwd/ok mirror a forwarded message for
// downstream children, if any exist.
func (t *Table) HandleData(d wire.Data) (deliver bool, fwd wire.Data, ok bool) {
	if !t.HasRoot(d.Root) {
		return false, wire.Data{}, false
	}
	parent, have := t.Parent(d.Root)
	if !have || d.Sender != parent {
		return false, wire.Data{}, false
	}

	forward := false
	for _, e := range t.roots[d.Root] {
		if e.Receiver == t.self {
			deliver = true
		} else {
			forward = true
		}
	}
	if forward {
		fwd = wire.Data{Sender: t.self, Root: d.Root, Payload: d.Payload}
		ok = true
	}
	return deliver, fwd, ok
}
