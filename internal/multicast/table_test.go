package multicast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kprusa/rpfmesh/internal/wire"
)

// fakeRoutes is a stub unicast.Routes used to drive multicast logic in
// isolation, the way a hand test double is preferred over a live unicast
// table for narrow package tests.
type fakeRoutes struct {
	prevHop map[wire.NodeID]wire.NodeID
	nextHop map[wire.NodeID]wire.NodeID
}

func newFakeRoutes() *fakeRoutes {
	return &fakeRoutes{prevHop: map[wire.NodeID]wire.NodeID{}, nextHop: map[wire.NodeID]wire.NodeID{}}
}

func (f *fakeRoutes) InPrevHop(k wire.NodeID) (wire.NodeID, bool) {
	v, ok := f.prevHop[k]
	return v, ok
}

func (f *fakeRoutes) OutNextHop(k wire.NodeID) (wire.NodeID, bool) {
	v, ok := f.nextHop[k]
	return v, ok
}

func TestEnsureRoot_CreatesEmptyList(t *testing.T) {
	tb := New(3, newFakeRoutes())
	tb.EnsureRoot(0)
	assert.True(t, tb.HasRoot(0))
	assert.Empty(t, tb.Entries(0))
}

func TestGenerateJoins_SuppressedWithoutParent(t *testing.T) {
	routes := newFakeRoutes()
	tb := New(3, routes)
	tb.EnsureRoot(0)

	joins := tb.GenerateJoins()
	assert.Empty(t, joins, "no parent known for root 0 yet")
}

func TestGenerateJoins_SuppressedWithoutNextHop(t *testing.T) {
	routes := newFakeRoutes()
	routes.prevHop[0] = 2 // parent(0) = 2
	tb := New(3, routes)
	tb.EnsureRoot(0)

	joins := tb.GenerateJoins()
	assert.Empty(t, joins, "out_next_hop[parent] unknown")
}

func TestGenerateJoins_Emits(t *testing.T) {
	routes := newFakeRoutes()
	routes.prevHop[0] = 2
	routes.nextHop[2] = 1
	tb := New(3, routes)
	tb.EnsureRoot(0)

	joins := tb.GenerateJoins()
	require.Len(t, joins, 1)
	assert.Equal(t, wire.Join{Receiver: 3, Root: 0, Parent: 2, NextHop: 1}, joins[0])
}

func TestHandleJoin_NotAddressedToSelf(t *testing.T) {
	tb := New(3, newFakeRoutes())
	_, ok := tb.HandleJoin(wire.Join{Receiver: 5, Root: 0, Parent: 2, NextHop: 9}, 1)
	assert.False(t, ok)
	assert.False(t, tb.HasRoot(0))
}

func TestHandleJoin_ForwardsWhenNotParent(t *testing.T) {
	routes := newFakeRoutes()
	routes.nextHop[2] = 1
	tb := New(3, routes)

	fwd, ok := tb.HandleJoin(wire.Join{Receiver: 5, Root: 0, Parent: 2, NextHop: 3}, 1)
	require.True(t, ok)
	assert.Equal(t, wire.Join{Receiver: 5, Root: 0, Parent: 2, NextHop: 1}, fwd)
}

func TestHandleJoin_ForwardDropsWhenNextHopUnknown(t *testing.T) {
	tb := New(3, newFakeRoutes())
	_, ok := tb.HandleJoin(wire.Join{Receiver: 5, Root: 0, Parent: 2, NextHop: 3}, 1)
	assert.False(t, ok)
}

func TestHandleJoin_InsertsAtParent(t *testing.T) {
	tb := New(3, newFakeRoutes())
	_, ok := tb.HandleJoin(wire.Join{Receiver: 5, Root: 0, Parent: 3, NextHop: 3}, 10)
	assert.False(t, ok, "consumed locally, nothing to forward")

	require.True(t, tb.HasRoot(0))
	entries := tb.Entries(0)
	require.Len(t, entries, 1)
	assert.Equal(t, wire.NodeID(5), entries[0].Receiver)
	assert.Equal(t, 10, entries[0].LastRefresh)
}

func TestHandleJoin_RefreshesExisting(t *testing.T) {
	tb := New(3, newFakeRoutes())
	tb.HandleJoin(wire.Join{Receiver: 5, Root: 0, Parent: 3, NextHop: 3}, 10)
	tb.HandleJoin(wire.Join{Receiver: 5, Root: 0, Parent: 3, NextHop: 3}, 20)

	entries := tb.Entries(0)
	require.Len(t, entries, 1)
	assert.Equal(t, 20, entries[0].LastRefresh)
}

func TestPurge_DropsExpiredReceiver(t *testing.T) {
	tb := New(3, newFakeRoutes())
	tb.HandleJoin(wire.Join{Receiver: 5, Root: 0, Parent: 3, NextHop: 3}, 0)

	tb.Purge(31, 30)
	assert.False(t, tb.HasRoot(0), "root removed once its only entry expires")
}

func TestPurge_KeepsSelfEntryExempt(t *testing.T) {
	routes := newFakeRoutes()
	tb := New(3, routes)
	tb.InsertSelf(0, 0)

	tb.Purge(1000, 30)
	assert.True(t, tb.HasRoot(0))
	assert.Len(t, tb.Entries(0), 1)
}

func TestRefreshSelf(t *testing.T) {
	tb := New(3, newFakeRoutes())
	tb.InsertSelf(0, 0)
	tb.RefreshSelf(0, 50)

	entries := tb.Entries(0)
	require.Len(t, entries, 1)
	assert.Equal(t, 50, entries[0].LastRefresh)
}

func TestHandleData_DiscardsUnknownRoot(t *testing.T) {
	tb := New(3, newFakeRoutes())
	deliver, _, ok := tb.HandleData(wire.Data{Sender: 1, Root: 0, Payload: "hi"})
	assert.False(t, deliver)
	assert.False(t, ok)
}

func TestHandleData_DiscardsWrongParent(t *testing.T) {
	routes := newFakeRoutes()
	routes.prevHop[0] = 2
	tb := New(3, routes)
	tb.HandleJoin(wire.Join{Receiver: 3, Root: 0, Parent: 3, NextHop: 3}, 0)

	deliver, _, ok := tb.HandleData(wire.Data{Sender: 9, Root: 0, Payload: "hi"})
	assert.False(t, deliver)
	assert.False(t, ok)
}

func TestHandleData_DeliversToSelf(t *testing.T) {
	routes := newFakeRoutes()
	routes.prevHop[0] = 2
	tb := New(3, routes)
	tb.InsertSelf(0, 0)

	deliver, _, ok := tb.HandleData(wire.Data{Sender: 2, Root: 0, Payload: "hi"})
	assert.True(t, deliver)
	assert.False(t, ok, "sole entry is self, nothing to forward")
}

func TestHandleData_ForwardsToOtherReceivers(t *testing.T) {
	routes := newFakeRoutes()
	routes.prevHop[0] = 2
	tb := New(3, routes)
	tb.HandleJoin(wire.Join{Receiver: 7, Root: 0, Parent: 3, NextHop: 3}, 0)

	deliver, fwd, ok := tb.HandleData(wire.Data{Sender: 2, Root: 0, Payload: "hi"})
	assert.False(t, deliver)
	require.True(t, ok)
	assert.Equal(t, wire.Data{Sender: 3, Root: 0, Payload: "hi"}, fwd)
}
