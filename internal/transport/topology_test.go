package transport

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kprusa/rpfmesh/internal/wire"
)

func TestParseLinkState(t *testing.T) {
	ls, err := ParseLinkState("3 UP 0 1")
	require.NoError(t, err)
	assert.Equal(t, LinkState{Tick: 3, Status: Up, From: 0, To: 1}, ls)
	assert.Equal(t, "3 UP 0 1", ls.String())
}

func TestParseLinkState_Errors(t *testing.T) {
	cases := []string{
		"3 UP 0",
		"x UP 0 1",
		"-1 UP 0 1",
		"3 SIDEWAYS 0 1",
		"3 UP 12 1",
	}
	for _, c := range cases {
		_, err := ParseLinkState(c)
		assert.Error(t, err, c)
	}
}

func TestLink_IsUp(t *testing.T) {
	reader := io.NopCloser(strings.NewReader("1 UP 0 1\n3 DOWN 0 1\n5 UP 0 1\n"))
	top, err := NewTopology(reader)
	require.NoError(t, err)

	assert.False(t, top.IsUp(0, 0, 1))
	assert.True(t, top.IsUp(1, 0, 1))
	assert.True(t, top.IsUp(2, 0, 1))
	assert.False(t, top.IsUp(3, 0, 1))
	assert.False(t, top.IsUp(4, 0, 1))
	assert.True(t, top.IsUp(5, 0, 1))
}

func TestTopology_UnknownLinkIsDown(t *testing.T) {
	reader := io.NopCloser(strings.NewReader("0 UP 0 1\n"))
	top, err := NewTopology(reader)
	require.NoError(t, err)
	assert.False(t, top.IsUp(10, wire.NodeID(5), wire.NodeID(6)))
}

func TestNewTopology_RejectsOutOfOrder(t *testing.T) {
	reader := io.NopCloser(strings.NewReader("5 UP 0 1\n1 DOWN 0 1\n"))
	_, err := NewTopology(reader)
	assert.Error(t, err)
}
