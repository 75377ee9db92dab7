package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dv(vals ...int) [MaxNodes]Distance {
	var out [MaxNodes]Distance
	for i, v := range vals {
		if v < 0 {
			out[i] = Unreachable
		} else {
			out[i] = Distance(v)
		}
	}
	return out
}

func TestHello_RoundTrip(t *testing.T) {
	h := Hello{Sender: 3}
	assert.Equal(t, "hello 3", h.String())

	msg, err := Parse(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, msg)
	assert.Equal(t, KindHello, msg.Kind())
}

func TestInDistance_RoundTrip(t *testing.T) {
	m := InDistance{Sender: 1, Distances: dv(0, 1, 2, -1, -1, -1, -1, -1, -1, -1)}
	line := m.String()
	assert.Equal(t, "in-distance 1 0 1 2 INF INF INF INF INF INF INF", line)

	got, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestDVector_RoundTrip(t *testing.T) {
	m := DVector{
		Sender:      2,
		Origin:      0,
		Distances:   dv(0, 1, 1, -1, -1, -1, -1, -1, -1, -1),
		InNeighbors: []NodeID{1, 2},
	}
	line := m.String()
	assert.Equal(t, "dvector 2 0 0 1 1 INF INF INF INF INF INF INF in-neighbors 1 2", line)

	got, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestDVector_EmptyNeighbors(t *testing.T) {
	m := DVector{Sender: 0, Origin: 0, Distances: dv(0)}
	got, err := Parse(m.String())
	require.NoError(t, err)
	d := got.(DVector)
	assert.Empty(t, d.InNeighbors)
}

func TestJoin_RoundTrip(t *testing.T) {
	m := Join{Receiver: 3, Root: 0, Parent: 2, NextHop: 1}
	line := m.String()
	assert.Equal(t, "join 3 0 2 1", line)

	got, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestData_RoundTrip_PreservesSpaces(t *testing.T) {
	m := Data{Sender: 1, Root: 0, Payload: "hi there world"}
	line := m.String()
	assert.Equal(t, "data 1 0 hi there world", line)

	got, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestParse_UnknownDiscriminator(t *testing.T) {
	_, err := Parse("bogus 1 2 3")
	require.Error(t, err)
	var me *ErrMalformed
	assert.ErrorAs(t, err, &me)
}

func TestParse_EmptyLine(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
}

func TestParse_InDistance_WrongArity(t *testing.T) {
	_, err := Parse("in-distance 1 0 1 2")
	require.Error(t, err)
}

func TestParse_DVector_MissingKeyword(t *testing.T) {
	line := "dvector 2 0 0 1 1 INF INF INF INF INF INF INF 1 2"
	_, err := Parse(line)
	require.Error(t, err)
}

func TestParse_NodeIDOutOfRange(t *testing.T) {
	_, err := Parse("hello 99")
	require.Error(t, err)
}

func TestParse_DistanceOutOfRange(t *testing.T) {
	bad := "in-distance 1 0 1 2 3 4 5 6 7 8 99"
	_, err := Parse(bad)
	require.Error(t, err)
}
