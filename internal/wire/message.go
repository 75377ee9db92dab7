// Package wire implements the five-message codec (component C5 of the
// node engine): it serialises and parses HELLO, IN-DISTANCE, DVECTOR,
// JOIN, and DATA lines exchanged between nodes.
package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MaxNodes bounds the node identifier space and the length of every
// distance vector carried on the wire.
const MaxNodes = 10

// Unreachable is the sentinel distance, distinct from any value in
// [0, MaxNodes). Comparisons must go through Distance.Infinite rather
// than arithmetic on the sentinel value itself.
const Unreachable Distance = -1

// infToken is the literal wire token for Unreachable, chosen instead of a
// large numeric sentinel so it can never be confused with a decimal hop
// count (spec.md's "99999 vs -1" ambiguity across drafts).
const infToken = "INF"

// NodeID identifies a node in [0, MaxNodes).
type NodeID int

func (n NodeID) String() string { return strconv.Itoa(int(n)) }

// Valid reports whether n falls inside the configured node space.
func (n NodeID) Valid() bool { return n >= 0 && int(n) < MaxNodes }

// Distance is a hop count, or Unreachable.
type Distance int

// Infinite reports whether d represents the Unreachable sentinel.
func (d Distance) Infinite() bool { return d == Unreachable }

func (d Distance) String() string {
	if d.Infinite() {
		return infToken
	}
	return strconv.Itoa(int(d))
}

func parseDistance(tok string) (Distance, error) {
	if tok == infToken {
		return Unreachable, nil
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.Wrapf(err, "distance token %q", tok)
	}
	if v < 0 || v >= MaxNodes {
		return 0, errors.Errorf("distance %d outside [0, %d)", v, MaxNodes)
	}
	return Distance(v), nil
}

func parseNodeID(tok string) (NodeID, error) {
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.Wrapf(err, "node id token %q", tok)
	}
	id := NodeID(v)
	if !id.Valid() {
		return 0, errors.Errorf("node id %d outside [0, %d)", v, MaxNodes)
	}
	return id, nil
}

// Kind tags the variant carried by a Message.
type Kind int

const (
	KindHello Kind = iota
	KindInDistance
	KindDVector
	KindJoin
	KindData
)

// Message is the tagged variant every wire line decodes into. Dispatch is
// a switch over the five variant types, never dynamic string matching
// past the first token.
type Message interface {
	Kind() Kind
	fmt.Stringer
}

// Hello announces direct neighbor liveness.
type Hello struct {
	Sender NodeID
}

func (Hello) Kind() Kind { return KindHello }
func (h Hello) String() string {
	return fmt.Sprintf("hello %s", h.Sender)
}

// InDistance carries a node's complete in-distance vector.
type InDistance struct {
	Sender    NodeID
	Distances [MaxNodes]Distance
}

func (InDistance) Kind() Kind { return KindInDistance }
func (m InDistance) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "in-distance %s", m.Sender)
	for _, d := range m.Distances {
		fmt.Fprintf(&b, " %s", d)
	}
	return b.String()
}

// DVector floods an origin's out-distance vector plus its direct
// in-neighbor list, reverse-path-forwarded hop by hop.
type DVector struct {
	Sender      NodeID
	Origin      NodeID
	Distances   [MaxNodes]Distance
	InNeighbors []NodeID
}

func (DVector) Kind() Kind { return KindDVector }
func (m DVector) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "dvector %s %s", m.Sender, m.Origin)
	for _, d := range m.Distances {
		fmt.Fprintf(&b, " %s", d)
	}
	b.WriteString(" in-neighbors")
	for _, n := range m.InNeighbors {
		fmt.Fprintf(&b, " %s", n)
	}
	return b.String()
}

// Join is a reverse-path tree refresh. Receiver is the original requester
// (RID), Root is the multicast group's sender (SID), Parent is the fixed
// logical next hop toward Root along the reverse tree (PID), and NextHop
// is the wire-level addressee for this particular hop (NID) — it changes
// every time an intermediate node re-emits the message on its way to
// Parent.
type Join struct {
	Receiver NodeID
	Root     NodeID
	Parent   NodeID
	NextHop  NodeID
}

func (Join) Kind() Kind { return KindJoin }
func (m Join) String() string {
	return fmt.Sprintf("join %s %s %s %s", m.Receiver, m.Root, m.Parent, m.NextHop)
}

// Data carries an application payload from a multicast root down its RPF
// tree. Sender is replaced with the forwarding node's own id
// at every hop so a child always sees its immediate parent.
type Data struct {
	Sender  NodeID
	Root    NodeID
	Payload string
}

func (Data) Kind() Kind { return KindData }
func (m Data) String() string {
	return fmt.Sprintf("data %s %s %s", m.Sender, m.Root, m.Payload)
}

// ErrMalformed wraps any parse failure; callers log and drop per spec.md §7.
type ErrMalformed struct {
	Line  string
	Cause error
}

func (e *ErrMalformed) Error() string {
	return fmt.Sprintf("malformed message %q: %s", e.Line, e.Cause)
}

func (e *ErrMalformed) Unwrap() error { return e.Cause }

func malformed(line string, cause error) error {
	return &ErrMalformed{Line: line, Cause: cause}
}

// Parse decodes a single wire line into its tagged Message. Unknown first
// tokens and any structural mismatch are reported as *ErrMalformed.
func Parse(line string) (Message, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, malformed(line, errors.New("empty line"))
	}

	switch fields[0] {
	case "hello":
		return parseHello(line, fields)
	case "in-distance":
		return parseInDistance(line, fields)
	case "dvector":
		return parseDVector(line, fields)
	case "join":
		return parseJoin(line, fields)
	case "data":
		return parseData(line, fields)
	default:
		return nil, malformed(line, errors.Errorf("unknown discriminator %q", fields[0]))
	}
}

func parseHello(line string, fields []string) (Message, error) {
	if len(fields) != 2 {
		return nil, malformed(line, errors.New("hello wants 1 field"))
	}
	sender, err := parseNodeID(fields[1])
	if err != nil {
		return nil, malformed(line, err)
	}
	return Hello{Sender: sender}, nil
}

func parseDistanceVector(line string, fields []string) ([MaxNodes]Distance, error) {
	var out [MaxNodes]Distance
	if len(fields) != MaxNodes {
		return out, malformed(line, errors.Errorf("want %d distances, got %d", MaxNodes, len(fields)))
	}
	for i, tok := range fields {
		d, err := parseDistance(tok)
		if err != nil {
			return out, malformed(line, err)
		}
		out[i] = d
	}
	return out, nil
}

func parseInDistance(line string, fields []string) (Message, error) {
	if len(fields) != 2+MaxNodes {
		return nil, malformed(line, errors.Errorf("in-distance wants %d fields", 2+MaxNodes))
	}
	sender, err := parseNodeID(fields[1])
	if err != nil {
		return nil, malformed(line, err)
	}
	dist, err := parseDistanceVector(line, fields[2:2+MaxNodes])
	if err != nil {
		return nil, err
	}
	return InDistance{Sender: sender, Distances: dist}, nil
}

// parseDVector recognises the "in-neighbors" keyword structurally instead
// of slicing at fixed offsets, per spec.md §9's note on the reference
// implementation's off-by-one: this tolerates any MaxNodes.
func parseDVector(line string, fields []string) (Message, error) {
	if len(fields) < 3+MaxNodes {
		return nil, malformed(line, errors.New("dvector too short"))
	}
	sender, err := parseNodeID(fields[1])
	if err != nil {
		return nil, malformed(line, err)
	}
	origin, err := parseNodeID(fields[2])
	if err != nil {
		return nil, malformed(line, err)
	}
	dist, err := parseDistanceVector(line, fields[3:3+MaxNodes])
	if err != nil {
		return nil, err
	}
	rest := fields[3+MaxNodes:]
	if len(rest) == 0 || rest[0] != "in-neighbors" {
		return nil, malformed(line, errors.New("missing in-neighbors keyword"))
	}
	var neighbors []NodeID
	for _, tok := range rest[1:] {
		id, err := parseNodeID(tok)
		if err != nil {
			return nil, malformed(line, err)
		}
		neighbors = append(neighbors, id)
	}
	return DVector{Sender: sender, Origin: origin, Distances: dist, InNeighbors: neighbors}, nil
}

func parseJoin(line string, fields []string) (Message, error) {
	if len(fields) != 5 {
		return nil, malformed(line, errors.New("join wants 4 fields"))
	}
	ids := make([]NodeID, 4)
	for i, tok := range fields[1:] {
		id, err := parseNodeID(tok)
		if err != nil {
			return nil, malformed(line, err)
		}
		ids[i] = id
	}
	return Join{Receiver: ids[0], Root: ids[1], Parent: ids[2], NextHop: ids[3]}, nil
}

func parseData(line string, fields []string) (Message, error) {
	if len(fields) < 4 {
		return nil, malformed(line, errors.New("data wants sender, root, and payload"))
	}
	sender, err := parseNodeID(fields[1])
	if err != nil {
		return nil, malformed(line, err)
	}
	root, err := parseNodeID(fields[2])
	if err != nil {
		return nil, malformed(line, err)
	}
	return Data{Sender: sender, Root: root, Payload: strings.Join(fields[3:], " ")}, nil
}
