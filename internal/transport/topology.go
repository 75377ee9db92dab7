// Package transport supplies the controller and file/memory transport
// that the core protocol engine treats as an external collaborator
// (spec.md §1, §9). Adapted from the teacher's link-state model, keyed on
// logical ticks instead of wall-clock time.
package transport

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/kprusa/rpfmesh/internal/wire"
)

// LinkStatus is whether a directed link is available at a given tick.
type LinkStatus string

const (
	Up   LinkStatus = "UP"
	Down LinkStatus = "DOWN"
)

// LinkState is one scheduled change to a directed link, effective from
// Tick (inclusive) onward until superseded.
type LinkState struct {
	Tick   int
	Status LinkStatus
	From   wire.NodeID
	To     wire.NodeID
}

func (l LinkState) String() string {
	return fmt.Sprintf("%d %s %d %d", l.Tick, l.Status, l.From, l.To)
}

var idPattern = regexp.MustCompile(`^\d$`)

// ParseLinkState parses one line of the schedule grammar
// "<tick> <UP|DOWN> <from> <to>".
func ParseLinkState(line string) (LinkState, error) {
	fields := strings.Split(line, " ")
	if len(fields) != 4 {
		return LinkState{}, errors.Errorf("link state %q: want 4 fields, got %d", line, len(fields))
	}

	tick, err := strconv.Atoi(fields[0])
	if err != nil {
		return LinkState{}, errors.Wrapf(err, "link state %q: tick", line)
	}
	if tick < 0 {
		return LinkState{}, errors.Errorf("link state %q: tick must be >= 0", line)
	}

	var status LinkStatus
	switch LinkStatus(fields[1]) {
	case Up:
		status = Up
	case Down:
		status = Down
	default:
		return LinkState{}, errors.Errorf("link state %q: status must be UP or DOWN", line)
	}

	if !idPattern.MatchString(fields[2]) || !idPattern.MatchString(fields[3]) {
		return LinkState{}, errors.Errorf("link state %q: endpoints must be single digits", line)
	}
	from, _ := strconv.Atoi(fields[2])
	to, _ := strconv.Atoi(fields[3])

	return LinkState{Tick: tick, Status: status, From: wire.NodeID(from), To: wire.NodeID(to)}, nil
}

// link accumulates the schedule of one directed edge.
type link struct {
	states []LinkState
}

// isUp mirrors the teacher's inclusive-boundary scan: the most recent
// state at or before tick determines availability.
func (l *link) isUp(tick int) bool {
	up := false
	for _, s := range l.states {
		if tick < s.Tick {
			continue
		}
		up = s.Status == Up
	}
	return up
}

// Topology is the full directed link-state schedule for the simulated
// network, used only by the controller — the core engine never sees it.
type Topology struct {
	links map[wire.NodeID]map[wire.NodeID]*link
}

// NewTopology parses a schedule stream, one LinkState per line, in
// non-decreasing tick order.
func NewTopology(r io.ReadCloser) (*Topology, error) {
	defer r.Close()

	top := &Topology{links: make(map[wire.NodeID]map[wire.NodeID]*link)}
	scanner := bufio.NewScanner(r)
	lastTick := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ls, err := ParseLinkState(line)
		if err != nil {
			return nil, err
		}
		if ls.Tick < lastTick {
			return nil, errors.New("topology schedule: entries must be sorted by non-decreasing tick")
		}
		lastTick = ls.Tick

		dsts, ok := top.links[ls.From]
		if !ok {
			dsts = make(map[wire.NodeID]*link)
			top.links[ls.From] = dsts
		}
		l, ok := dsts[ls.To]
		if !ok {
			l = &link{}
			dsts[ls.To] = l
		}
		l.states = append(l.states, ls)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "topology schedule")
	}
	return top, nil
}

// IsUp reports whether the directed link from->to is available at tick.
func (t *Topology) IsUp(tick int, from, to wire.NodeID) bool {
	dsts, ok := t.links[from]
	if !ok {
		return false
	}
	l, ok := dsts[to]
	if !ok {
		return false
	}
	return l.isUp(tick)
}
