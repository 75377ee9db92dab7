// Package engine implements component C1, the single-threaded
// cooperative tick driver that sequences neighbor liveness, unicast
// routing, multicast tree maintenance, and the I/O adapter in the fixed
// order spec.md §4.1 requires, adapted from the teacher's Node.Run.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kprusa/rpfmesh/internal/config"
	"github.com/kprusa/rpfmesh/internal/metrics"
	"github.com/kprusa/rpfmesh/internal/multicast"
	"github.com/kprusa/rpfmesh/internal/transport"
	"github.com/kprusa/rpfmesh/internal/unicast"
	"github.com/kprusa/rpfmesh/internal/wire"
)

const (
	helloPeriod   = 5
	dvectorPeriod = 5
	inDistPeriod  = 5
	joinPeriod    = 5
	dataPeriod    = 10
	expiry        = 30
)

// Engine owns one node's tables and drives them through spec.md §4.1's
// per-tick sequence against a transport.Stream.
type Engine struct {
	cfg    config.NodeConfig
	stream transport.Stream
	sinks  *transport.Sinks
	uni    *unicast.Table
	multi  *multicast.Table
	mx     *metrics.Metrics
	log    *logrus.Entry
	runID  uuid.UUID
}

// NewEngine builds an Engine for cfg. mx may be nil in tests that don't
// care about metrics assertions.
func NewEngine(cfg config.NodeConfig, stream transport.Stream, sinks *transport.Sinks, mx *metrics.Metrics, log *logrus.Entry) *Engine {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	runID := uuid.New()
	log = log.WithFields(logrus.Fields{"node_id": cfg.ID, "run_id": runID})

	uni := unicast.New(cfg.ID)
	multi := multicast.New(cfg.ID, uni)
	if cfg.Mode == config.ModeReceiver {
		multi.InsertSelf(cfg.ObservedSender, 0)
	}

	return &Engine{
		cfg:    cfg,
		stream: stream,
		sinks:  sinks,
		uni:    uni,
		multi:  multi,
		mx:     mx,
		log:    log,
		runID:  runID,
	}
}

// Unicast exposes the routing table for tests and metrics scraping.
func (e *Engine) Unicast() *unicast.Table { return e.uni }

// Multicast exposes the multicast table for tests.
func (e *Engine) Multicast() *multicast.Table { return e.multi }

// Run drives the engine to completion against a real tick clock, the
// production counterpart to Step, mirroring the teacher's Node.Run.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for tick := 0; tick < e.cfg.Duration; tick++ {
		select {
		case <-ctx.Done():
			e.log.Info("run cancelled before duration elapsed")
			return
		default:
		}
		e.Step(tick)
		if tick < e.cfg.Duration-1 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
	e.log.Info("run complete")
}

// Step executes one tick's worth of work, in the exact order spec.md
// §4.1 names. It is exported so tests and the in-memory Controller-driven
// simulation can advance every node's engine in lockstep without a real
// ticker.
func (e *Engine) Step(tick int) {
	if e.mx != nil {
		e.mx.Ticks.Inc()
	}

	if tick%helloPeriod == 0 {
		e.emit(wire.Hello{Sender: e.cfg.ID})
	}

	e.uni.Purge(tick, expiry)

	if tick%dvectorPeriod == 0 {
		e.emit(wire.DVector{
			Sender:      e.cfg.ID,
			Origin:      e.cfg.ID,
			Distances:   e.uni.OutVector(),
			InNeighbors: e.uni.DirectInNeighbors(),
		})
	}

	if tick%inDistPeriod == 0 {
		e.emit(wire.InDistance{Sender: e.cfg.ID, Distances: e.uni.InVector()})
	}

	if e.cfg.Mode == config.ModeReceiver {
		e.multi.RefreshSelf(e.cfg.ObservedSender, tick)
	}
	e.multi.Purge(tick, expiry)
	if tick%joinPeriod == 0 {
		for _, j := range e.multi.GenerateJoins() {
			e.emit(j)
		}
	}

	if e.cfg.Mode == config.ModeSender && tick%dataPeriod == 0 {
		e.emit(wire.Data{Sender: e.cfg.ID, Root: e.cfg.ID, Payload: e.cfg.SendString})
	}

	e.dispatchInbound(tick)
}

// emit serialises msg and appends it to the outbound stream.
func (e *Engine) emit(m wire.Message) {
	if err := e.stream.Append(m.String()); err != nil {
		e.log.WithError(err).Warn("failed to append outbound message after retries")
		if e.mx != nil {
			e.mx.MessagesDropped.WithLabelValues("write-failure").Inc()
		}
		return
	}
	if e.mx != nil {
		e.mx.MessagesSent.WithLabelValues(kindLabel(m.Kind())).Inc()
	}
}

func kindLabel(k wire.Kind) string {
	switch k {
	case wire.KindHello:
		return "hello"
	case wire.KindInDistance:
		return "in-distance"
	case wire.KindDVector:
		return "dvector"
	case wire.KindJoin:
		return "join"
	case wire.KindData:
		return "data"
	default:
		return "unknown"
	}
}

// dispatchInbound reads the batch of lines that arrived since the last
// tick and applies each, per spec.md §4.6.
func (e *Engine) dispatchInbound(tick int) {
	for _, line := range e.stream.ReadNew() {
		msg, err := wire.Parse(line)
		if err != nil {
			e.log.WithError(err).Warn("dropping malformed inbound message")
			if e.mx != nil {
				e.mx.MessagesDropped.WithLabelValues("malformed").Inc()
			}
			continue
		}
		e.dispatch(tick, msg)
	}
	if e.mx != nil {
		for _, root := range e.multi.Roots() {
			e.mx.MulticastEntries.WithLabelValues(root.String()).Set(float64(len(e.multi.Entries(root))))
		}
	}
}

func (e *Engine) dispatch(tick int, msg wire.Message) {
	switch m := msg.(type) {
	case wire.Hello:
		e.uni.HandleHello(m.Sender, tick)

	case wire.InDistance:
		e.uni.ApplyInDistance(m.Sender, m.Distances)

	case wire.DVector:
		if unicast.ReceivesFrom(e.cfg.ID, m.InNeighbors) {
			e.uni.ApplyOutDistance(m.Origin, m.Distances)
			e.uni.SetOutRefresh(m.Origin, tick)
		}
		if e.uni.ShouldFloodDVector(m.Sender, m.Origin) {
			fwd := m
			fwd.Sender = e.cfg.ID
			e.emit(fwd)
		}

	case wire.Join:
		if fwd, ok := e.multi.HandleJoin(m, tick); ok {
			e.emit(fwd)
		}

	case wire.Data:
		deliver, fwd, ok := e.multi.HandleData(m)
		if deliver {
			e.deliver(m)
		}
		if ok {
			e.emit(fwd)
		}
	}
}

// deliver writes a DATA payload to the per-root received sink.
func (e *Engine) deliver(m wire.Data) {
	if e.sinks == nil {
		return
	}
	w, err := e.sinks.Received(m.Root)
	if err != nil {
		e.log.WithError(err).Warn("failed to open received sink")
		return
	}
	if _, err := w.Write([]byte(m.Payload + "\n")); err != nil {
		e.log.WithError(err).Warn("failed to write received payload")
	}
}
