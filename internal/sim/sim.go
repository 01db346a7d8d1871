// Package sim implements the main discrete-event loop of spec §4.9: a
// min-heap-backed event queue, the warm-up/terminate/progress lifecycle,
// and the metrics sink a replication reports through at the end.
package sim

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/ccicconetti/qnetsim/internal/metrics"
	"github.com/ccicconetti/qnetsim/internal/network"
)

// progressStepPercent is the granularity of Progress events (spec §4.9
// step 3: "schedule Progress(p+1) at duration/100 later").
const progressStepPercent = 100

// Output is everything one replication reports once its main loop stops
// at ExperimentEnd (spec §4.9 step 5).
type Output struct {
	LogicalTopologyFound bool
	Metrics              metrics.Results
}

// Simulation runs one replication to completion: single-threaded,
// cooperative, deterministic given its seed (spec §5). It owns the event
// queue, the Network, and the metrics Sink for its own replication only.
type Simulation struct {
	queue *event.Queue
	net   *network.Network
	sink  *metrics.Sink
	log   *logrus.Entry

	durationNs uint64
	warmupNs   uint64

	logicalTopologyFound bool
}

// New returns a Simulation ready to Run. logicalTopologyFound records
// whether logtopo.Construct succeeded for this replication's seed (spec
// §7: a failed construction still runs, reporting
// logical_topology_found=0 and generating no network events — callers
// pass a Network with no generators/edges in that case).
func New(net *network.Network, durationNs, warmupNs uint64, logicalTopologyFound bool, log *logrus.Entry) *Simulation {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Simulation{
		queue:                event.NewQueue(),
		net:                  net,
		sink:                 metrics.NewSink(),
		log:                  log,
		durationNs:           durationNs,
		warmupNs:             warmupNs,
		logicalTopologyFound: logicalTopologyFound,
	}
}

// Run executes the main loop of spec §4.9 to completion and returns the
// finalized Output.
func (s *Simulation) Run() Output {
	start := time.Now()

	s.queue.PushAt(event.Event{Kind: event.WarmupPeriodEnd}, s.warmupNs)
	s.queue.PushAt(event.Event{Kind: event.ExperimentEnd}, s.durationNs)
	s.queue.PushAt(event.Event{Kind: event.Progress, ProgressPct: 0}, 0)

	if s.logicalTopologyFound {
		initEvents, initSamples := s.net.Initial()
		for _, ev := range initEvents {
			s.queue.PushAt(ev, ev.Time+ev.Delay)
		}
		for _, smp := range initSamples {
			s.sink.RecordSample(0, metrics.Sample(smp))
		}
	}

	for {
		ev, ok := s.queue.Pop()
		if !ok {
			break
		}
		s.sink.IncEventCount()
		s.sink.ObserveQueueLen(ev.Time, s.queue.Len())

		if s.dispatch(ev) {
			break
		}
	}

	s.sink.SetOneTime("logical_topology_found", boolToFloat(s.logicalTopologyFound))
	s.sink.SetOneTime("execution_time", time.Since(start).Seconds())

	return Output{
		LogicalTopologyFound: s.logicalTopologyFound,
		Metrics:              s.sink.Results(s.warmupNs, s.durationNs),
	}
}

// dispatch handles one popped event and reports whether the main loop
// should terminate (spec §4.9 step 3).
func (s *Simulation) dispatch(ev event.Event) (terminate bool) {
	switch ev.Kind {
	case event.WarmupPeriodEnd:
		s.sink.EnableCollection()
	case event.ExperimentEnd:
		return true
	case event.Progress:
		s.log.Infof("progress: %d%%", ev.ProgressPct)
		if ev.ProgressPct < progressStepPercent {
			s.queue.PushAfter(event.Event{Kind: event.Progress, ProgressPct: ev.ProgressPct + 1}, s.durationNs/progressStepPercent)
		}
	case event.AppEvent, event.OsEvent, event.NodeEvent:
		evs, samples := s.net.Dispatch(ev.Time, ev)
		for _, next := range evs {
			s.queue.PushAfter(next, next.Delay)
		}
		for _, smp := range samples {
			s.sink.RecordSample(ev.Time, metrics.Sample(smp))
		}
	}
	return false
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
