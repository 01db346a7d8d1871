// Package metrics implements the simulator's metrics sink (spec §2, §6):
// three one-time scalars, per-metric scalar averages, a time-weighted
// average for the event queue length, simple counts, and tagged
// time-series samples, each destined for its own CSV sink (package
// output).
package metrics

import "sort"

// Sample is one metric observation emitted by a Node or Application
// handler: a metric Name, an ordered set of string Labels identifying the
// series (e.g. node id, peer id, hop count), and a Value.
type Sample struct {
	Name   string
	Labels []string
	Value  float64
}

// Point is one recorded (time, value) observation of a tagged series,
// keyed by the same Labels as the Sample it came from.
type Point struct {
	Labels      []string
	TimeSeconds float64
	Value       float64
}

// average accumulates a running mean incrementally (Welford's running
// sum form is unnecessary here: spec only requires a final mean, and
// samples are float64 already within a well-behaved range).
type average struct {
	sum   float64
	count uint64
}

func (a *average) observe(v float64) {
	a.sum += v
	a.count++
}

func (a average) mean() float64 {
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

// Sink collects every metric emitted during one replication. It is owned
// by exactly one Simulation (spec §3 ownership rules) and is not safe for
// concurrent use; each replication's goroutine owns its own Sink.
type Sink struct {
	collecting bool

	oneTime map[string]float64
	counts  map[string]uint64
	avgs    map[string]*average
	series  map[string][]Point

	// queueLen tracks the time-weighted average of event_queue_len (spec
	// §4.9 step 2): accumulated as a running integral, only while
	// collecting is true, so that warm-up activity never contributes
	// (spec §8 scenario 6).
	queueLenSum    float64
	queueLenLast   int
	queueLenLastAt uint64
	queueLenArmed  bool
}

// NewSink returns an empty Sink with collection disabled (warm-up mode).
func NewSink() *Sink {
	return &Sink{
		oneTime: make(map[string]float64),
		counts:  make(map[string]uint64),
		avgs:    make(map[string]*average),
		series:  make(map[string][]Point),
	}
}

// EnableCollection is called once, at WarmupPeriodEnd, after which every
// subsequent RecordSample/ObserveQueueLen/IncCount call is retained.
func (s *Sink) EnableCollection() {
	s.collecting = true
	s.queueLenArmed = false
}

// Collecting reports whether warm-up has ended.
func (s *Sink) Collecting() bool { return s.collecting }

// SetOneTime records a one-time scalar (logical_topology_found,
// num_events, execution_time); these are never gated by warm-up, since
// spec §8 scenario 6 says num_events "counts all events including
// warm-up".
func (s *Sink) SetOneTime(name string, value float64) {
	s.oneTime[name] = value
}

// IncEventCount increments the num_events one-time scalar by one; called
// by the simulation main loop on every popped event, warm-up included.
func (s *Sink) IncEventCount() {
	s.oneTime["num_events"]++
}

// IncCount increments a named counter by delta, subject to warm-up
// gating like any other collected metric.
func (s *Sink) IncCount(name string, delta uint64) {
	if !s.collecting {
		return
	}
	s.counts[name] += delta
}

// RecordSample folds one handler-emitted Sample into its running average
// and appends it to its tagged time series; a sample recorded before
// warm-up ends is dropped from both.
func (s *Sink) RecordSample(nowNs uint64, sample Sample) {
	if !s.collecting {
		return
	}
	a, ok := s.avgs[sample.Name]
	if !ok {
		a = &average{}
		s.avgs[sample.Name] = a
	}
	a.observe(sample.Value)

	s.series[sample.Name] = append(s.series[sample.Name], Point{
		Labels:      sample.Labels,
		TimeSeconds: float64(nowNs) / 1e9,
		Value:       sample.Value,
	})
}

// ObserveQueueLen folds one event_queue_len observation into the
// time-weighted average, integrating only over the collecting window
// (spec §4.9 step 2, §8 scenario 6). Called once per popped event with
// the queue length immediately after the pop.
func (s *Sink) ObserveQueueLen(nowNs uint64, length int) {
	if !s.collecting {
		s.queueLenArmed = false
		return
	}
	if s.queueLenArmed {
		s.queueLenSum += float64(s.queueLenLast) * float64(nowNs-s.queueLenLastAt)
	}
	s.queueLenLast = length
	s.queueLenLastAt = nowNs
	s.queueLenArmed = true
}

// closeQueueLenIntegral folds in the final segment of the time-weighted
// integral up to endNs, so Results reflects observations up to the
// experiment's end even though no further ObserveQueueLen call occurs
// after the last popped event.
func (s *Sink) closeQueueLenIntegral(endNs uint64) {
	if s.queueLenArmed && endNs > s.queueLenLastAt {
		s.queueLenSum += float64(s.queueLenLast) * float64(endNs-s.queueLenLastAt)
		s.queueLenLastAt = endNs
	}
}

// Results is the finalized, read-only view of everything a Sink
// collected, ready for package output to render as CSV.
type Results struct {
	OneTime     map[string]float64
	Average     map[string]float64
	TimeAverage map[string]float64
	Count       map[string]uint64
	Series      map[string][]Point
}

// Results computes final averages (including the time-weighted
// event_queue_len average, using collectStartNs..collectEndNs as the
// integration span) and returns an immutable snapshot.
func (s *Sink) Results(collectStartNs, collectEndNs uint64) Results {
	s.closeQueueLenIntegral(collectEndNs)

	oneTime := make(map[string]float64, len(s.oneTime))
	for k, v := range s.oneTime {
		oneTime[k] = v
	}

	avg := make(map[string]float64, len(s.avgs))
	for k, a := range s.avgs {
		avg[k] = a.mean()
	}

	timeAvg := make(map[string]float64)
	if span := collectEndNs - collectStartNs; span > 0 {
		timeAvg["event_queue_len"] = s.queueLenSum / float64(span)
	}

	counts := make(map[string]uint64, len(s.counts))
	for k, v := range s.counts {
		counts[k] = v
	}

	series := make(map[string][]Point, len(s.series))
	for k, pts := range s.series {
		cp := make([]Point, len(pts))
		copy(cp, pts)
		series[k] = cp
	}

	return Results{OneTime: oneTime, Average: avg, TimeAverage: timeAvg, Count: counts, Series: series}
}

// SeriesNames returns every recorded series' metric name, sorted, for
// deterministic CSV file enumeration.
func (r Results) SeriesNames() []string {
	names := make([]string, 0, len(r.Series))
	for k := range r.Series {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
