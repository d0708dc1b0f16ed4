// Package stats wires byte/packet counters for the inspection data plane
// into Prometheus, the Go analogue of the original's per-task and
// per-user "stats sink" abstraction (spec §3, §4.6). It follows the
// constructor/Collector shape of runZeroInc-sockstats's
// pkg/exporter.TCPInfoCollector: counters are created once at startup and
// registered against a prometheus.Registerer, then cheap label-scoped
// handles (*Sink) are handed out per flow.
package stats

import "github.com/prometheus/client_golang/prometheus"

// Sink accumulates bytes and packets transferred in one direction for one
// scope (a single flow's task-remote counters, or a user's aggregate
// counters). A nil *Sink is valid and discards everything, so callers that
// have no user-scoped sink configured can pass nil without a branch.
type Sink struct {
	bytes   prometheus.Counter
	packets prometheus.Counter
}

// AddBytes records n bytes transferred. Called once per successful chunk
// of I/O, never on a failed or partial read/write (spec §4.6).
func (s *Sink) AddBytes(n uint64) {
	if s == nil || s.bytes == nil || n == 0 {
		return
	}
	s.bytes.Add(float64(n))
}

// AddPacket records one datagram transferred (UDP ASSOCIATE relays only).
func (s *Sink) AddPacket() {
	if s == nil || s.packets == nil {
		return
	}
	s.packets.Inc()
}

// Sinks fans a single accounting event out to every sink in the slice: the
// task-remote sink plus zero or more user-scoped sinks (spec §4.6's "stats
// sink fan-out").
type Sinks []*Sink

func (s Sinks) AddBytes(n uint64) {
	for _, sink := range s {
		sink.AddBytes(n)
	}
}

func (s Sinks) AddPacket() {
	for _, sink := range s {
		sink.AddPacket()
	}
}

// Registry owns the CounterVecs backing every Sink this process hands out,
// labeled by direction ("client_to_upstream"/"upstream_to_client") and,
// for user-scoped counters, by user name.
type Registry struct {
	taskBytes   *prometheus.CounterVec
	taskPackets *prometheus.CounterVec
	userBytes   *prometheus.CounterVec
	userPackets *prometheus.CounterVec
}

// NewRegistry creates and registers the counter families against reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		taskBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpicore_task_bytes_total",
			Help: "Bytes transferred per inspected flow, by direction.",
		}, []string{"direction"}),
		taskPackets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpicore_task_packets_total",
			Help: "Datagrams relayed per inspected flow, by direction.",
		}, []string{"direction"}),
		userBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpicore_user_bytes_total",
			Help: "Bytes transferred per user, by direction.",
		}, []string{"user", "direction"}),
		userPackets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpicore_user_packets_total",
			Help: "Datagrams relayed per user, by direction.",
		}, []string{"user", "direction"}),
	}
	reg.MustRegister(r.taskBytes, r.taskPackets, r.userBytes, r.userPackets)
	return r
}

// TaskSink returns the task-remote sink for a direction.
func (r *Registry) TaskSink(direction string) *Sink {
	return &Sink{
		bytes:   r.taskBytes.WithLabelValues(direction),
		packets: r.taskPackets.WithLabelValues(direction),
	}
}

// UserSink returns the user-scoped sink for user in a direction. Callers
// with no authenticated user (anonymous flows) should skip calling this
// and just use the task sink.
func (r *Registry) UserSink(user, direction string) *Sink {
	return &Sink{
		bytes:   r.userBytes.WithLabelValues(user, direction),
		packets: r.userPackets.WithLabelValues(user, direction),
	}
}
