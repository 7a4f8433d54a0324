package raft

import "github.com/prometheus/client_golang/prometheus"

// metrics bundles the Prometheus collectors a Node reports on. NewNode
// registers these only against Config.Registerer when one is supplied
// (cmd/raftd passes its own prometheus.NewRegistry()); with none, nothing
// is registered, so running several nodes in one test binary doesn't panic
// on duplicate registration.
type metrics struct {
	term          prometheus.Gauge
	role          *prometheus.GaugeVec
	commitIndex   prometheus.Gauge
	logLength     prometheus.Gauge
	elections     prometheus.Counter
	votesGranted  prometheus.Counter
	votesDenied   prometheus.Counter
	heartbeatSent prometheus.Counter
	appendRecv    prometheus.Counter
	stepDowns     prometheus.Counter
}

func newMetrics(id string) *metrics {
	labels := prometheus.Labels{"node": id}
	return &metrics{
		term: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "raft_current_term",
			Help:        "Current Raft term as observed by this node.",
			ConstLabels: labels,
		}),
		role: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "raft_role",
			Help:        "1 if this node currently holds the labeled role, 0 otherwise.",
			ConstLabels: labels,
		}, []string{"role"}),
		commitIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "raft_commit_index",
			Help:        "Highest log index known committed.",
			ConstLabels: labels,
		}),
		logLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "raft_log_length",
			Help:        "Number of entries in the local log.",
			ConstLabels: labels,
		}),
		elections: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "raft_elections_started_total",
			Help:        "Number of elections this node has started as a Candidate.",
			ConstLabels: labels,
		}),
		votesGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "raft_votes_granted_total",
			Help:        "Number of RequestVote RPCs this node has granted.",
			ConstLabels: labels,
		}),
		votesDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "raft_votes_denied_total",
			Help:        "Number of RequestVote RPCs this node has denied.",
			ConstLabels: labels,
		}),
		heartbeatSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "raft_heartbeats_sent_total",
			Help:        "Number of AppendEntries rounds this node has issued as Leader.",
			ConstLabels: labels,
		}),
		appendRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "raft_append_entries_received_total",
			Help:        "Number of AppendEntries RPCs this node has received.",
			ConstLabels: labels,
		}),
		stepDowns: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "raft_step_downs_total",
			Help:        "Number of times this node has stepped down to Follower.",
			ConstLabels: labels,
		}),
	}
}

// collectors returns every collector owned by m, for bulk registration.
func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.term, m.role, m.commitIndex, m.logLength,
		m.elections, m.votesGranted, m.votesDenied,
		m.heartbeatSent, m.appendRecv, m.stepDowns,
	}
}

func (m *metrics) setRole(r Role) {
	for _, candidate := range []Role{Follower, Candidate, Leader} {
		v := 0.0
		if candidate == r {
			v = 1.0
		}
		m.role.WithLabelValues(candidate.String()).Set(v)
	}
}
