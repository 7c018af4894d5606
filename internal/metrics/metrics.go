package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Set carries the per-run counters on a private registry. The process is a
// batch job, so instead of exposing an endpoint the registry is pushed to a
// Pushgateway when one is configured, and dumped to the log otherwise.
type Set struct {
	reg *prometheus.Registry

	Tracked        prometheus.Gauge
	Discovered     prometheus.Counter
	Updates        prometheus.Counter
	Delivered      prometheus.Counter
	LookupFailures prometheus.Counter
	NotifyFailures prometheus.Counter
}

func NewSet() *Set {
	s := &Set{
		reg: prometheus.NewRegistry(),
		Tracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hytrack_waybills_tracked",
			Help: "Waybills in the tracked set at the end of the run, delivered included.",
		}),
		Discovered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hytrack_discovered_total",
			Help: "New waybills merged from inbound mail.",
		}),
		Updates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hytrack_updates_total",
			Help: "Status changes that triggered an update notification.",
		}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hytrack_delivered_total",
			Help: "Waybills that reached the terminal delivered state this run.",
		}),
		LookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hytrack_lookup_failures_total",
			Help: "Status lookups that failed and were deferred to the next run.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hytrack_notify_failures_total",
			Help: "Notifications that could not be rendered or sent.",
		}),
	}
	s.reg.MustRegister(s.Tracked, s.Discovered, s.Updates, s.Delivered, s.LookupFailures, s.NotifyFailures)
	return s
}

// Push sends the registry to a Pushgateway under the job name "hytrack".
func (s *Set) Push(url string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := push.New(url, "hytrack").
		Gatherer(s.reg).
		Client(&http.Client{Timeout: timeout})
	if err := p.Push(); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// Snapshot returns a one-line summary of all counters for end-of-run logging.
func (s *Set) Snapshot() string {
	fams, err := s.reg.Gather()
	if err != nil {
		return ""
	}
	var out []string
	for _, mf := range fams {
		for _, m := range mf.GetMetric() {
			v := 0.0
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			}
			out = append(out, fmt.Sprintf("%s=%g", mf.GetName(), v))
		}
	}
	sort.Strings(out)
	return strings.Join(out, " ")
}
