// Package metrics exposes Prometheus counters for the login guard.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	attempts         *prometheus.CounterVec
	decisions        *prometheus.CounterVec
	lockouts         *prometheus.CounterVec
	unlocks          prometheus.Counter
	notifications    *prometheus.CounterVec
	retentionDeleted prometheus.Counter
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loginguard",
			Name:      "login_attempts_total",
			Help:      "Login attempts recorded, by outcome",
		}, []string{"outcome"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loginguard",
			Name:      "guard_decisions_total",
			Help:      "Lock decisions returned to the identity provider",
		}, []string{"allowed"}),
		lockouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loginguard",
			Name:      "lockouts_total",
			Help:      "Locks placed on identities, by origin",
		}, []string{"origin"}),
		unlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loginguard",
			Name:      "unlocks_total",
			Help:      "Administrator unlock actions",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "loginguard",
			Name:      "notifications_total",
			Help:      "Security notifications by event type and result",
		}, []string{"event", "result"}), // result: sent|failed|skipped|dropped
		retentionDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "loginguard",
			Name:      "retention_deleted_total",
			Help:      "Login attempt rows removed by the retention sweeper",
		}),
	}

	var err error
	if m.attempts, err = register(reg, m.attempts); err != nil {
		return nil, err
	}
	if m.decisions, err = register(reg, m.decisions); err != nil {
		return nil, err
	}
	if m.lockouts, err = register(reg, m.lockouts); err != nil {
		return nil, err
	}
	if m.unlocks, err = register(reg, m.unlocks); err != nil {
		return nil, err
	}
	if m.notifications, err = register(reg, m.notifications); err != nil {
		return nil, err
	}
	if m.retentionDeleted, err = register(reg, m.retentionDeleted); err != nil {
		return nil, err
	}
	return m, nil
}

// register returns the collector already registered under the same descriptor, if any
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) AttemptRecorded(outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Decision(allowed bool) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(strconv.FormatBool(allowed)).Inc()
}

func (m *Metrics) Locked(origin string) {
	if m == nil {
		return
	}
	m.lockouts.WithLabelValues(origin).Inc()
}

func (m *Metrics) Unlocked() {
	if m == nil {
		return
	}
	m.unlocks.Inc()
}

func (m *Metrics) Notification(event, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(event, result).Inc()
}

func (m *Metrics) RetentionDeleted(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.retentionDeleted.Add(float64(n))
}
