package lockmgr

import (
	"github.com/VictoriaMetrics/metrics"
)

// managerMetrics groups the counters of one manager. Each manager owns its own set,
// so several managers can live in one process.
type managerMetrics struct {
	set *metrics.Set

	localAwards     *metrics.Counter
	serverRequests  *metrics.Counter
	recalls         *metrics.Counter
	deferredRecalls *metrics.Counter
	recallCommits   *metrics.Counter
	flushes         *metrics.Counter
	collected       *metrics.Counter
}

func newManagerMetrics(records func() float64) *managerMetrics {
	set := metrics.NewSet()
	set.NewGauge("dlock_records", records)

	return &managerMetrics{
		set:             set,
		localAwards:     set.NewCounter("dlock_local_awards_total"),
		serverRequests:  set.NewCounter("dlock_server_requests_total"),
		recalls:         set.NewCounter("dlock_recalls_total"),
		deferredRecalls: set.NewCounter("dlock_recalls_deferred_total"),
		recallCommits:   set.NewCounter("dlock_recall_commits_total"),
		flushes:         set.NewCounter("dlock_flushes_total"),
		collected:       set.NewCounter("dlock_collected_total"),
	}
}
