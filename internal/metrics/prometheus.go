package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MatchesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_matches_created_total",
		Help: "Matches written to the ledger by creation path",
	}, []string{"kind"})

	VIPCodesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_vip_codes_issued_total",
		Help: "VIP codes issued, bound to a match or legacy",
	}, []string{"kind"})

	VIPRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_vip_redemptions_total",
		Help: "VIP code redemption attempts by result",
	}, []string{"result"})

	InstantMatchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_instant_match_requests_total",
		Help: "Automatic instant match requests by result",
	}, []string{"result"})

	Notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_notifications_total",
		Help: "Notification sends by kind and result",
	}, []string{"kind", "result"})

	PaymentsVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_payments_verified_total",
		Help: "Payment verifications by result",
	}, []string{"result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_http_requests_total",
		Help: "HTTP requests by route pattern and status",
	}, []string{"route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "valentina_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valentina_job_runs_total",
		Help: "Background job runs by job and result",
	}, []string{"job", "result"})
)

func IncMatchCreated(kind string) {
	MatchesCreated.WithLabelValues(label(kind)).Inc()
}

func IncVIPCodeIssued(kind string) {
	VIPCodesIssued.WithLabelValues(label(kind)).Inc()
}

func IncVIPRedemption(result string) {
	VIPRedemptions.WithLabelValues(label(result)).Inc()
}

func IncInstantMatchRequest(result string) {
	InstantMatchRequests.WithLabelValues(label(result)).Inc()
}

func IncNotification(kind, result string) {
	Notifications.WithLabelValues(label(kind), label(result)).Inc()
}

func IncPaymentVerified(result string) {
	PaymentsVerified.WithLabelValues(label(result)).Inc()
}

func IncJobRun(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	JobRuns.WithLabelValues(label(job), result).Inc()
}

func ObserveHTTPRequest(route string, status int, duration time.Duration) {
	route = label(route)
	HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func label(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
