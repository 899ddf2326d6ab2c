package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sphack"

// Registry is the process-wide registry served on /metrics.
var Registry = prometheus.NewRegistry()

var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// RateLimitRejections counts requests refused by the rate guard.
var RateLimitRejections = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limit_rejections_total",
		Help:      "Total number of requests rejected by the per-fingerprint rate limiter",
	},
)

var rateLimitSize atomic.Pointer[func() int]

// RateLimitTrackedClients reports how many fingerprints the rate limiter
// holds in the current window.
var RateLimitTrackedClients = promauto.With(Registry).NewGaugeFunc(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rate_limit_tracked_clients",
		Help:      "Number of fingerprints counted in the current rate limit window",
	},
	func() float64 {
		if size := rateLimitSize.Load(); size != nil {
			return float64((*size)())
		}
		return 0
	},
)

// TrackRateLimiter points the tracked-clients gauge at size.
func TrackRateLimiter(size func() int) {
	rateLimitSize.Store(&size)
}

// ProcedureRejections counts guard and handler rejections per procedure.
var ProcedureRejections = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "procedure_rejections_total",
		Help:      "Total number of rejected procedure calls",
	},
	[]string{"procedure", "code"}, // code: BAD_REQUEST|UNAUTHORIZED|NOT_FOUND|TOO_MANY_REQUESTS|INTERNAL_SERVER_ERROR
)

var CaptchaVerifications = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "captcha_verifications_total",
		Help:      "Total number of captcha verifications by result",
	},
	[]string{"result"}, // result: ok|expired|wrong
)

var MailSent = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mail_sent_total",
		Help:      "Total number of outbound mail attempts by status",
	},
	[]string{"status"}, // status: ok|no_recipient|transport_error
)

var Submissions = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "submissions_total",
		Help:      "Total number of stored public submissions",
	},
	[]string{"kind"}, // kind: feedback|application
)

// Init registers runtime collectors and sets version information.
func Init(version, commit, buildDate string) {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
