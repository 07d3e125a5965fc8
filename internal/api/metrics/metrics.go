// Package metrics defines and registers the custom Prometheus metrics of the
// auth API. Metrics are registered with the default registry at init time
// through promauto and exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "natours_auth"

// Result label values shared by the counters below.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
)

// LoginAttemptsTotal counts password logins.
// Label:
//   - result: "success", "failure" (bad credentials or input) or "error"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of password login attempts, by result.",
	},
	[]string{"result"},
)

// SignupsTotal counts signup requests.
var SignupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "signups_total",
		Help:      "Total number of signup requests, by result.",
	},
	[]string{"result"},
)

// TokenVerificationsTotal counts session token checks done by the access guard.
// Labels:
//   - guard: "protect" or "is_logged_in"
//   - result: "success" or "failure"
var TokenVerificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_verifications_total",
		Help:      "Total number of session token verifications, by guard and result.",
	},
	[]string{"guard", "result"},
)

// PasswordResetEmailsTotal counts forgot-password requests that reached delivery.
var PasswordResetEmailsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_reset_emails_total",
		Help:      "Total number of password reset emails, by result.",
	},
	[]string{"result"},
)

// WelcomeEmailsTotal counts background welcome email deliveries.
var WelcomeEmailsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "welcome_emails_total",
		Help:      "Total number of welcome email deliveries, by result.",
	},
	[]string{"result"},
)

// OAuthLoginsTotal counts OAuth callback outcomes.
var OAuthLoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oauth_logins_total",
		Help:      "Total number of OAuth logins, by provider and result.",
	},
	[]string{"provider", "result"},
)

// RateLimitedTotal counts requests rejected by the auth rate limiter.
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter, by scope.",
	},
	[]string{"scope"},
)

// Result maps an error to a result label value.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
