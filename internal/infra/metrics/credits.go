package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		purchasesTotal,
		creditsConsumedTotal,
		freeSessionsConsumedTotal,
		entitlementDeniedTotal,
		ledgersExpiredTotal,
		remainingCreditsGauge,
	)
}

var (
	purchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_purchases_total",
			Help: "Total number of confirmed plan purchases.",
		},
		[]string{"plan"},
	)

	creditsConsumedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_consumed_total",
			Help: "Total credits debited for interview sessions.",
		},
	)

	freeSessionsConsumedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "free_sessions_consumed_total",
			Help: "Total free interview sessions spent.",
		},
	)

	entitlementDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_denied_total",
			Help: "Entitlement checks that failed closed.",
		},
		[]string{"reason"}, // 'no_ledger', 'expired', 'insufficient'
	)

	ledgersExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credit_ledgers_expired_total",
			Help: "Ledgers swept by the expiry worker.",
		},
	)

	remainingCreditsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "credits_remaining_total",
			Help: "Sum of remaining credits across unexpired ledgers.",
		},
	)
)

func IncPurchase(planID string)          { purchasesTotal.WithLabelValues(planID).Inc() }
func AddCreditsConsumed(n int)           { creditsConsumedTotal.Add(float64(n)) }
func IncFreeSessionConsumed()            { freeSessionsConsumedTotal.Inc() }
func IncEntitlementDenied(reason string) { entitlementDeniedTotal.WithLabelValues(reason).Inc() }
func IncLedgersExpired(count int)        { ledgersExpiredTotal.Add(float64(count)) }
func SetRemainingCredits(n int64)        { remainingCreditsGauge.Set(float64(n)) }
