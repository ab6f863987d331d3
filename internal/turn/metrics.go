package turn

import "expvar"

var (
	metricTimersArmed   = expvar.NewInt("turn_timers_armed_total")
	metricTimersCleared = expvar.NewInt("turn_timers_cleared_total")
	metricTimersExpired = expvar.NewInt("turn_timers_expired_total")
)
