package notify

import "expvar"

var (
	metricMessagesSent    = expvar.NewInt("notify_messages_sent_total")
	metricMessagesDropped = expvar.NewInt("notify_messages_dropped_total")
	metricSSEDropped      = expvar.NewInt("notify_sse_events_dropped_total")
)
