package ws

import "expvar"

var (
	metricWSConnectionsTotal  = expvar.NewInt("ws_connections_total")
	metricWSConnectionsActive = expvar.NewInt("ws_connections_active")
	metricWSMessagesIn        = expvar.NewInt("ws_messages_in_total")
	metricWSBadMessages       = expvar.NewInt("ws_bad_messages_total")
	metricWSCommandErrors     = expvar.NewInt("ws_command_errors_total")
)
