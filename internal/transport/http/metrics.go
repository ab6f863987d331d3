package httptransport

import "expvar"

var (
	metricIdentitiesCreated = expvar.NewInt("http_identities_created_total")

	metricSSEConnectionsTotal  = expvar.NewInt("table_sse_connections_total")
	metricSSEConnectionsActive = expvar.NewInt("table_sse_connections_active")

	metricActionQueriesTotal  = expvar.NewInt("action_history_query_total")
	metricActionQueriesErrors = expvar.NewInt("action_history_query_errors_total")
)
