package lobby

import "expvar"

var (
	metricConnects     = expvar.NewInt("lobby_connects_total")
	metricSupersedes   = expvar.NewInt("lobby_connections_superseded_total")
	metricGraceExpired = expvar.NewInt("lobby_reconnect_grace_expired_total")
)
