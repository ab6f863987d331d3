package store

import "expvar"

var (
	metricActionWrites      = expvar.NewInt("action_record_writes_total")
	metricActionWriteErrors = expvar.NewInt("action_record_write_errors_total")
)
