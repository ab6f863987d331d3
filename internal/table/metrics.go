package table

import "expvar"

var (
	metricTableCommands      = expvar.NewInt("table_commands_total")
	metricTableCommandPanics = expvar.NewInt("table_command_panics_total")
	metricSeatsTaken         = expvar.NewInt("table_seats_taken_total")
	metricActionsApplied     = expvar.NewInt("table_actions_applied_total")
	metricTimeoutActions     = expvar.NewInt("table_timeout_actions_total")
	metricHandsStarted       = expvar.NewInt("table_hands_started_total")
)
