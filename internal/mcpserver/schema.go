package mcpserver

const (
	defaultActionsLimit = 200
	maxActionsLimit     = 500
)

func clampLimit(limit, maxLimit int) int {
	if limit <= 0 {
		limit = defaultActionsLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
