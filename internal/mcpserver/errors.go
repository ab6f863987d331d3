package mcpserver

import (
	"errors"
	"fmt"

	appidentity "holdem-tables/internal/app/identity"
	apppublic "holdem-tables/internal/app/public"
	"holdem-tables/internal/session"

	"github.com/mark3labs/mcp-go/mcp"
)

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

func toolError(code, message string) *mcp.CallToolResult {
	result := mcp.NewToolResultStructured(
		map[string]any{
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
		fmt.Sprintf("%s: %s", code, message),
	)
	result.IsError = true
	return result
}

func mapDomainError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return toolError("internal_error", "unknown error")
	case errors.Is(err, apppublic.ErrInvalidRequest), errors.Is(err, appidentity.ErrInvalidRequest):
		return toolError("invalid_request", err.Error())
	case errors.Is(err, session.ErrTableNotFound), errors.Is(err, session.ErrIdentityNotFound):
		return toolError("not_found", err.Error())
	default:
		return toolError(session.Code(err), session.Message(err))
	}
}
