package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPublicTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_tables",
			mcp.WithDescription("List tables with blinds, buy-in range and seat counts"),
		),
		s.handleListTables,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_table_snapshot",
			mcp.WithDescription("Get seats, observers and public game state of a table"),
			mcp.WithNumber("table_id", mcp.Required(), mcp.Description("Table id")),
		),
		s.handleGetTableSnapshot,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_action_history",
			mcp.WithDescription("List recorded player actions of a table, newest hand first"),
			mcp.WithNumber("table_id", mcp.Required(), mcp.Description("Table id")),
			mcp.WithNumber("hand_number", mcp.Description("Optional hand number filter")),
			mcp.WithNumber("limit", mcp.Description("Page size, default 200, max 500")),
		),
		s.handleGetActionHistory,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"find_identity_location",
			mcp.WithDescription("Find where an identity is: lobby, observing a table or seated"),
			mcp.WithString("identity_id", mcp.Required(), mcp.Description("Identity id")),
		),
		s.handleFindIdentityLocation,
	)
}

func (s *Server) handleListTables(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.publicSvc.Tables(ctx)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleGetTableSnapshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableID, err := request.RequireInt("table_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	snap, svcErr := s.publicSvc.TableSnapshot(ctx, tableID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(snap), nil
}

func (s *Server) handleGetActionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tableID, err := request.RequireInt("table_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	hand := request.GetInt("hand_number", 0)
	limit := clampLimit(request.GetInt("limit", defaultActionsLimit), maxActionsLimit)
	resp, svcErr := s.publicSvc.Actions(ctx, tableID, hand, limit)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleFindIdentityLocation(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identityID, err := request.RequireString("identity_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.publicSvc.IdentityLocation(identityID)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}
