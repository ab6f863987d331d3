package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerIdentityTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"register_identity",
			mcp.WithDescription("Mint an identity and get the WebSocket path to play with it"),
			mcp.WithString("nickname", mcp.Description("Optional display name")),
		),
		s.handleRegisterIdentity,
	)
}

func (s *Server) handleRegisterIdentity(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.identitySvc.Register(request.GetString("nickname", ""))
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}
