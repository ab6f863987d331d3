package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	appidentity "holdem-tables/internal/app/identity"
	apppublic "holdem-tables/internal/app/public"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Server struct {
	publicSvc   *apppublic.Service
	identitySvc *appidentity.Service

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(publicSvc *apppublic.Service, identitySvc *appidentity.Service) *Server {
	mcpSrv := server.NewMCPServer(
		"holdem-tables",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		publicSvc:   publicSvc,
		identitySvc: identitySvc,
		mcpServer:   mcpSrv,
		httpServer:  server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerPublicTools()
	s.registerIdentityTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"table://{table_id}/snapshot",
			"table_snapshot",
			mcp.WithTemplateDescription("Seats, observers and public game state of one table"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := request.Params.URI
			if !strings.HasPrefix(raw, "table://") || !strings.HasSuffix(raw, "/snapshot") {
				return nil, nil
			}
			tableID, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(raw, "table://"), "/snapshot"))
			if err != nil {
				return nil, apppublic.ErrInvalidRequest
			}
			snap, err := s.publicSvc.TableSnapshot(ctx, tableID)
			if err != nil {
				return nil, err
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}
