package httptransport

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	appidentity "holdem-tables/internal/app/identity"
	apppublic "holdem-tables/internal/app/public"
	"holdem-tables/internal/mcpserver"
	"holdem-tables/internal/notify"
	"holdem-tables/internal/ws"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type RouterDeps struct {
	Public   *apppublic.Service
	Identity *appidentity.Service
	Hub      *notify.Hub
	WS       *ws.Server
	MCP      *mcpserver.Server
	// Ping reports storage health; nil means no database is configured.
	Ping func(ctx context.Context) error
	// AdminKey guards /api/debug/vars. The route is not mounted without one.
	AdminKey string
}

func NewRouter(deps RouterDeps) *chi.Mux {
	publicHandlers := NewPublicHandlers(deps.Public, deps.Hub)
	identityHandlers := NewIdentityHandlers(deps.Identity)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", Health(deps.Ping))
	r.Get("/ws", deps.WS.HandleWS)

	if deps.MCP != nil {
		r.With(APILogMiddleware()).MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
			w.WriteHeader(http.StatusNoContent)
		})
		r.With(APILogMiddleware()).Method(http.MethodPost, "/mcp", deps.MCP.Handler())
		r.With(APILogMiddleware()).Method(http.MethodGet, "/mcp", deps.MCP.Handler())
		r.With(APILogMiddleware()).Method(http.MethodDelete, "/mcp", deps.MCP.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Post("/identities", identityHandlers.Register())
		r.Patch("/identities/{identity_id}", identityHandlers.Rename())

		r.Get("/public/tables", publicHandlers.Tables())
		r.Get("/public/tables/{table_id}", publicHandlers.TableSnapshot())
		r.Get("/public/tables/{table_id}/actions", publicHandlers.TableActions())
		r.Get("/public/tables/{table_id}/events", publicHandlers.TableEvents())
		r.Get("/public/identities/{identity_id}/location", publicHandlers.IdentityLocation())

		if deps.AdminKey != "" {
			r.Route("/debug", func(r chi.Router) {
				r.Use(AdminAuthMiddleware(deps.AdminKey))
				r.Use(BodyCaptureMiddleware(4096))
				r.Get("/vars", expvar.Handler().ServeHTTP)
			})
		}
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 32)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
