package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appidentity "holdem-tables/internal/app/identity"
	apppublic "holdem-tables/internal/app/public"
	"holdem-tables/internal/config"
	"holdem-tables/internal/lobby"
	"holdem-tables/internal/logging"
	"holdem-tables/internal/mcpserver"
	"holdem-tables/internal/notify"
	"holdem-tables/internal/session"
	"holdem-tables/internal/store"
	"holdem-tables/internal/table"
	"holdem-tables/internal/tablepush"
	httptransport "holdem-tables/internal/transport/http"
	"holdem-tables/internal/turn"
	"holdem-tables/internal/ws"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	actions, ping, closeStore := openActionLog(ctx, cfg)
	defer closeStore()
	lastHands := lastHandNumbers(ctx, actions, cfg.Tables.Tables)
	recorder := store.NewAsyncRecorder(actions)

	registry := session.NewRegistry()
	locations := session.NewLocationStore()
	identities := session.NewIdentities()
	hub := notify.NewHub(registry, identities, 0)
	scheduler := turn.NewScheduler(turn.RealClock(), hub)

	tables := table.NewDirectory(table.ConfigsFrom(cfg.Tables.Tables), table.Deps{
		Locations:     locations,
		Identities:    identities,
		Publisher:     hub,
		Recorder:      recorder,
		Timer:         scheduler,
		TurnTimeout:   cfg.Server.TurnTimeout(),
		NextHandDelay: cfg.Server.NextHandDelay(),
	}, lastHands)
	scheduler.OnFire(tables.Timeout)
	startTablePush(ctx, cfg, hub)

	lobbySvc := lobby.NewService(lobby.Deps{
		Registry:   registry,
		Locations:  locations,
		Identities: identities,
		Tables:     tables,
		Hub:        hub,
		Grace:      cfg.Server.ReconnectGrace(),
	})
	publicSvc := apppublic.NewService(tables, actions, identities, locations, registry)
	identitySvc := appidentity.NewService(identities)

	r := httptransport.NewRouter(httptransport.RouterDeps{
		Public:   publicSvc,
		Identity: identitySvc,
		Hub:      hub,
		WS: ws.NewServer(lobbySvc, identities, ws.Options{
			OutboxSize:     cfg.Server.OutboxSize,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}),
		MCP:      mcpserver.New(publicSvc, identitySvc),
		Ping:     ping,
		AdminKey: cfg.Server.AdminAPIKey,
	})
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Int("tables", len(cfg.Tables.Tables)).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown failed")
	}
	lobbySvc.Close()
	scheduler.Close()
	tables.Close()
	hub.Close()
	if err := recorder.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("action recorder drain incomplete")
	}
}

// startTablePush mirrors every configured table's public events to the
// PUSH_* webhook targets. It stops with ctx.
func startTablePush(ctx context.Context, cfg config.AppConfig, hub *notify.Hub) {
	pushCfg, err := tablepush.ConfigFrom(cfg.Push)
	if err != nil {
		log.Fatal().Err(err).Msg("push config invalid")
	}
	if !pushCfg.Enabled {
		return
	}
	push := tablepush.NewManager(pushCfg, turn.RealClock())
	push.Start(ctx)
	for _, t := range cfg.Tables.Tables {
		push.Watch(t.ID, t.Name, hub.Buffer(t.ID))
	}
}

// openActionLog connects to Postgres when POSTGRES_DSN is set and falls back
// to process memory otherwise.
func openActionLog(ctx context.Context, cfg config.AppConfig) (store.ActionLog, func(context.Context) error, func()) {
	if cfg.Server.PostgresDSN == "" {
		log.Warn().Msg("POSTGRES_DSN not set; action history is kept in memory")
		return store.NewMemoryActionLog(), nil, func() {}
	}
	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}
	rows := make([]store.PokerTable, 0, len(cfg.Tables.Tables))
	for _, t := range cfg.Tables.Tables {
		rows = append(rows, store.PokerTable{
			ID:         t.ID,
			Name:       t.Name,
			SmallBlind: t.SmallBlind,
			BigBlind:   t.BigBlind,
			MinBuyIn:   t.MinBuyIn,
			MaxBuyIn:   t.MaxBuyIn,
			MaxPlayers: t.MaxPlayers,
		})
	}
	if err := st.EnsureTables(ctx, rows); err != nil {
		log.Fatal().Err(err).Msg("ensure tables failed")
	}
	return st, st.Ping, st.Close
}

func lastHandNumbers(ctx context.Context, actions store.ActionLog, tables []config.TableConfig) map[int]int {
	out := make(map[int]int, len(tables))
	for _, t := range tables {
		n, err := actions.LastHandNumber(ctx, t.ID)
		if err != nil {
			log.Warn().Err(err).Int("table_id", t.ID).Msg("last hand number lookup failed")
			continue
		}
		out[t.ID] = n
	}
	return out
}
