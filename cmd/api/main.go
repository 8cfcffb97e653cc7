package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/marianacarhol/reto-multiagentes-sub000/internal/app"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/clock"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/config"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/events"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/sessions"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/storage/postgres"
	"github.com/marianacarhol/reto-multiagentes-sub000/internal/telemetry"
	transporthttp "github.com/marianacarhol/reto-multiagentes-sub000/internal/transport/http"
	"github.com/marianacarhol/reto-multiagentes-sub000/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()
	config.LoadEnvFile(logger)
	cfg := config.Load()

	shutdownTracing := telemetry.Setup("concierge-api")
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		natsPub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			logger.Printf("WARN: NATS unavailable, ticket events disabled: %v", err)
		} else {
			defer natsPub.Close()
			publisher = natsPub
		}
	}

	clk := clock.NewSystem()
	catalogRepo := postgres.NewCatalogRepository(pool)
	ticketRepo := postgres.NewTicketRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)

	resolver := app.NewResolver(catalogRepo)
	ledger := app.NewLedger(ledgerRepo, clk, logger)
	crossSell := app.NewCrossSell(catalogRepo, nil)
	classifier := app.NewClassifier(cfg.PriorityServiceURL, cfg.PriorityTimeout, logger)

	ticketSvc := app.NewTicketService(
		ticketRepo,
		resolver,
		ledger,
		crossSell,
		classifier,
		publisher,
		clk,
		logger,
		app.TicketConfig{
			WindowStart:          cfg.ServiceWindowStart,
			WindowEnd:            cfg.ServiceWindowEnd,
			StockCheckEnabled:    cfg.StockCheckEnabled,
			CrossSellPerCategory: cfg.CrossSellPerCategory,
		},
	)

	sessionMem := sessions.NewMemory(0)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/requests", transporthttp.HandleCreateRequest(ticketSvc, sessionMem))
	mux.Handle("/requests/", transporthttp.HandleRequestByID(ticketSvc, ticketSvc, sessionMem))
	mux.Handle("/sessions/", transporthttp.HandleSessionHistory(sessionMem))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger)
	handler = otelhttp.NewHandler(handler, "concierge-api")

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
