package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"procura/internal/audit"
	"procura/internal/audit/kafka"
	auditMetrics "procura/internal/audit/metrics"
	billingMetrics "procura/internal/billing/metrics"
	"procura/internal/billing/processor"
	billingsvc "procura/internal/billing/service"
	billingstore "procura/internal/billing/store"
	"procura/internal/evidence"
	mandateMetrics "procura/internal/mandate/metrics"
	mandatesvc "procura/internal/mandate/service"
	mandatestore "procura/internal/mandate/store"
	"procura/internal/mandate/store/revocation"
	"procura/internal/mandate/token"
	"procura/internal/platform/config"
	"procura/internal/platform/httpserver"
	"procura/internal/platform/logger"
	platformredis "procura/internal/platform/redis"
	"procura/internal/tools"
	httptransport "procura/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	log := logger.New()
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	signer, err := token.NewSigner(cfg.Mandate.SigningSecret, cfg.Mandate.SigningAlg, cfg.Mandate.Issuer, cfg.Mandate.Audience)
	if err != nil {
		return err
	}

	// Storage: Postgres when DATABASE_URL is set, in-memory otherwise.
	var (
		mandates mandatestore.Store
		entries  audit.Store
		charges  billingstore.ChargeStore
		plans    billingstore.PlanExecutionStore
		assets   evidence.Store
	)
	if cfg.DB.URL != "" {
		db, err := sql.Open("pgx", cfg.DB.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return err
		}
		for _, schema := range []string{mandatestore.Schema, audit.Schema, billingstore.Schema, evidence.Schema} {
			if _, err := db.Exec(schema); err != nil {
				return err
			}
		}
		mandates = mandatestore.NewPostgres(db)
		entries = audit.NewPostgresStore(db)
		charges = billingstore.NewPostgresCharges(db)
		plans = billingstore.NewPostgresPlanExecutions(db)
		assets = evidence.NewPostgresStore(db)
		log.Info("storage configured", "backend", "postgres")
	} else {
		mandates = mandatestore.NewInMemory()
		entries = audit.NewInMemoryStore()
		charges = billingstore.NewInMemoryCharges()
		plans = billingstore.NewInMemoryPlanExecutions()
		assets = evidence.NewInMemoryStore()
		log.Warn("storage configured", "backend", "memory")
	}

	var revocations httptransport.RevocationList = revocation.NewMemoryList()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		revocations = revocation.NewRedisList(redisClient.Client)
		log.Info("revocation list configured", "backend", "redis")
	}

	mMetrics := mandateMetrics.New()
	issuer := mandatesvc.NewIssuer(signer, mandates, mandatesvc.Config{
		DefaultScopes:         cfg.Mandate.DefaultScopes,
		TTL:                   cfg.Mandate.TTL,
		DefaultMaxAmountCents: cfg.Mandate.DefaultMaxAmountCents,
	}, mandatesvc.WithIssuerLogger(log), mandatesvc.WithIssuerMetrics(mMetrics))
	verifier := mandatesvc.NewVerifier(signer, mandatesvc.WithVerifierMetrics(mMetrics))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	recorderOpts := []audit.RecorderOption{
		audit.WithMandateVerification(mandates, verifier),
		audit.WithRecorderLogger(log),
		audit.WithRecorderMetrics(auditMetrics.New()),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer publisher.Close()

		sink := audit.NewAsyncSink(publisher, 256, log)
		g.Go(func() error {
			if err := sink.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		recorderOpts = append(recorderOpts, audit.WithSink(sink))
		log.Info("audit fan-out configured", "topic", cfg.Kafka.Topic)
	}
	recorder := audit.NewRecorder(entries, recorderOpts...)

	charger := billingsvc.NewCharger(charges, plans, mandates, verifier, processor.NewSimulated(log),
		billingsvc.WithChargerLogger(log), billingsvc.WithChargerMetrics(billingMetrics.New()))

	evidenceSvc := evidence.NewService(assets, entries, charges)

	// Provider adapters register their executors here.
	registry := tools.NewRegistry()

	router := httptransport.NewRouter(
		httptransport.NewMandateHandler(issuer, mandates, verifier, revocations),
		httptransport.NewAuditHandler(entries),
		httptransport.NewBillingHandler(charger, plans),
		httptransport.NewEvidenceHandler(evidenceSvc),
		httptransport.NewToolsHandler(recorder, registry),
	)

	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("starting procura", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
