package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ecollect/internal/address"
	"ecollect/internal/admin"
	"ecollect/internal/audit"
	credstore "ecollect/internal/credential/store"
	flowhandler "ecollect/internal/flow/handler"
	flowmetrics "ecollect/internal/flow/metrics"
	flowservice "ecollect/internal/flow/service"
	flowstore "ecollect/internal/flow/store"
	ecollecthttp "ecollect/internal/http"
	"ecollect/internal/issuance"
	"ecollect/internal/platform/config"
	"ecollect/internal/platform/httpserver"
	"ecollect/internal/platform/logger"
	"ecollect/internal/platform/middleware"
	"ecollect/internal/platform/postgres"
	platformredis "ecollect/internal/platform/redis"
	registryhandler "ecollect/internal/registry/handler"
	ballotstore "ecollect/internal/registry/store/ballot"
	municipalitystore "ecollect/internal/registry/store/municipality"
	residentstore "ecollect/internal/registry/store/resident"
	"ecollect/internal/verification"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage. Without a DSN everything runs in memory, which is enough for
	// local development and demos.
	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("failed to open postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var (
		municipalities flowservice.MunicipalityStore
		adminMunis     admin.MunicipalityStore
		residents      *residentStores
		ballots        *ballotStores
		credentials    credentialStore
		directory      address.Directory
	)
	if db != nil {
		pgMunis := municipalitystore.NewPostgres(db)
		pgResidents := residentstore.NewPostgres(db)
		pgBallots := ballotstore.NewPostgres(db)
		municipalities, adminMunis = pgMunis, pgMunis
		residents = &residentStores{flow: pgResidents, admin: pgResidents}
		ballots = &ballotStores{flow: pgBallots, admin: pgBallots, public: pgBallots}
		credentials = credstore.NewPostgres(db)
		directory = address.NewPostgresDirectory(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		memMunis := municipalitystore.NewMemory()
		memResidents := residentstore.NewMemory()
		memBallots := ballotstore.NewMemory()
		municipalities, adminMunis = memMunis, memMunis
		residents = &residentStores{flow: memResidents, admin: memResidents}
		ballots = &ballotStores{flow: memBallots, admin: memBallots, public: memBallots}
		credentials = credstore.NewMemory()
		directory = address.NewMemoryDirectory()
	}

	var sessions flowstore.Store
	if redisClient != nil {
		sessions = flowstore.NewRedis(redisClient.Client, cfg.FlowSessionTTL)
	} else {
		log.Warn("no redis URL configured, flow sessions will not survive restarts")
		sessions = flowstore.NewMemory()
	}

	// Audit trail. Kafka when brokers are configured, structured logs
	// otherwise.
	publisher := audit.NewPublisher(log)
	var sink audit.Sink
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("failed to connect audit sink", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	} else {
		sink = audit.NewLogSink(log)
	}
	worker := audit.NewWorker(sink, publisher.Inbox(), log)

	flowSvc := flowservice.New(flowservice.Deps{
		Sessions:       sessions,
		Municipalities: municipalities,
		Residents:      residents.flow,
		Ballots:        ballots.flow,
		Credentials:    credentials,
		Verifier:       verification.NewClient(cfg.VerifierBaseURL, cfg.VerifierClientID),
		Issuer:         issuance.NewClient(cfg.IssuerBaseURL),
		Resolver:       address.NewResolver(directory),
		Audit:          publisher,
		Metrics:        flowmetrics.New(),
		Logger:         log,
	}, flowservice.Config{
		VerificationPollInterval: cfg.VerificationPollInterval,
		VerificationPollTimeout:  cfg.VerificationPollTimeout,
		StatusPollInterval:       cfg.StatusPollInterval,
		StatusListURL:            cfg.StatusListURL,
	})
	defer flowSvc.Close()

	adminSvc := admin.New(adminMunis, residents.admin, ballots.admin, credentials, publisher)

	router := ecollecthttp.NewRouter(ecollecthttp.Deps{
		Flow:           flowhandler.New(flowSvc, log),
		Registry:       registryhandler.New(ballots.public, log),
		Admin:          admin.NewHandler(adminSvc, log),
		AdminValidator: middleware.NewAdminValidator(cfg.AdminJWTKey),
		Limiter:        middleware.NewLimiter(cfg.RateLimitPerMinute, time.Minute),
		Logger:         log,
		Health: func(ctx context.Context) error {
			if db != nil {
				if err := db.PingContext(ctx); err != nil {
					return err
				}
			}
			if redisClient != nil {
				return redisClient.Health(ctx)
			}
			return nil
		},
	})

	server := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := worker.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// residentStores and ballotStores pair the interface views the flow, admin,
// and public surfaces need, so both storage backends wire identically.
type residentStores struct {
	flow  flowservice.ResidentStore
	admin admin.ResidentStore
}

type ballotStores struct {
	flow   flowservice.BallotStore
	admin  admin.BallotStore
	public registryhandler.BallotStore
}

type credentialStore interface {
	flowservice.CredentialStore
	admin.CredentialStore
}
