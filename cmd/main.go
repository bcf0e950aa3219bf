package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"autoservice/internal/auth"
	"autoservice/internal/config"
	"autoservice/internal/domain"
	httpapi "autoservice/internal/http"
	"autoservice/internal/idempotency"
	"autoservice/internal/logging"
	"autoservice/internal/notify"
	"autoservice/internal/repository"
	"autoservice/internal/service"

	_ "autoservice/docs"
)

// @title Autoservice API
// @version 1.0
// @description Appointments of a car service and parts orders.
// @host localhost:9091
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	tokenFor := flag.String("token-for", "", "print a JWT for USER_ID:ROLE and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)

	if *tokenFor != "" {
		if err := printToken(issuer, *tokenFor); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, log, issuer); err != nil {
		log.Error("service stopped", "err", err)
		os.Exit(1)
	}
}

func printToken(iss *auth.Issuer, spec string) error {
	id, role, ok := strings.Cut(spec, ":")
	if !ok || id == "" || !domain.Role(role).Valid() {
		return fmt.Errorf("-token-for expects USER_ID:ROLE, got %q", spec)
	}
	tok, err := iss.Issue(auth.Principal{UserID: id, Roles: []domain.Role{domain.Role(role)}})
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func openStore(cfg *config.Config) (*repository.Store, error) {
	if cfg.Storage == "memory" {
		return repository.NewMemory(), nil
	}
	db, err := repository.OpenGorm(cfg.Storage, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	return repository.NewGorm(db), nil
}

func run(cfg *config.Config, log *slog.Logger, issuer *auth.Issuer) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otel.SetTextMapPropagator(propagation.TraceContext{})
	gin.SetMode(cfg.GinMode)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	policy, err := auth.NewPolicy()
	if err != nil {
		return err
	}

	sinks := []notify.Sink{notify.NewLogSink(log)}
	if len(cfg.KafkaBrokers) > 0 {
		writer := notify.NewKafkaWriter(cfg.KafkaBrokers)
		defer writer.Close()
		sinks = append(sinks, notify.NewKafkaSink(writer, cfg.KafkaTopic))
		log.Info("kafka notifications enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	dispatcher := notify.NewDispatcher(log, cfg.NotifyWorkers, cfg.NotifyBuffer, sinks)
	// defer LIFO: уведомления доставляются до закрытия kafka writer
	defer dispatcher.Close()

	var idem idempotency.Store = idempotency.NewMemoryStore(cfg.IdempotencyTTL)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		idem = idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
	}

	dir := service.NewDirectory(st)
	ledger := service.NewInventoryLedger(st.Products, log)
	users := service.NewUserService(st.Users, policy)
	catalog := service.NewCatalogService(st.Services, policy)
	products := service.NewProductService(st.Products, ledger, policy)
	appointments := service.NewAppointmentService(st.Appointments, dir, policy, dispatcher, log, service.WithLocation(cfg.SlotLocation))
	orders := service.NewOrderService(st.Orders, ledger, dir, st.Tx, policy, dispatcher, log)

	if cfg.SeedDemo {
		if err := service.SeedDemo(ctx, users, catalog, products, log); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	srv := httpapi.NewServer(httpapi.Deps{
		Users:        users,
		Catalog:      catalog,
		Products:     products,
		Appointments: appointments,
		Orders:       orders,
		Issuer:       issuer,
		Idempotency:  idem,
		Log:          log,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", httpServer.Addr, "storage", cfg.Storage)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "err", err)
	}
	log.Info("stopped")
	return nil
}
