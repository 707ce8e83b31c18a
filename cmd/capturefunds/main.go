package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Skotchmaster/crowdshop/internal/config"
	"github.com/Skotchmaster/crowdshop/internal/funds"
	"github.com/Skotchmaster/crowdshop/internal/gateway"
	"github.com/Skotchmaster/crowdshop/internal/notify"
	"github.com/Skotchmaster/crowdshop/internal/repo"
	"github.com/Skotchmaster/crowdshop/internal/service"
	pkgdb "github.com/Skotchmaster/crowdshop/pkg/db"
	"github.com/Skotchmaster/crowdshop/pkg/logging"
)

// capturefunds charges the backers of one successful project. It runs
// bounded passes over the backlog and stops when a pass processes
// nothing or every order in the pass failed.
func main() {
	_ = godotenv.Load()

	projectID := flag.Uint("project", 0, "project id to capture funds for")
	limit := flag.Int("limit", 50, "orders per pass")
	flag.Parse()
	if *projectID == 0 {
		log.Fatal("capturefunds: -project is required")
	}

	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.UpdateTokenSecret, "UPDATE_TOKEN_SECRET")

	logger := logging.New(os.Getenv("LOG_LEVEL")).With("service", cfg.ServiceName, "job", "capturefunds")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	database, err := pkgdb.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if len(cfg.KafkaBrokers) > 0 {
		kn := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.PaymentEventsTopic)
		defer kn.Close()
		notifier = kn
	}

	// Production processors register here under the key orders carry in
	// their gateway column; an order whose key is absent fails its pass
	// with an unknown-gateway error until the binary is rebuilt with the
	// processor wired in.
	registry := gateway.NewRegistry()
	registry.Register("sandbox", gateway.Sandbox{})

	tokens := funds.NewTokenSigner(cfg.UpdateTokenSecret, cfg.PublicBaseURL)
	svc := service.NewCaptureService(repo.New(database), registry, notifier, tokens)
	svc.GatewayTimeout = cfg.GatewayTimeout

	for pass := 1; ; pass++ {
		failures, count, err := svc.CaptureFunds(ctx, *projectID, *limit)
		if err != nil {
			log.Fatalf("capture pass %d: %v", pass, err)
		}
		logger.Info("capture pass done", "pass", pass, "failures", failures, "count", count)
		if count == 0 || failures == count {
			break
		}
	}
}
