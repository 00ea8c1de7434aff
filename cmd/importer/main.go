// importer reconciles teacher-record feed files against the person store.
//
// With --once it imports the pending files of the selected feeds and exits.
// Otherwise it polls the inbox on an interval, relays outbox events to Kafka
// when brokers are configured, and serves the batch query API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/config"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/httpserver"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/kafka"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/logger"
	platformmetrics "github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/metrics"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/postgres"
	platformredis "github.com/DFE-Digital/teaching-record-system-sub005/internal/platform/redis"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/events"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/feeds"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/jobs"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/matching"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/metrics"
	"github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/service"
	store "github.com/DFE-Digital/teaching-record-system-sub005/internal/reconcile/store/postgres"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/pii"
	"github.com/DFE-Digital/teaching-record-system-sub005/pkg/platform/circuit"
)

const tracerName = "trs/importer"

type options struct {
	feeds   []string
	inbox   string
	once    bool
	serve   bool
	migrate bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()

	var opts options
	flagSet := pflag.NewFlagSet("importer", pflag.ContinueOnError)
	flagSet.StringSliceVar(&opts.feeds, "feed", nil, "feed to import (repeatable, default: all feeds)")
	flagSet.StringVar(&opts.inbox, "inbox", cfg.Jobs.InboxDir, "directory holding one sub-directory of files per feed")
	flagSet.BoolVar(&opts.once, "once", false, "import pending files once and exit")
	flagSet.BoolVar(&opts.serve, "serve", true, "serve the batch query API while polling")
	flagSet.BoolVar(&opts.migrate, "migrate", true, "apply database migrations on start")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	log := logger.New(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database.URL, postgres.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		PingTimeout:     postgres.DefaultOptions().PingTimeout,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if opts.migrate {
		if err := postgres.Migrate(db); err != nil {
			return err
		}
	}

	app, err := wire(ctx, cfg, db, opts, log)
	if err != nil {
		return err
	}
	defer app.close()

	if opts.once {
		return app.importOnce(ctx)
	}
	return app.serve(ctx, cfg)
}

// app holds the wired components of one importer process.
type app struct {
	log       *slog.Logger
	feedNames []string
	registry  *prometheus.Registry
	recorder  *service.Recorder
	runner    *jobs.Runner
	producer  *kafka.Producer
	relay     *events.Relay
	router    http.Handler
	closers   []func()
}

func wire(ctx context.Context, cfg config.Config, db *sql.DB, opts options, log *slog.Logger) (*app, error) {
	a := &app{log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	m := metrics.NewWithRegistry(a.registry)
	tracer := otel.Tracer(tracerName)

	txRunner := postgres.NewTxRunner(db, cfg.Database.TxTimeout)
	persons := store.NewPersonStore(db)
	batches := store.NewBatchStore(db)
	tasks := store.NewTaskStore(db)
	watermarks := store.NewWatermarkStore(db)
	outbox := store.NewOutboxStore(db)

	catalogue, err := feeds.NewCatalogue(persons, persons)
	if err != nil {
		return nil, err
	}
	a.feedNames = opts.feeds
	if len(a.feedNames) == 0 {
		a.feedNames = catalogue.Names()
	}
	for _, name := range a.feedNames {
		if _, err := catalogue.Lookup(name); err != nil {
			return nil, err
		}
	}

	evaluator, err := matching.New(persons, matching.WithLogger(log), matching.WithTracer(tracer))
	if err != nil {
		return nil, err
	}
	a.recorder, err = service.NewRecorder(batches, txRunner,
		service.WithRecorderLogger(log),
		service.WithRecorderMetrics(m),
		service.WithWatermarks(watermarks),
		service.WithOutbox(outbox),
	)
	if err != nil {
		return nil, err
	}
	hasher, err := pii.NewHasher([]byte(cfg.Jobs.PIIHashKey))
	if err != nil {
		return nil, err
	}
	orchestrator, err := service.New(evaluator, a.recorder, txRunner,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithTracer(tracer),
		service.WithSupportTasks(tasks),
		service.WithTaskEvents(outbox),
		service.WithPIIHasher(hasher),
	)
	if err != nil {
		return nil, err
	}

	lease, err := newLease(ctx, cfg, a)
	if err != nil {
		return nil, err
	}
	a.runner, err = jobs.New(catalogue, orchestrator, watermarks, opts.inbox,
		jobs.WithLogger(log),
		jobs.WithLease(lease),
	)
	if err != nil {
		return nil, err
	}

	if len(cfg.Kafka.Brokers) > 0 {
		a.producer, err = kafka.NewProducer(kafka.Config{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			ClientID: cfg.Kafka.ClientID,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, a.producer.Close)
		a.relay, err = events.New(outbox, txRunner, a.producer,
			events.WithLogger(log),
			events.WithMetrics(m),
			events.WithBatchSize(cfg.Kafka.RelayBatchSize),
			events.WithInterval(cfg.Kafka.RelayInterval),
			events.WithBreaker(circuit.New("kafka", circuit.WithCooldown(30*time.Second))),
		)
		if err != nil {
			return nil, err
		}
	} else {
		log.Warn("KAFKA_BROKERS not set, outbox events stay unpublished")
	}

	if opts.serve {
		a.router = newRouter(cfg, log, a.recorder, batches, tasks, platformmetrics.NewWithRegistry(a.registry), a.registry)
	}
	return a, nil
}

// newLease returns a Redis lease when REDIS_URL is set so several importer
// processes can share an inbox, and a process-local lease otherwise.
func newLease(ctx context.Context, cfg config.Config, a *app) (jobs.Lease, error) {
	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return jobs.NewLocalLease(), nil
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	return jobs.NewRedisLease(client, cfg.Jobs.LeaseTTL), nil
}

func (a *app) importOnce(ctx context.Context) error {
	var failed bool
	for _, name := range a.feedNames {
		batches, err := a.runner.RunFeed(ctx, name)
		if err != nil {
			a.log.Error("feed import failed", "feed", name, "error", err)
			failed = true
			continue
		}
		a.log.Info("feed imported", "feed", name, "batches", len(batches))
	}
	if a.relay != nil {
		if err := a.producer.EnsureTopic(ctx); err != nil {
			return err
		}
		if _, err := a.relay.RelayOnce(ctx); err != nil {
			return err
		}
	}
	if failed {
		return errors.New("one or more feeds failed to import")
	}
	return nil
}

func (a *app) serve(ctx context.Context, cfg config.Config) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCancel(a.runner.Loop(ctx, a.feedNames, cfg.Jobs.PollInterval))
	})
	if a.relay != nil {
		if err := a.producer.EnsureTopic(ctx); err != nil {
			return err
		}
		g.Go(func() error {
			return ignoreCancel(a.relay.Run(ctx))
		})
	}
	if a.router != nil {
		srv := httpserver.New(cfg.Server.Addr, a.router)
		a.log.Info("serving batch api", "addr", cfg.Server.Addr)
		g.Go(func() error {
			return httpserver.Serve(ctx, srv)
		})
	}

	a.log.Info("importer started", "feeds", a.feedNames, "poll_interval", cfg.Jobs.PollInterval)
	err := g.Wait()
	a.log.Info("importer stopped")
	return err
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
