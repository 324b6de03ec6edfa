// internal/app/runner.go
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rovshanmuradov/trust-engine/internal/backend"
	"github.com/rovshanmuradov/trust-engine/internal/config"
	"github.com/rovshanmuradov/trust-engine/internal/fetch"
	"github.com/rovshanmuradov/trust-engine/internal/logger"
	"github.com/rovshanmuradov/trust-engine/internal/process"
	"github.com/rovshanmuradov/trust-engine/internal/providers/birdeye"
	"github.com/rovshanmuradov/trust-engine/internal/providers/dexscreener"
	"github.com/rovshanmuradov/trust-engine/internal/report"
	"github.com/rovshanmuradov/trust-engine/internal/simulation"
	"github.com/rovshanmuradov/trust-engine/internal/storage"
	"github.com/rovshanmuradov/trust-engine/internal/storage/postgres"
	"github.com/rovshanmuradov/trust-engine/internal/trust"
	"go.uber.org/zap"
)

// Report request-reply subjects. The payload is the wallet or token address,
// the reply is the formatted report.
const (
	portfolioReportSubject = "report.portfolio"
	tokenReportSubject     = "report.token"
)

// Runner wires every component together and drives the engine lifecycle.
type Runner struct {
	cfg        *config.Config
	log        *logger.Logger
	store      storage.Storage
	engine     *trust.Engine
	orch       *simulation.Orchestrator
	reports    *report.Service
	shutdownCh chan os.Signal
}

func NewRunner(cfg *config.Config, log *logger.Logger) (*Runner, error) {
	fetcher := fetch.NewClient(log.Logger, fetch.WithRetryPolicy(retryPolicy(cfg)))
	cache := fetch.NewCache(log.Logger)

	store, err := postgres.NewStorage(cfg.PostgresURL, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	market, err := birdeye.NewClient(cfg.BirdeyeBaseURL, cfg.BirdeyeAPIKey, fetcher, cache, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("create market data client: %w", err)
	}
	pairs := dexscreener.NewClient(cfg.DexscreenerURL, fetcher, cache, log.Logger)

	engine := trust.NewEngine(store, market, pairs, scoringParams(cfg), log.Logger)

	if cfg.BackendURL != "" {
		mirror, err := backend.NewMirror(cfg.BackendURL, cfg.BackendAPIKey, fetcher, log.Logger)
		if err != nil {
			return nil, fmt.Errorf("create backend mirror: %w", err)
		}
		engine.SetMirror(mirror)
	}

	notifier := process.NewClient(cfg.ProcessBackendURL, fetcher, log.Logger)
	orch := simulation.NewOrchestrator(store, engine, notifier,
		time.Duration(cfg.ScanInterval)*time.Second, log.Logger)
	orch.SetWalletAddress(cfg.WalletAddress)
	engine.SetPositionMonitor(orch)

	return &Runner{
		cfg:        cfg,
		log:        log,
		store:      store,
		engine:     engine,
		orch:       orch,
		reports:    report.NewService(market, pairs, log.Logger),
		shutdownCh: make(chan os.Signal, 1),
	}, nil
}

// Engine exposes the trust engine for embedding callers.
func (r *Runner) Engine() *trust.Engine { return r.engine }

// Run migrates storage, attaches the sell-directive queue and report
// endpoints, then drives the position scan loop until a shutdown signal.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sig := <-r.shutdownCh
		r.log.Info("📡 Signal received: " + sig.String())
		cancel()
	}()

	if err := r.store.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	conn, err := simulation.Connect(runCtx, r.cfg.NATSURL, r.log.Logger)
	if err != nil {
		return err
	}

	queue, err := simulation.NewQueue(conn, r.cfg.SellSubject, r.log.Logger)
	if err != nil {
		conn.Close()
		return err
	}
	defer queue.Close()

	if err := queue.Subscribe(runCtx, r.orch.HandleSellDirective); err != nil {
		return err
	}
	if err := r.serveReports(runCtx, conn); err != nil {
		return err
	}

	r.log.Info("🚀 Trust engine running",
		zap.String("sell_subject", r.cfg.SellSubject),
		zap.Int("scan_interval_seconds", r.cfg.ScanInterval))

	if err := r.orch.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	r.log.Info("✅ Trust engine stopped")
	return nil
}

// serveReports answers report requests over NATS request-reply. The request
// payload is the address to report on.
func (r *Runner) serveReports(ctx context.Context, conn *nats.Conn) error {
	respond := func(msg *nats.Msg, text string) {
		if err := msg.Respond([]byte(text)); err != nil {
			r.log.Warn("failed to send report reply", zap.Error(err))
		}
	}

	if _, err := conn.Subscribe(portfolioReportSubject, func(msg *nats.Msg) {
		respond(msg, r.reports.PortfolioReport(ctx, string(msg.Data)))
	}); err != nil {
		return fmt.Errorf("subscribe to %s: %w", portfolioReportSubject, err)
	}
	if _, err := conn.Subscribe(tokenReportSubject, func(msg *nats.Msg) {
		respond(msg, r.reports.TokenReport(ctx, string(msg.Data)))
	}); err != nil {
		return fmt.Errorf("subscribe to %s: %w", tokenReportSubject, err)
	}
	return nil
}

func retryPolicy(cfg *config.Config) fetch.RetryPolicy {
	p := fetch.DefaultRetryPolicy()
	if cfg.Retries > 0 {
		p.MaxRetries = cfg.Retries
	}
	return p
}

func scoringParams(cfg *config.Config) trust.ScoringParams {
	p := trust.DefaultScoringParams()
	if cfg.WeightRugPull > 0 {
		p.WeightRugPull = cfg.WeightRugPull
	}
	if cfg.WeightScam > 0 {
		p.WeightScam = cfg.WeightScam
	}
	if cfg.WeightRapidDump > 0 {
		p.WeightRapidDump = cfg.WeightRapidDump
	}
	if cfg.WeightSuspicious > 0 {
		p.WeightSuspiciousVolume = cfg.WeightSuspicious
	}
	if cfg.ConfidenceDivisor > 0 {
		p.ConfidenceDivisor = cfg.ConfidenceDivisor
	}
	return p
}
