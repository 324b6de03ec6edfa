// internal/simulation/orchestrator.go
package simulation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rovshanmuradov/trust-engine/internal/process"
	"github.com/rovshanmuradov/trust-engine/internal/storage"
	"github.com/rovshanmuradov/trust-engine/internal/trust"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const scanConcurrency = 8

// SellEngine settles sell directives against recorded buys.
type SellEngine interface {
	UpdateSellDetails(ctx context.Context, details *trust.SellDetails) (*trust.SellSummary, error)
}

// ProcessNotifier tells the external process backend about monitoring
// lifecycles. Notifications are best-effort.
type ProcessNotifier interface {
	StartProcess(ctx context.Context, req process.StartRequest)
	StopProcess(ctx context.Context, tokenAddress string)
}

// Orchestrator owns the simulated-sell lifecycle: it admits at most one
// running monitoring process per token, periodically rescans held positions
// and settles incoming sell directives.
type Orchestrator struct {
	store    storage.Storage
	engine   SellEngine
	notifier ProcessNotifier
	logger   *zap.Logger
	interval time.Duration
	wallet   string

	mu      sync.Mutex
	running map[string]struct{}
}

func NewOrchestrator(store storage.Storage, engine SellEngine, notifier ProcessNotifier, interval time.Duration, logger *zap.Logger) *Orchestrator {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Orchestrator{
		store:    store,
		engine:   engine,
		notifier: notifier,
		logger:   logger.Named("simulation"),
		interval: interval,
		running:  make(map[string]struct{}),
	}
}

// SetWalletAddress sets the wallet reported for positions found by the scan
// loop. Directly started positions carry their own wallet.
func (o *Orchestrator) SetWalletAddress(wallet string) { o.wallet = wallet }

// tryAcquire marks a token as having a running process. Reports false when
// one is already running.
func (o *Orchestrator) tryAcquire(tokenAddress string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.running[tokenAddress]; ok {
		return false
	}
	o.running[tokenAddress] = struct{}{}
	return true
}

func (o *Orchestrator) release(tokenAddress string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.running, tokenAddress)
}

func (o *Orchestrator) isRunning(tokenAddress string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.running[tokenAddress]
	return ok
}

// StartMonitoring admits one position into monitoring. Concurrent calls for
// the same token collapse into a single running process.
func (o *Orchestrator) StartMonitoring(ctx context.Context, req trust.MonitorRequest) {
	if req.Balance <= 0 {
		o.logger.Debug("skipping monitoring for empty position",
			zap.String("token", req.TokenAddress))
		return
	}
	if !o.tryAcquire(req.TokenAddress) {
		o.logger.Debug("monitoring already running",
			zap.String("token", req.TokenAddress))
		return
	}

	o.notifier.StartProcess(ctx, process.StartRequest{
		TokenAddress:     req.TokenAddress,
		Balance:          req.Balance,
		IsSimulation:     req.IsSimulation,
		RecommenderID:    req.RecommenderID,
		InitialMarketCap: req.InitialMarketCap,
		WalletAddress:    req.WalletAddress,
	})
	o.logger.Info("monitoring started",
		zap.String("token", req.TokenAddress),
		zap.Float64("balance", req.Balance))
}

// ScanAndStart walks every token with a held balance and ensures each has a
// running monitoring process. Tokens are fanned out with bounded concurrency.
func (o *Orchestrator) ScanAndStart(ctx context.Context) error {
	perfs, err := o.store.ListTokenPerformancesWithBalance(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for _, perf := range perfs {
		perf := perf
		g.Go(func() error {
			recs, err := o.store.ListRecommendationsByToken(ctx, perf.TokenAddress)
			if err != nil {
				return err
			}
			recommenderID := ""
			if len(recs) > 0 {
				recommenderID = recs[len(recs)-1].RecommenderID
			}
			o.StartMonitoring(ctx, trust.MonitorRequest{
				TokenAddress:     perf.TokenAddress,
				Balance:          perf.Balance,
				IsSimulation:     true,
				RecommenderID:    recommenderID,
				InitialMarketCap: perf.InitialMarketCap,
				WalletAddress:    o.wallet,
			})
			return nil
		})
	}
	return g.Wait()
}

// Run rescans held positions at the configured interval until the context is
// canceled. The first scan happens immediately.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.ScanAndStart(ctx); err != nil {
		o.logger.Error("initial position scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := o.ScanAndStart(ctx); err != nil {
				o.logger.Error("position scan failed", zap.Error(err))
			}
		}
	}
}

// HandleSellDirective settles one sell directive. A directive with no open
// trade is treated as already settled. The backend is told to stop after any
// settled sell; the running slot is released only once the position empties.
func (o *Orchestrator) HandleSellDirective(ctx context.Context, d *SellDirective) error {
	summary, err := o.engine.UpdateSellDetails(ctx, &trust.SellDetails{
		TokenAddress:  d.TokenAddress,
		RecommenderID: d.RecommenderID,
		SellAmount:    d.Amount,
		IsSimulation:  true,
	})
	if err != nil {
		if errors.Is(err, trust.ErrNoOpenTrade) {
			o.logger.Info("sell directive had no open trade, ignoring",
				zap.String("token", d.TokenAddress),
				zap.String("recommender_id", d.RecommenderID))
			return nil
		}
		return err
	}

	o.notifier.StopProcess(ctx, d.TokenAddress)
	if summary.RemainingBalance <= 0 {
		o.release(d.TokenAddress)
	}

	o.logger.Info("sell directive settled",
		zap.String("token", d.TokenAddress),
		zap.Float64("amount", d.Amount),
		zap.Float64("profit_usd", summary.ProfitUsd),
		zap.Float64("remaining_balance", summary.RemainingBalance))
	return nil
}
