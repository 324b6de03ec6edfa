// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rovshanmuradov/trust-engine/internal/storage"
	"github.com/rovshanmuradov/trust-engine/internal/storage/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// gormLogger bridges GORM's logger.Interface onto zap.
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger: zapLogger,
		logLevel:  logger.Warn,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}

	if l.logLevel >= logger.Info {
		l.zapLogger.Info("trace", fields...)
	}
}

// postgresStorage implements the Storage interface on Postgres via GORM.
type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStorage(dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	gormLogger := newGormLogger(zapLogger.Named("gorm"))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &postgresStorage{
		db:     db,
		logger: zapLogger,
	}, nil
}

func (p *postgresStorage) RunMigrations() error {
	var lockObtained bool
	err := p.db.Raw("SELECT pg_try_advisory_lock(217)").Scan(&lockObtained).Error
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer p.db.Exec("SELECT pg_advisory_unlock(217)")

	err = p.db.AutoMigrate(
		&models.Recommender{},
		&models.RecommenderMetrics{},
		&models.RecommenderMetricsHistory{},
		&models.TokenPerformance{},
		&models.TokenRecommendation{},
		&models.TradePerformance{},
		&models.Transaction{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

func (p *postgresStorage) GetOrCreateRecommender(ctx context.Context, r *models.Recommender) (*models.Recommender, error) {
	// Insert-if-absent keyed on recommender_id; concurrent callers converge
	// on the row that won the insert.
	err := p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recommender_id"}},
			DoNothing: true,
		}).
		Create(r).Error
	if err != nil {
		return nil, fmt.Errorf("create recommender: %w", err)
	}

	var stored models.Recommender
	err = p.db.WithContext(ctx).
		Where("recommender_id = ?", r.RecommenderID).
		First(&stored).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

func (p *postgresStorage) GetRecommender(ctx context.Context, recommenderID string) (*models.Recommender, error) {
	var r models.Recommender
	err := p.db.WithContext(ctx).Where("recommender_id = ?", recommenderID).First(&r).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (p *postgresStorage) GetRecommenderByPlatform(ctx context.Context, platform, handle string) (*models.Recommender, error) {
	var column string
	switch platform {
	case "telegram":
		column = "telegram_id"
	case "discord":
		column = "discord_id"
	case "twitter":
		column = "twitter_id"
	case "solana":
		column = "solana_pubkey"
	default:
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}

	var r models.Recommender
	err := p.db.WithContext(ctx).Where(column+" = ?", handle).First(&r).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (p *postgresStorage) GetRecommenderMetrics(ctx context.Context, recommenderID string) (*models.RecommenderMetrics, error) {
	var m models.RecommenderMetrics
	err := p.db.WithContext(ctx).Where("recommender_id = ?", recommenderID).First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (p *postgresStorage) SaveRecommenderMetrics(ctx context.Context, m *models.RecommenderMetrics) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "recommender_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"trust_score", "total_recommendations", "successful_recs",
				"avg_token_performance", "risk_score", "consistency_score",
				"virtual_confidence", "last_active_date", "trust_decay",
				"last_updated", "updated_at",
			}),
		}).
		Create(m).Error
}

func (p *postgresStorage) AddMetricsHistory(ctx context.Context, h *models.RecommenderMetricsHistory) error {
	return p.db.WithContext(ctx).Create(h).Error
}

func (p *postgresStorage) UpsertTokenPerformance(ctx context.Context, perf *models.TokenPerformance) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "token_address"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"symbol", "price_change24h", "volume_change24h", "trade_change24h",
				"liquidity_change24h", "holder_change24h", "rug_pull", "is_scam",
				"market_cap_change24h", "sustained_growth", "rapid_dump",
				"suspicious_volume", "validation_trust", "balance",
				"initial_market_cap", "last_updated", "updated_at",
			}),
		}).
		Create(perf).Error
}

func (p *postgresStorage) GetTokenPerformance(ctx context.Context, tokenAddress string) (*models.TokenPerformance, error) {
	var perf models.TokenPerformance
	err := p.db.WithContext(ctx).Where("token_address = ?", tokenAddress).First(&perf).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &perf, nil
}

func (p *postgresStorage) ListTokenPerformancesWithBalance(ctx context.Context) ([]*models.TokenPerformance, error) {
	var perfs []*models.TokenPerformance
	err := p.db.WithContext(ctx).Where("balance > 0").Find(&perfs).Error
	return perfs, err
}

func (p *postgresStorage) UpdateTokenBalance(ctx context.Context, tokenAddress string, balance float64) error {
	return p.db.WithContext(ctx).Model(&models.TokenPerformance{}).
		Where("token_address = ?", tokenAddress).
		Updates(map[string]interface{}{
			"balance":      balance,
			"last_updated": time.Now().UTC(),
		}).Error
}

func (p *postgresStorage) AddTokenRecommendation(ctx context.Context, rec *models.TokenRecommendation) error {
	return p.db.WithContext(ctx).Create(rec).Error
}

func (p *postgresStorage) ListRecommendationsByToken(ctx context.Context, tokenAddress string) ([]*models.TokenRecommendation, error) {
	var recs []*models.TokenRecommendation
	err := p.db.WithContext(ctx).
		Where("token_address = ?", tokenAddress).
		Order("timestamp desc").
		Find(&recs).Error
	return recs, err
}

func (p *postgresStorage) ListRecommendationsByDateRange(ctx context.Context, start, end time.Time) ([]*models.TokenRecommendation, error) {
	var recs []*models.TokenRecommendation
	err := p.db.WithContext(ctx).
		Where("timestamp >= ? AND timestamp <= ?", start, end).
		Order("timestamp asc").
		Find(&recs).Error
	return recs, err
}

func (p *postgresStorage) AddTradePerformance(ctx context.Context, trade *models.TradePerformance) error {
	return p.db.WithContext(ctx).Create(trade).Error
}

func (p *postgresStorage) GetLatestTradePerformance(ctx context.Context, tokenAddress, recommenderID string, isSimulation bool) (*models.TradePerformance, error) {
	var trade models.TradePerformance
	err := p.db.WithContext(ctx).
		Where("token_address = ? AND recommender_id = ? AND is_simulation = ? AND sell_timestamp IS NULL",
			tokenAddress, recommenderID, isSimulation).
		Order("buy_timestamp desc").
		First(&trade).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &trade, nil
}

func (p *postgresStorage) UpdateTradePerformanceOnSell(ctx context.Context, trade *models.TradePerformance) error {
	return p.db.WithContext(ctx).Model(&models.TradePerformance{}).
		Where("token_address = ? AND recommender_id = ? AND buy_timestamp = ? AND sell_timestamp IS NULL",
			trade.TokenAddress, trade.RecommenderID, trade.BuyTimestamp).
		Updates(map[string]interface{}{
			"sell_timestamp":    trade.SellTimestamp,
			"sell_price":        trade.SellPrice,
			"sell_amount":       trade.SellAmount,
			"sell_value_usd":    trade.SellValueUsd,
			"sell_market_cap":   trade.SellMarketCap,
			"sell_liquidity":    trade.SellLiquidity,
			"profit_usd":        trade.ProfitUsd,
			"profit_percent":    trade.ProfitPercent,
			"market_cap_change": trade.MarketCapChange,
			"liquidity_change":  trade.LiquidityChange,
			"rapid_dump":        trade.RapidDump,
		}).Error
}

func (p *postgresStorage) AddTransaction(ctx context.Context, tx *models.Transaction) error {
	return p.db.WithContext(ctx).Create(tx).Error
}

func (p *postgresStorage) CalculateValidationTrust(ctx context.Context, tokenAddress string) (float64, error) {
	var trust float64
	err := p.db.WithContext(ctx).Raw(`
		SELECT COALESCE(AVG(m.trust_score), 0)
		FROM recommender_metrics m
		WHERE m.recommender_id IN (
			SELECT DISTINCT r.recommender_id
			FROM token_recommendations r
			WHERE r.token_address = ?
		)`, tokenAddress).Scan(&trust).Error
	if err != nil {
		return 0, fmt.Errorf("calculate validation trust: %w", err)
	}
	return trust, nil
}
