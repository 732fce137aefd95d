package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"updown/internal/audit"
	"updown/internal/chain"
	"updown/internal/config"
	cronrunner "updown/internal/cron"
	"updown/internal/db"
	"updown/internal/handler"
	"updown/internal/logger"
	"updown/internal/models"
	"updown/internal/pricefeed"
	gormrepository "updown/internal/repository/gorm"
	"updown/internal/service"

	_ "updown/docs"
)

func main() {
	cfgPath := os.Getenv("UD_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("UD_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store, Logger: logger}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	priceClient := pricefeed.NewClient(cfg.PriceFeed.BaseURL, cfg.PriceFeed.Timeout)

	var ledger chain.Ledger
	if cfg.Chain.RPCURL != "" && cfg.Chain.RouterAddress != "" && cfg.Chain.ExecutorKey != "" {
		router, err := chain.NewRouter(cfg.Chain)
		if err != nil {
			logger.Warn("chain router init failed (chain mirroring disabled)", zap.Error(err))
		} else {
			ledger = router
			logger.Info("chain router ready", zap.String("address", cfg.Chain.RouterAddress))
		}
	}

	auditClient := initAuditClient(cfg.Audit, logger)

	locks := service.NewRoomLocks()
	lifecycleSvc := &service.RoomLifecycleService{
		Repo:               store,
		Chain:              ledger,
		Prices:             priceClient,
		Logger:             logger,
		Flags:              settingsSvc,
		Locks:              locks,
		MaxDurationMinutes: cfg.Rooms.MaxDurationMinutes,
	}
	ledgerSvc := &service.PredictionLedgerService{
		Repo:   store,
		Chain:  ledger,
		Logger: logger,
		Flags:  settingsSvc,
		Locks:  locks,
	}
	reconcileSvc := &service.ReconcileService{
		Repo:              store,
		Prices:            priceClient,
		Chain:             ledger,
		Audit:             auditClient,
		Logger:            logger,
		Flags:             settingsSvc,
		Locks:             locks,
		Config:            cfg.Reconciler,
		MaxPriceStaleness: cfg.PriceFeed.MaxStaleness,
	}
	claimSvc := &service.ClaimService{
		Repo:   store,
		Chain:  ledger,
		Audit:  auditClient,
		Logger: logger,
		Flags:  settingsSvc,
		Locks:  locks,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(handler.RequireBearer(cfg.Server.BearerToken))
	engine.Use(audit.WriteAuditMiddleware(auditClient))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(engine)
	roomHandler := &handler.RoomHandler{Repo: store, Lifecycle: lifecycleSvc, Reconciler: reconcileSvc}
	roomHandler.Register(engine)
	predictionHandler := &handler.PredictionHandler{Repo: store, Ledger: ledgerSvc}
	predictionHandler.Register(engine)
	settlementHandler := &handler.SettlementHandler{Repo: store}
	settlementHandler.Register(engine)
	claimHandler := &handler.ClaimHandler{Repo: store, Claims: claimSvc}
	claimHandler.Register(engine)
	priceHandler := &handler.PriceHandler{Repo: store, Prices: priceClient, MaxStaleness: cfg.PriceFeed.MaxStaleness}
	priceHandler.Register(engine)
	settingsHandler := &handler.SettingsHandler{Repo: store, Settings: settingsSvc}
	settingsHandler.Register(engine)

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	baseCtx := ctx

	go func() {
		reconcileSvc.Run(baseCtx)
	}()

	cronRunner := cronrunner.New(logger, baseCtx)
	refreshSpec := "@every " + cfg.PriceFeed.RefreshInterval.String()
	_, err = cronRunner.Add(refreshSpec, func(ctx context.Context) {
		refreshPrices(ctx, store, priceClient, cfg.PriceFeed.Symbols, logger)
	})
	if err != nil {
		logger.Warn("cron register price refresh failed", zap.Error(err))
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	if settingsSvc.IsEnabled(baseCtx, service.FeaturePriceStream, true) {
		stream := pricefeed.NewStream(pricefeed.StreamOptions{
			URL:     cfg.PriceFeed.WSURL,
			Symbols: cfg.PriceFeed.Symbols,
			Logger:  logger,
		})
		go func() {
			err := stream.Run(baseCtx, func(tick pricefeed.Tick) {
				upsertCtx, cancel := context.WithTimeout(baseCtx, 2*time.Second)
				defer cancel()
				err := store.UpsertPriceTick(upsertCtx, &models.PriceTick{
					Symbol:    tick.Symbol,
					Price:     tick.Price,
					Source:    "ws",
					UpdatedAt: tick.At,
				})
				if err != nil {
					logger.Warn("price tick upsert failed", zap.String("symbol", tick.Symbol), zap.Error(err))
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("price stream stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// refreshPrices polls the REST feed for the configured symbols so settlement
// has a recent tick even when the websocket stream is down or disabled.
func refreshPrices(ctx context.Context, store *gormrepository.Store, client *pricefeed.Client, symbols []string, logger *zap.Logger) {
	for _, symbol := range symbols {
		price, at, err := client.GetPrice(ctx, symbol)
		if err != nil {
			logger.Warn("price refresh failed", zap.String("symbol", symbol), zap.Error(err))
			continue
		}
		err = store.UpsertPriceTick(ctx, &models.PriceTick{
			Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
			Price:     price,
			Source:    "rest",
			UpdatedAt: at,
		})
		if err != nil {
			logger.Warn("price tick upsert failed", zap.String("symbol", symbol), zap.Error(err))
		}
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func initAuditClient(cfg config.AuditConfig, logger *zap.Logger) *audit.Client {
	base := strings.TrimSpace(cfg.BaseURL)
	apiKey := strings.TrimSpace(cfg.APIKey)
	if base == "" || apiKey == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &audit.Client{
		BaseURL: base,
		APIKey:  apiKey,
		Service: "updown",
		Logger:  logger,
		HTTP:    &http.Client{Timeout: timeout},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Login(ctx); err != nil {
		logger.Warn("audit login failed (events disabled)", zap.Error(err))
		return nil
	}
	logger.Info("audit login ok")
	return client
}
