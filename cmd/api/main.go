package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"badgeshop/internal/config"
	"badgeshop/internal/handler"
	"badgeshop/internal/infra/cache"
	"badgeshop/internal/infra/db"
	"badgeshop/internal/infra/events"
	"badgeshop/internal/infra/gateway"
	"badgeshop/internal/infra/invoicepdf"
	"badgeshop/internal/infra/mailer"
	infraRepo "badgeshop/internal/infra/repository"
	"badgeshop/internal/logging"
	"badgeshop/internal/metrics"
	"badgeshop/internal/server"
	"badgeshop/internal/usecase"
	"badgeshop/internal/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("err", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	//redisは任意（無ければ行ロックだけで直列化）
	var (
		lock         usecase.SettlementLock = cache.NopLock{}
		productCache usecase.ProductCache
	)
	if cfg.Redis.URL != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn("redis unavailable, settlement lock and product cache disabled", slog.Any("err", err))
		} else {
			defer rdb.Close()
			lock = cache.NewRedisLock(rdb, log)
			productCache = cache.NewRedisProductCache(rdb)
		}
	}

	//kafkaも任意
	var publisher usecase.EventPublisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka, log)
		defer kp.Close()
		publisher = kp
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	resetTokenRepo := infraRepo.NewPasswordResetTokenRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	webhookRepo := infraRepo.NewWebhookEventGormRepository(gormDB)
	tx := infraRepo.NewTxManagerGorm(gormDB)

	//外部サービス
	cashfree := gateway.NewCashfree(cfg.Cashfree)
	razorpay := gateway.NewRazorpay(cfg.Razorpay)
	notifier := mailer.New(cfg.Mail, cfg.Shop.AdminEmail, log)
	invoices := invoicepdf.NewRenderer("Badge Shop")

	//Usecase生成
	commission := usecase.NewCommissionCalculator(tx, cfg.Shop, nil, log)
	authUC := usecase.NewAuthUsecase(cfg, userRepo, resetTokenRepo, validator.NewAuthValidator(userRepo), notifier, log)
	productUC := usecase.NewProductUsecase(productRepo, auditRepo, productCache, log)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo)
	promoUC := usecase.NewPromoUsecase(tx, cfg.Shop, nil)
	orderUC := usecase.NewOrderUsecase(usecase.OrderUsecaseDeps{
		Tx:         tx,
		Shop:       cfg.Shop,
		APIBaseURL: cfg.APIBaseURL,
		FEURL:      cfg.FEURL,
		Gateways: map[string]usecase.PaymentGateway{
			gateway.NameCashfree: cashfree,
			gateway.NameRazorpay: razorpay,
		},
		Commission: commission,
		Validator:  validator.NewCheckoutValidator(),
		Invoices:   invoices,
		Events:     publisher,
		Metrics:    m,
		Log:        log,
	})
	settlementUC := usecase.NewSettlementUsecase(usecase.SettlementDeps{
		Tx:         tx,
		Webhooks:   webhookRepo,
		Commission: commission,
		Lock:       lock,
		Notifier:   notifier,
		Invoices:   invoices,
		Events:     publisher,
		Metrics:    m,
		Cashfree:   cashfree,
		Razorpay:   razorpay,
		Log:        log,
	})
	withdrawalUC := usecase.NewWithdrawalUsecase(usecase.WithdrawalDeps{
		Tx:        tx,
		Shop:      cfg.Shop,
		Validator: validator.NewWithdrawalValidator(),
		Notifier:  notifier,
		Events:    publisher,
		Metrics:   m,
		Log:       log,
	})
	influencerUC := usecase.NewInfluencerUsecase(tx, commission)
	adminOrderUC := usecase.NewAdminOrderUsecase(tx, settlementUC)
	adminUserUC := usecase.NewAdminUserUsecase(tx)

	//Handler生成
	e := server.New(cfg, log)
	server.RegisterRoutes(e, cfg, userRepo, server.Handlers{
		Auth:            handler.NewAuthHandler(authUC, cfg, userRepo),
		Product:         handler.NewProductHandler(productUC),
		Cart:            handler.NewCartHandler(cartUC),
		Order:           handler.NewOrderHandler(orderUC),
		Payment:         handler.NewPaymentHandler(settlementUC, log),
		Promo:           handler.NewPromoHandler(promoUC),
		Influencer:      handler.NewInfluencerHandler(influencerUC, withdrawalUC),
		AdminProduct:    handler.NewAdminProductHandler(productUC),
		AdminOrder:      handler.NewAdminOrderHandler(adminOrderUC),
		AdminUser:       handler.NewAdminUserHandler(cfg, userRepo, authUC, adminUserUC),
		AdminWithdrawal: handler.NewAdminWithdrawalHandler(withdrawalUC),
		AdminAudit:      handler.NewAdminAuditHandler(usecase.NewAuditLogUsecase(auditRepo)),
	}, reg)

	//Server起動
	return server.Start(ctx, e, server.Addr(cfg.Port), log)
}
