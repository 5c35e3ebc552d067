package server

import (
	"net/http"

	"badgeshop/internal/config"
	"badgeshop/internal/handler"
	"badgeshop/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ルーティングに必要なhandler一式
type Handlers struct {
	Auth            *handler.AuthHandler
	Product         *handler.ProductHandler
	Cart            *handler.CartHandler
	Order           *handler.OrderHandler
	Payment         *handler.PaymentHandler
	Promo           *handler.PromoHandler
	Influencer      *handler.InfluencerHandler
	AdminProduct    *handler.AdminProductHandler
	AdminOrder      *handler.AdminOrderHandler
	AdminUser       *handler.AdminUserHandler
	AdminWithdrawal *handler.AdminWithdrawalHandler
	AdminAudit      *handler.AdminAuditHandler
}

type healthResponse struct {
	Status string `json:"status"`
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository, h Handlers, gatherer prometheus.Gatherer) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// 公開
	h.Auth.RegisterRoutes(e)
	h.Product.RegisterRoutes(e)

	// ログイン必須
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Order.RegisterRoutes(e, cfg, userRepo)
	h.Payment.RegisterRoutes(e, cfg, userRepo)
	h.Promo.RegisterRoutes(e, cfg, userRepo)
	h.Influencer.RegisterRoutes(e, cfg, userRepo)

	// ADMIN
	h.AdminProduct.RegisterRoutes(e, cfg, userRepo)
	h.AdminOrder.RegisterRoutes(e, cfg, userRepo)
	h.AdminUser.RegisterRoutes(e)
	h.AdminWithdrawal.RegisterRoutes(e, cfg, userRepo)
	h.AdminAudit.RegisterRoutes(e, cfg, userRepo)
}
