package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pix_checkout/config"
	"pix_checkout/internal/gateway"
	"pix_checkout/internal/sales"
	"pix_checkout/internal/users"
)

// Deps carries the storage backends for route wiring. Either both stores
// are set (Postgres) or both are the in-memory implementations.
type Deps struct {
	SalesStorage sales.Storage
	UsersStorage users.Storage
}

// NewDeps picks the storage backends: Postgres when a pool is available,
// the in-memory stores otherwise.
func NewDeps(pool *pgxpool.Pool) Deps {
	if pool != nil {
		return Deps{
			SalesStorage: sales.NewPostgresStorage(pool),
			UsersStorage: users.NewPostgresStorage(pool),
		}
	}
	return Deps{
		SalesStorage: sales.NewLocalStorage(),
		UsersStorage: users.NewLocalStorage(),
	}
}

// InitRoutes registers all checkout, webhook and dashboard endpoints on
// the given Gin engine. It initializes the gateway client, services, and
// handlers, then binds each method and path to the appropriate handler.
func InitRoutes(e *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:         cfg.AsaasBaseURL,
		APIToken:        cfg.AsaasAPIToken,
		Description:     cfg.PaymentDescription,
		SplitWalletID:   cfg.SplitWalletID,
		SplitFixedValue: cfg.SplitFixedValue,
	}, logger)

	salesService := sales.NewService(deps.SalesStorage, gatewayClient, logger)
	usersService := users.NewService(deps.UsersStorage, logger)

	checkout := NewCheckoutHandler(salesService, logger)
	webhook := NewWebhookHandler(salesService, usersService, logger)

	e.POST("/sellers/:id/sales", checkout.handleCreateSale)
	e.GET("/sellers/:id/sales", checkout.handleListSales)
	e.POST("/checkout/ebooks", checkout.handleCreateEbookCheckout)
	e.POST("/webhooks/asaas", webhook.handlePaymentEvent)

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}
