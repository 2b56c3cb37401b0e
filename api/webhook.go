package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pix_checkout/internal/sales"
	"pix_checkout/internal/users"
)

// webhookHandler reconciles gateway-pushed payment events against local
// sale records and triggers commission settlement.
type webhookHandler struct {
	salesService *sales.Service
	usersService *users.Service
	logger       *zap.Logger
}

func NewWebhookHandler(salesService *sales.Service, usersService *users.Service, logger *zap.Logger) *webhookHandler {
	return &webhookHandler{
		salesService: salesService,
		usersService: usersService,
		logger:       logger,
	}
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payment struct {
		ID string `json:"id"`
	} `json:"payment"`
}

// handlePaymentEvent handles POST /webhooks/asaas. The gateway delivers
// at-least-once, so every answer is HTTP 200: a non-2xx would trigger a
// redelivery storm. Unrecognized events, unknown payment ids and malformed
// bodies are all acknowledged without mutation.
func (h *webhookHandler) handlePaymentEvent(ctx *gin.Context) {
	var event webhookEvent
	if err := ctx.ShouldBindJSON(&event); err != nil {
		h.logger.Warn("malformed webhook body", zap.Error(err))
		ctx.JSON(http.StatusOK, gin.H{"status": "success", "message": "webhook ignored"})
		return
	}

	if event.Event != "PAYMENT_CONFIRMED" && event.Event != "PAYMENT_RECEIVED" {
		ctx.JSON(http.StatusOK, gin.H{"status": "success", "message": "webhook ignored"})
		return
	}

	sale, transitioned, err := h.salesService.ConfirmPayment(ctx.Request.Context(), event.Payment.ID)
	if errors.Is(err, sales.ErrNotFound) {
		// Correlation miss: the gateway knows a payment we never recorded.
		// Acknowledged so the gateway stops redelivering, but logged since
		// it can hide a real bug.
		h.logger.Warn("webhook for unknown payment id",
			zap.String("event", event.Event),
			zap.String("gateway_payment_id", event.Payment.ID),
		)
		ctx.JSON(http.StatusOK, gin.H{"status": "success", "message": "webhook ignored"})
		return
	}
	if err != nil {
		h.logger.Error("failed to confirm payment",
			zap.String("gateway_payment_id", event.Payment.ID),
			zap.Error(err),
		)
		ctx.JSON(http.StatusOK, gin.H{"status": "error", "response": "confirmation failed"})
		return
	}

	if !transitioned {
		// Duplicate delivery: the transition already happened and the
		// commission was already applied.
		ctx.JSON(http.StatusOK, gin.H{"status": "success", "response": "already processed"})
		return
	}

	if err := h.usersService.Settle(ctx.Request.Context(), sale.ProductID, sale.SellerID); err != nil {
		h.logger.Error("settlement failed after confirmation",
			zap.String("sale_id", sale.ID),
			zap.Int("product_id", sale.ProductID),
			zap.String("seller_id", sale.SellerID),
			zap.Error(err),
		)
		ctx.JSON(http.StatusOK, gin.H{"status": "error", "response": "sale confirmed, settlement pending"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "success", "response": "sale confirmed"})
}
