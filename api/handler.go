package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pix_checkout/internal/sales"
)

// checkoutHandler holds the sales service and implements the buyer-facing
// and dashboard HTTP handlers.
type checkoutHandler struct {
	salesService *sales.Service
	logger       *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(salesService *sales.Service, logger *zap.Logger) *checkoutHandler {
	return &checkoutHandler{
		salesService: salesService,
		logger:       logger,
	}
}

// handleCreateSale handles the POST /sellers/:id/sales form submission.
// On success the buyer is redirected to the gateway's hosted payment page;
// on failure they are redirected back with a user-facing error.
func (h *checkoutHandler) handleCreateSale(ctx *gin.Context) {
	var req struct {
		CPF       string  `form:"cpf" binding:"required"`
		Name      string  `form:"cliente" binding:"required"`
		BirthDate string  `form:"dataNascimento" binding:"required"`
		Email     string  `form:"email"`
		Whatsapp  string  `form:"whatsapp" binding:"required"`
		ProductID int     `form:"produto"`
		Amount    float64 `form:"valor"`
	}

	if err := ctx.ShouldBind(&req); err != nil {
		h.logger.Warn("failed to bind sale form", zap.Error(err))
		h.redirectBack(ctx, "Dados incompletos. Verifique o formulario e tente novamente.")
		return
	}

	sale, link, err := h.salesService.CreateSale(ctx.Request.Context(), sales.IntakeRequest{
		Kind:      sales.KindSale,
		CPF:       req.CPF,
		Name:      req.Name,
		BirthDate: req.BirthDate,
		Email:     req.Email,
		Whatsapp:  req.Whatsapp,
		ProductID: req.ProductID,
		SellerID:  ctx.Param("id"),
		Amount:    req.Amount,
	})
	if err != nil {
		h.logger.Error("failed to create sale",
			zap.String("seller_id", ctx.Param("id")),
			zap.Error(err),
		)
		switch {
		case errors.Is(err, sales.ErrInvalidBirthDate):
			h.redirectBack(ctx, "Data de nascimento invalida. Use o formato dd-mm-aaaa.")
		case errors.Is(err, sales.ErrPaymentGeneration):
			h.redirectBack(ctx, "Erro ao gerar o pagamento. Tente novamente mais tarde ou fale com nosso suporte.")
		default:
			h.redirectBack(ctx, "Falha no cadastro. Tente novamente mais tarde ou fale com nosso suporte.")
		}
		return
	}

	h.logger.Info("buyer redirected to payment page", zap.String("sale_id", sale.ID))
	ctx.Redirect(http.StatusFound, link)
}

// handleCreateEbookCheckout handles POST /checkout/ebooks, the JSON ebook
// purchase flow. The charge amount comes from the product price table.
func (h *checkoutHandler) handleCreateEbookCheckout(ctx *gin.Context) {
	var req struct {
		CPF      string `json:"cpf" binding:"required"`
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email"`
		Product  int    `json:"product" binding:"required"`
		SellerID string `json:"seller" binding:"required"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	sale, link, err := h.salesService.CreateSale(ctx.Request.Context(), sales.IntakeRequest{
		Kind:      sales.KindEbook,
		CPF:       req.CPF,
		Name:      req.Name,
		Email:     req.Email,
		ProductID: req.Product,
		SellerID:  req.SellerID,
	})
	if err != nil {
		h.logger.Error("failed to create ebook checkout",
			zap.String("seller_id", req.SellerID),
			zap.Error(err),
		)
		if errors.Is(err, sales.ErrPaymentGeneration) {
			ctx.JSON(http.StatusBadGateway, gin.H{"error": "failed to generate payment"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"id":          sale.ID,
		"paymentLink": link,
	})
}

// handleListSales handles GET /sellers/:id/sales for the dashboard:
// a seller's latest sales, optionally filtered by product and date range.
func (h *checkoutHandler) handleListSales(ctx *gin.Context) {
	filter := sales.ListFilter{}

	var query struct {
		Product int    `form:"product"`
		From    string `form:"from"`
		To      string `form:"to"`
	}
	if err := ctx.ShouldBindQuery(&query); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}
	filter.ProductID = query.Product

	if query.From != "" && query.To != "" {
		from, err := time.Parse("2006-01-02", query.From)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		to, err := time.Parse("2006-01-02", query.To)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		// Make the range inclusive of the whole end day.
		filter.From = from
		filter.To = to.AddDate(0, 0, 1)
	}

	results, metadata, err := h.salesService.ListBySeller(ctx.Request.Context(), ctx.Param("id"), filter)
	if err != nil {
		h.logger.Error("failed to list sales",
			zap.String("seller_id", ctx.Param("id")),
			zap.Error(err),
		)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sales"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"results": results, "metadata": metadata})
}

func (h *checkoutHandler) redirectBack(ctx *gin.Context, message string) {
	target := ctx.Request.Referer()
	if target == "" {
		target = "/"
	}
	ctx.Redirect(http.StatusFound, target+"?error="+url.QueryEscape(message))
}
