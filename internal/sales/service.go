package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pix_checkout/internal/gateway"
)

// ErrInvalidBirthDate is returned when the birth date is not dd-mm-yyyy.
var ErrInvalidBirthDate = errors.New("invalid birth date")

// ErrPaymentGeneration is returned when the sale was persisted but no
// payment link could be obtained. The pending row stays behind without a
// gateway id; nothing in this flow deletes or retries it.
var ErrPaymentGeneration = errors.New("payment link generation failed")

// PaymentLinkCreator is the slice of the gateway client the intake flow
// needs.
type PaymentLinkCreator interface {
	CreatePaymentLink(ctx context.Context, name, taxID string, amount float64) (gateway.PaymentLink, error)
}

// Service provides sale intake, reconciliation, and listing on a Storage
// backend.
type Service struct {
	storage Storage
	gateway PaymentLinkCreator
	logger  *zap.Logger
}

// NewService creates a new Service.
func NewService(storage Storage, gw PaymentLinkCreator, logger *zap.Logger) *Service {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	return &Service{
		storage: storage,
		gateway: gw,
		logger:  logger,
	}
}

// IntakeRequest carries the validated form fields of a checkout submission.
type IntakeRequest struct {
	Kind      string
	CPF       string
	Name      string
	BirthDate string // dd-mm-yyyy, optional for ebook checkouts
	Email     string
	Whatsapp  string
	ProductID int
	SellerID  string
	Amount    float64 // 0 means "use the product price"
}

// CreateSale normalizes the buyer data, persists a pending sale, asks the
// gateway for a payment link and records the returned payment id on the
// sale. On gateway failure the persisted row is left PENDING_PAY with no
// gateway id and ErrPaymentGeneration is returned.
func (s *Service) CreateSale(ctx context.Context, req IntakeRequest) (*Sale, string, error) {
	birthDate := ""
	if req.BirthDate != "" {
		parsed, err := NormalizeBirthDate(req.BirthDate)
		if err != nil {
			return nil, "", err
		}
		birthDate = parsed
	}

	amount := req.Amount
	if amount <= 0 {
		amount = ProductPrice(req.ProductID)
	}

	now := time.Now()
	sale := &Sale{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		CPF:       DigitsOnly(req.CPF),
		Name:      req.Name,
		BirthDate: birthDate,
		Email:     req.Email,
		Whatsapp:  DigitsOnly(req.Whatsapp),
		ProductID: req.ProductID,
		SellerID:  req.SellerID,
		Amount:    amount,
		Status:    StatusPendingPay,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.Create(ctx, sale); err != nil {
		s.logger.Error("failed to save sale", zap.String("sale_id", sale.ID), zap.Error(err))
		return nil, "", fmt.Errorf("failed to save sale: %w", err)
	}

	link, err := s.gateway.CreatePaymentLink(ctx, sale.Name, sale.CPF, sale.Amount)
	if err != nil {
		s.logger.Error("failed to generate payment link",
			zap.String("sale_id", sale.ID),
			zap.String("seller_id", sale.SellerID),
			zap.Error(err),
		)
		return nil, "", fmt.Errorf("%w: %v", ErrPaymentGeneration, err)
	}

	if err := s.storage.SetGatewayPayment(ctx, sale.ID, link.PaymentID); err != nil {
		s.logger.Error("failed to record gateway payment id",
			zap.String("sale_id", sale.ID),
			zap.String("gateway_payment_id", link.PaymentID),
			zap.Error(err),
		)
		return nil, "", fmt.Errorf("failed to record gateway payment id: %w", err)
	}
	sale.GatewayPaymentID = link.PaymentID

	s.logger.Info("sale created",
		zap.String("sale_id", sale.ID),
		zap.String("gateway_payment_id", link.PaymentID),
		zap.Int("product_id", sale.ProductID),
	)
	return sale, link.InvoiceURL, nil
}

// ConfirmPayment applies the PENDING_PAY -> PAYMENT_CONFIRMED transition
// for the record matching the gateway payment id. The bool reports whether
// this call won the transition; ErrNotFound means no record correlates.
func (s *Service) ConfirmPayment(ctx context.Context, gatewayPaymentID string) (*Sale, bool, error) {
	sale, transitioned, err := s.storage.ConfirmPayment(ctx, gatewayPaymentID)
	if err != nil {
		return nil, false, err
	}
	if !transitioned {
		s.logger.Info("duplicate payment confirmation ignored",
			zap.String("gateway_payment_id", gatewayPaymentID),
			zap.String("sale_id", sale.ID),
		)
	}
	return sale, transitioned, nil
}

// SalesMetadata aggregates a listing result for the dashboard.
type SalesMetadata struct {
	Quantity    int     `json:"quantity"`
	Confirmed   int     `json:"confirmed"`
	Pending     int     `json:"pending"`
	TotalAmount float64 `json:"total_amount"`
}

// ListBySeller returns a seller's sales, newest-updated first, capped at
// 30, along with aggregate metadata.
func (s *Service) ListBySeller(ctx context.Context, sellerID string, filter ListFilter) ([]*Sale, SalesMetadata, error) {
	if filter.Limit == 0 {
		filter.Limit = 30
	}

	results, err := s.storage.ListBySeller(ctx, sellerID, filter)
	if err != nil {
		s.logger.Error("failed to list sales", zap.String("seller_id", sellerID), zap.Error(err))
		return nil, SalesMetadata{}, fmt.Errorf("failed to retrieve sales: %w", err)
	}

	metadata := SalesMetadata{}
	for _, sale := range results {
		metadata.Quantity++
		metadata.TotalAmount += sale.Amount
		switch sale.Status {
		case StatusPaymentConfirmed:
			metadata.Confirmed++
		case StatusPendingPay:
			metadata.Pending++
		}
	}

	return results, metadata, nil
}

// DigitsOnly strips everything but digits from CPF/whatsapp style inputs.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeBirthDate converts dd-mm-yyyy to yyyy-mm-dd.
func NormalizeBirthDate(s string) (string, error) {
	parsed, err := time.Parse("02-01-2006", s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidBirthDate, s)
	}
	return parsed.Format("2006-01-02"), nil
}
