package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrCustomerCreation is returned when the gateway rejects or fails the
// create-customer call.
var ErrCustomerCreation = errors.New("gateway customer creation failed")

// ErrPaymentCreation is returned when the customer exists but the
// create-payment call fails.
var ErrPaymentCreation = errors.New("gateway payment creation failed")

// Config carries the gateway credentials and the fixed charge parameters.
// It is injected once at construction; nothing is read from the
// environment at call time.
type Config struct {
	BaseURL         string
	APIToken        string
	Description     string
	SplitWalletID   string
	SplitFixedValue float64
}

// PaymentLink is the normalized result of a successful link generation.
type PaymentLink struct {
	PaymentID  string
	CustomerID string
	InvoiceURL string
}

// Client wraps the two Asaas calls needed to charge a buyer.
type Client struct {
	http   *resty.Client
	cfg    Config
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("access_token", cfg.APIToken).
		SetTimeout(15 * time.Second)

	return &Client{
		http:   http,
		cfg:    cfg,
		logger: logger,
	}
}

type customerResponse struct {
	ID string `json:"id"`
}

type paymentResponse struct {
	ID         string `json:"id"`
	Customer   string `json:"customer"`
	InvoiceURL string `json:"invoiceUrl"`
}

type splitEntry struct {
	WalletID   string  `json:"walletId"`
	FixedValue float64 `json:"fixedValue"`
}

// CreatePaymentLink registers the buyer as a gateway customer and creates a
// PIX charge against them, due tomorrow, with the configured revenue split.
// The two steps fail independently: errors wrap ErrCustomerCreation or
// ErrPaymentCreation so callers can tell which call broke. No retries.
func (c *Client) CreatePaymentLink(ctx context.Context, name, taxID string, amount float64) (PaymentLink, error) {
	customerID, err := c.createCustomer(ctx, name, taxID)
	if err != nil {
		return PaymentLink{}, err
	}

	payment, err := c.createPayment(ctx, customerID, amount)
	if err != nil {
		return PaymentLink{}, err
	}

	c.logger.Info("payment link generated",
		zap.String("gateway_payment_id", payment.ID),
		zap.String("gateway_customer_id", payment.Customer),
	)

	return PaymentLink{
		PaymentID:  payment.ID,
		CustomerID: payment.Customer,
		InvoiceURL: payment.InvoiceURL,
	}, nil
}

func (c *Client) createCustomer(ctx context.Context, name, taxID string) (string, error) {
	var out customerResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"name": name,
			"cpf":  taxID,
		}).
		SetResult(&out).
		Post("/api/v3/customers")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCustomerCreation, err)
	}
	if !resp.IsSuccess() {
		return "", fmt.Errorf("%w: gateway returned status %d", ErrCustomerCreation, resp.StatusCode())
	}

	return out.ID, nil
}

func (c *Client) createPayment(ctx context.Context, customerID string, amount float64) (paymentResponse, error) {
	var out paymentResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"customer":    customerID,
			"billingType": "PIX",
			"value":       amount,
			"dueDate":     time.Now().AddDate(0, 0, 1).Format("2006-01-02"),
			"description": c.cfg.Description,
			"split": []splitEntry{
				{WalletID: c.cfg.SplitWalletID, FixedValue: c.cfg.SplitFixedValue},
			},
		}).
		SetResult(&out).
		Post("/api/v3/payments")
	if err != nil {
		return paymentResponse{}, fmt.Errorf("%w: %v", ErrPaymentCreation, err)
	}
	if !resp.IsSuccess() {
		return paymentResponse{}, fmt.Errorf("%w: gateway returned status %d", ErrPaymentCreation, resp.StatusCode())
	}

	return out, nil
}
