package sales

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when no record matches the given key.
var ErrNotFound = errors.New("sale not found")

// ErrEmptyID is returned when trying to store a sale with an empty ID.
var ErrEmptyID = errors.New("empty sale ID")

// ListFilter narrows a seller's sales listing. Zero values mean "no
// filter" for that field.
type ListFilter struct {
	ProductID int
	From      time.Time
	To        time.Time
	Limit     int
}

// Storage is the main interface for the sales storage layer.
type Storage interface {
	Create(ctx context.Context, sale *Sale) error
	SetGatewayPayment(ctx context.Context, saleID, gatewayPaymentID string) error
	// ConfirmPayment flips the record matching gatewayPaymentID from
	// PENDING_PAY to PAYMENT_CONFIRMED. The second return reports whether
	// this call performed the transition; false with a nil error means the
	// record was already confirmed (duplicate delivery).
	ConfirmPayment(ctx context.Context, gatewayPaymentID string) (*Sale, bool, error)
	ListBySeller(ctx context.Context, sellerID string, filter ListFilter) ([]*Sale, error)
}

// LocalStorage provides an in-memory implementation for storing sales.
type LocalStorage struct {
	mu        sync.Mutex
	m         map[string]*Sale
	byPayment map[string]string
}

// NewLocalStorage instantiates a new LocalStorage with empty indexes.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		m:         map[string]*Sale{},
		byPayment: map[string]string{},
	}
}

// Returns ErrEmptyID if the sale has an empty ID.
func (l *LocalStorage) Create(_ context.Context, sale *Sale) error {
	if sale.ID == "" {
		return ErrEmptyID
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.m[sale.ID] = sale
	if sale.GatewayPaymentID != "" {
		l.byPayment[sale.GatewayPaymentID] = sale.ID
	}
	return nil
}

func (l *LocalStorage) SetGatewayPayment(_ context.Context, saleID, gatewayPaymentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sale, ok := l.m[saleID]
	if !ok {
		return ErrNotFound
	}
	sale.GatewayPaymentID = gatewayPaymentID
	sale.UpdatedAt = time.Now()
	l.byPayment[gatewayPaymentID] = saleID
	return nil
}

func (l *LocalStorage) ConfirmPayment(_ context.Context, gatewayPaymentID string) (*Sale, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	saleID, ok := l.byPayment[gatewayPaymentID]
	if !ok {
		return nil, false, ErrNotFound
	}
	sale := l.m[saleID]
	if sale.Status == StatusPaymentConfirmed {
		return sale, false, nil
	}

	sale.Status = StatusPaymentConfirmed
	sale.UpdatedAt = time.Now()
	return sale, true, nil
}

func (l *LocalStorage) ListBySeller(_ context.Context, sellerID string, filter ListFilter) ([]*Sale, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	results := make([]*Sale, 0)
	for _, sale := range l.m {
		if sale.SellerID != sellerID {
			continue
		}
		if filter.ProductID != 0 && sale.ProductID != filter.ProductID {
			continue
		}
		if !filter.From.IsZero() && sale.UpdatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && sale.UpdatedAt.After(filter.To) {
			continue
		}
		results = append(results, sale)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].UpdatedAt.After(results[j].UpdatedAt)
	})
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}
