package users

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pix_checkout/internal/sales"
)

// Service applies product-specific post-payment effects.
type Service struct {
	storage Storage
	logger  *zap.Logger
}

func NewService(storage Storage, logger *zap.Logger) *Service {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Settle applies the commission owed for a confirmed sale. The consulting
// product pays a two-level differential commission: the seller earns their
// own flat rate, the sponsor earns only the delta between their rate and
// the seller's. Sellers without a sponsor keep just their own rate. Every
// other product settles as a no-op.
//
// Both credits happen in one transaction under row locks, so a settlement
// either lands completely or not at all.
func (s *Service) Settle(ctx context.Context, productID int, sellerID string) error {
	switch productID {
	case sales.ProductConsulting:
		return s.settleConsulting(ctx, sellerID)
	default:
		return nil
	}
}

func (s *Service) settleConsulting(ctx context.Context, sellerID string) error {
	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback()

	seller, err := s.storage.GetForUpdate(ctx, tx, sellerID)
	if err != nil {
		return fmt.Errorf("failed to load seller %s: %w", sellerID, err)
	}

	if err := s.storage.Credit(ctx, tx, seller.ID, seller.CommissionRate); err != nil {
		return fmt.Errorf("failed to credit seller %s: %w", seller.ID, err)
	}

	if seller.SponsorID != nil {
		sponsor, err := s.storage.GetForUpdate(ctx, tx, *seller.SponsorID)
		switch {
		case errors.Is(err, ErrNotFound):
			// Dangling sponsor reference. The seller keeps their own rate
			// and nobody else gets credited.
			s.logger.Warn("sponsor not found, crediting seller only",
				zap.String("seller_id", seller.ID),
				zap.String("sponsor_id", *seller.SponsorID),
			)
		case err != nil:
			return fmt.Errorf("failed to load sponsor %s: %w", *seller.SponsorID, err)
		default:
			if err := s.storage.Credit(ctx, tx, sponsor.ID, sponsor.CommissionRate-seller.CommissionRate); err != nil {
				return fmt.Errorf("failed to credit sponsor %s: %w", sponsor.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settlement: %w", err)
	}

	s.logger.Info("commission settled",
		zap.String("seller_id", seller.ID),
		zap.Float64("seller_commission", seller.CommissionRate),
	)
	return nil
}
