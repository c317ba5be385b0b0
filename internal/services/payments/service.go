package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valentina-app/backend/internal/domain/model"
	"github.com/valentina-app/backend/internal/infra/paystack"
	"github.com/valentina-app/backend/internal/metrics"
	pgrepo "github.com/valentina-app/backend/internal/repo/postgres"
)

const currencyNGN = "NGN"

var (
	ErrValidation         = errors.New("validation error")
	ErrPaymentNotVerified = errors.New("payment could not be verified")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

type Gateway interface {
	Verify(ctx context.Context, reference string) (paystack.Transaction, error)
}

type ProfileStore interface {
	Get(ctx context.Context, userID string) (model.Profile, error)
	MarkPaid(ctx context.Context, userID, reference string, amountKobo int64, currency string, now time.Time) (bool, error)
}

type SignupNotifier interface {
	NotifySignupAsync(p model.Profile)
}

type Config struct {
	SignupFeeKobo int64
}

type Service struct {
	gateway  Gateway
	profiles ProfileStore
	notifier SignupNotifier
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

type Dependencies struct {
	Gateway  Gateway
	Profiles ProfileStore
	Notifier SignupNotifier
}

type VerifyResult struct {
	Reference   string
	AlreadyPaid bool
}

func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gateway:  deps.Gateway,
		profiles: deps.Profiles,
		notifier: deps.Notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Verify confirms a signup payment with the gateway and flips the user's
// payment status. Repeating a verified reference is a no-op success.
func (s *Service) Verify(ctx context.Context, userID, reference string) (VerifyResult, error) {
	userID = strings.TrimSpace(userID)
	reference = strings.TrimSpace(reference)
	if userID == "" || reference == "" || len(reference) > 100 {
		return VerifyResult{}, ErrValidation
	}

	tx, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		if errors.Is(err, paystack.ErrTransactionNotFound) {
			metrics.IncPaymentVerified("rejected")
			return VerifyResult{}, ErrPaymentNotVerified
		}
		metrics.IncPaymentVerified("gateway_error")
		s.logger.Error("paystack verify failed", zap.String("reference", reference), zap.Error(err))
		return VerifyResult{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if reason := s.reject(tx, userID); reason != "" {
		metrics.IncPaymentVerified("rejected")
		s.logger.Warn("payment rejected",
			zap.String("reference", reference),
			zap.String("user_id", userID),
			zap.String("reason", reason),
		)
		return VerifyResult{}, ErrPaymentNotVerified
	}

	changed, err := s.profiles.MarkPaid(ctx, userID, reference, tx.Amount, tx.Currency, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrReferenceClaimed) {
			metrics.IncPaymentVerified("rejected")
			return VerifyResult{}, ErrPaymentNotVerified
		}
		return VerifyResult{}, fmt.Errorf("mark paid: %w", err)
	}

	if !changed {
		metrics.IncPaymentVerified("already_paid")
		return VerifyResult{Reference: reference, AlreadyPaid: true}, nil
	}

	metrics.IncPaymentVerified("verified")
	s.logger.Info("payment verified", zap.String("reference", reference), zap.String("user_id", userID), zap.Int64("amount_kobo", tx.Amount))

	if s.notifier != nil {
		p, err := s.profiles.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("load profile for signup email failed", zap.String("user_id", userID), zap.Error(err))
		} else {
			s.notifier.NotifySignupAsync(p)
		}
	}
	return VerifyResult{Reference: reference}, nil
}

func (s *Service) reject(tx paystack.Transaction, userID string) string {
	switch {
	case tx.Status != "success":
		return "status " + tx.Status
	case !strings.EqualFold(tx.Currency, currencyNGN):
		return "currency " + tx.Currency
	case tx.Amount < s.cfg.SignupFeeKobo:
		return "amount below fee"
	case tx.UserID != userID:
		return "metadata user mismatch"
	default:
		return ""
	}
}
