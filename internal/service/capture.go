package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/crowdshop/internal/funds"
	"github.com/Skotchmaster/crowdshop/internal/gateway"
	"github.com/Skotchmaster/crowdshop/internal/models"
	"github.com/Skotchmaster/crowdshop/internal/notify"
	"github.com/Skotchmaster/crowdshop/internal/repo"
	"github.com/Skotchmaster/crowdshop/pkg/logging"
)

var (
	// ErrCaptureInProgress means another capture holds the order's
	// guard, or a previous attempt ended uncertain and the order awaits
	// manual reconciliation.
	ErrCaptureInProgress = errors.New("capture already in progress")

	ErrProjectNotSuccessful = errors.New("project must be successful to capture funds")
)

// CaptureService charges backers of a successful campaign. One gateway
// charge produces exactly one payment record; declines and uncertain
// outcomes produce none.
type CaptureService struct {
	Repo           *repo.GormRepo
	Gateways       *gateway.Registry
	Notifier       notify.Notifier
	Tokens         *funds.TokenSigner
	GatewayTimeout time.Duration

	// Grace period granted to a backer whose card declined.
	PaymentDueWindow time.Duration

	now func() time.Time
}

func NewCaptureService(r *repo.GormRepo, gws *gateway.Registry, n notify.Notifier, tokens *funds.TokenSigner) *CaptureService {
	return &CaptureService{
		Repo:             r,
		Gateways:         gws,
		Notifier:         n,
		Tokens:           tokens,
		GatewayTimeout:   30 * time.Second,
		PaymentDueWindow: 7 * 24 * time.Hour,
		now:              time.Now,
	}
}

// CaptureOutcome reports how one order's capture attempt ended.
// Declines and uncertainty are expected business outcomes, carried as
// values rather than errors.
type CaptureOutcome struct {
	Captured      bool
	Declined      bool
	Uncertain     bool
	Amount        int64
	TransactionID string
}

// CaptureFunds makes one bounded pass over the project's backlog:
// selects up to limit orders with line items still in payment pending
// or unfunded, captures each, and returns (failures, count). Callers
// re-invoke until count is 0 or failures equals count.
func (s *CaptureService) CaptureFunds(ctx context.Context, projectID uint, limit int) (failures, count int, err error) {
	project, err := s.Repo.GetProject(ctx, projectID)
	if err != nil {
		return 0, 0, err
	}
	if !project.Successful {
		return 0, 0, fmt.Errorf("project %d: %w", projectID, ErrProjectNotSuccessful)
	}

	l := logging.FromContext(ctx).With("project", projectID)
	l.Info("capture_funds: begin", "limit", limit)

	orders, err := s.Repo.EligibleOrders(ctx, projectID, limit)
	if err != nil {
		return 0, 0, err
	}
	for i := range orders {
		order := &orders[i]
		outcome, err := s.CaptureOrder(ctx, project, order)
		count++
		if err != nil {
			failures++
			l.Error("capture_funds: order error", "order", order.ID, "error", err)
			continue
		}
		if !outcome.Captured {
			failures++
		}
	}
	l.Info("capture_funds: done", "failures", failures, "count", count)
	return failures, count, nil
}

// CaptureOrder captures the amount currently due on one order. The
// order's capture guard is held for the whole gateway call so a
// concurrent or retried invocation can never double-charge: it fails
// with ErrCaptureInProgress instead.
func (s *CaptureService) CaptureOrder(ctx context.Context, project *models.Project, order *models.Order) (CaptureOutcome, error) {
	l := logging.FromContext(ctx).With("order", order.ID, "project", project.ID)
	l.Info("capture_order: begin")

	locked, err := s.Repo.AcquireCaptureLock(ctx, order.ID)
	if err != nil {
		return CaptureOutcome{}, err
	}
	if !locked {
		return CaptureOutcome{}, fmt.Errorf("order %d: %w", order.ID, ErrCaptureInProgress)
	}

	outcome, err := s.captureLocked(ctx, l, project, order)
	if err == nil && outcome.Uncertain {
		// Park the order in the uncertain state so an operator can tell
		// a reconciliation case from a crashed capture still holding the
		// guard. Retries stay refused until someone resolves it with the
		// processor and resets the state to idle.
		if serr := s.Repo.SetCaptureState(ctx, order.ID, models.CaptureStateUncertain); serr != nil {
			err = serr
		}
	} else {
		if rerr := s.Repo.SetCaptureState(ctx, order.ID, models.CaptureStateIdle); rerr != nil && err == nil {
			err = rerr
		}
	}
	return outcome, err
}

func (s *CaptureService) captureLocked(ctx context.Context, l *slog.Logger, project *models.Project, order *models.Order) (CaptureOutcome, error) {
	// Required pre-step: items still unfunded are upgraded to payment
	// pending before any capture attempt.
	if err := s.updateUnfunded(ctx, project, order); err != nil {
		return CaptureOutcome{}, err
	}

	due, err := s.Repo.AmountDue(ctx, order.ID)
	if err != nil {
		return CaptureOutcome{}, err
	}
	authorized, err := s.Repo.AuthorizedAmount(ctx, order.ID)
	if err != nil {
		return CaptureOutcome{}, err
	}
	amount := due - authorized
	if amount <= 0 {
		l.Info("capture_order: nothing due", "due", due, "authorized", authorized)
		return CaptureOutcome{Captured: true}, nil
	}

	gw, err := s.Gateways.Lookup(order.Gateway)
	if err != nil {
		return CaptureOutcome{}, err
	}
	profile, err := gw.ResolveProfile(ctx, order.MethodRef)
	if err != nil {
		return CaptureOutcome{}, err
	}

	gctx, cancel := context.WithTimeout(ctx, s.GatewayTimeout)
	defer cancel()
	result, gerr := profile.AuthorizeAndCapture(gctx, gateway.CaptureRequest{
		Amount:              amount,
		Description:         fmt.Sprintf("order #%d", order.ID),
		StatementDescriptor: project.Name,
		IP:                  order.IPAddress,
		UserAgent:           order.UserAgent,
		Referrer:            order.Referrer,
	})

	switch {
	case gerr == nil:
		return s.captureSucceeded(ctx, l, project, order, amount, result)
	case gateway.IsDeclined(gerr):
		return s.captureDeclined(ctx, l, project, order, gerr)
	default:
		// Timeout or any other unknown outcome. Park the order for
		// manual reconciliation; retrying blindly risks a double
		// charge.
		l.Error("capture_order: outcome uncertain, manual reconciliation required", "error", gerr)
		return CaptureOutcome{Uncertain: true}, nil
	}
}

func (s *CaptureService) captureSucceeded(ctx context.Context, l *slog.Logger, project *models.Project, order *models.Order, amount int64, result *gateway.CaptureResult) (CaptureOutcome, error) {
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		items, err := r.OrderProjectItems(ctx, order.ID, project.ID, models.StatusPaymentPending)
		if err != nil {
			return err
		}
		for i := range items {
			if err := items[i].UpdateStatus(models.StatusWaiting); err != nil {
				return err
			}
			if err := r.SaveCartItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		return r.CreatePayment(ctx, &models.Payment{
			OrderID:          order.ID,
			Amount:           amount,
			TransactionID:    result.TransactionID,
			Descriptor:       fmt.Sprintf("order #%d", order.ID),
			AVSAddressResult: result.AVSAddressResult,
			AVSZipResult:     result.AVSZipResult,
			CCVResult:        result.CCVResult,
			CardType:         result.CardType,
			CreatedBy:        order.UserID,
			CreatedAt:        s.now(),
		})
	})
	if err != nil {
		return CaptureOutcome{}, err
	}

	if err := s.Notifier.SendPaymentConfirmation(ctx, project, order, amount); err != nil {
		// The charge went through; a lost notification must not fail
		// the capture.
		l.Warn("capture_order: confirmation notify failed", "error", err)
	}
	l.Info("capture_order: captured", "amount", amount, "transaction_id", result.TransactionID)
	return CaptureOutcome{Captured: true, Amount: amount, TransactionID: result.TransactionID}, nil
}

func (s *CaptureService) captureDeclined(ctx context.Context, l *slog.Logger, project *models.Project, order *models.Order, gerr error) (CaptureOutcome, error) {
	err := s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		items, err := r.OrderProjectItems(ctx, order.ID, project.ID, models.StatusPaymentPending)
		if err != nil {
			return err
		}
		for i := range items {
			if err := items[i].UpdateStatus(models.StatusPaymentFailed); err != nil {
				return err
			}
			if err := r.SaveCartItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return CaptureOutcome{}, err
	}

	dueDate := s.now().Add(s.PaymentDueWindow)
	resumeLink := s.Tokens.UpdatePaymentURL(order.ID, project.ID, s.now())
	if err := s.Notifier.SendPaymentUpdateDue(ctx, project, order, dueDate, resumeLink); err != nil {
		l.Warn("capture_order: update-due notify failed", "error", err)
	}
	l.Warn("capture_order: declined", "error", gerr)
	return CaptureOutcome{Declined: true}, nil
}

// updateUnfunded upgrades the order's unfunded line items for the
// project to payment pending.
func (s *CaptureService) updateUnfunded(ctx context.Context, project *models.Project, order *models.Order) error {
	return s.Repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := s.Repo.WithTx(tx)
		items, err := r.OrderProjectItems(ctx, order.ID, project.ID, models.StatusUnfunded)
		if err != nil {
			return err
		}
		for i := range items {
			if err := items[i].UpdateStatus(models.StatusPaymentPending); err != nil {
				return err
			}
			if err := r.SaveCartItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
}
