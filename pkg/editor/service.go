// Package editor orchestrates the coin-gated image edit workflow: charge the
// account, transform the image through the external provider, persist the
// output and hand back a long-lived signed link. Post-charge failures refund
// the charge exactly once before surfacing.
package editor

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mindburn-Labs/retouch/pkg/blob"
	"github.com/Mindburn-Labs/retouch/pkg/ledger"
	"github.com/Mindburn-Labs/retouch/pkg/transform"
	"github.com/google/uuid"
)

const (
	// EditCost is the coins debited per edit attempt.
	EditCost int64 = 1

	// StartingCoins is granted once when an account is bootstrapped.
	StartingCoins int64 = 5

	// SignedLinkTTL is the lifetime of the link returned for a generated
	// output. Effectively permanent for the product's purposes.
	SignedLinkTTL = 3650 * 24 * time.Hour
)

// EditResult is the terminal success state of an edit request.
type EditResult struct {
	// OutputRef is the durable object path of the generated image.
	OutputRef string
	// SignedLink is a read-only URL for OutputRef, valid for SignedLinkTTL.
	SignedLink string
}

// Service runs the edit workflow against injected stores and provider client.
// All handles are required; Service holds no ambient global state.
type Service struct {
	coins       ledger.Store
	media       blob.Store
	transformer transform.Client
	logger      *slog.Logger
}

func NewService(coins ledger.Store, media blob.Store, transformer transform.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		coins:       coins,
		media:       media,
		transformer: transformer,
		logger:      logger,
	}
}

// RequestEdit runs the linear edit state machine:
// validate, authorize source, charge, fetch and normalize, transform, persist,
// sign link. No step is retried. Any failure after the charge commits refunds
// EditCost once and re-surfaces the original failure, never the refund's.
//
// Once the charge commits the remaining steps run detached from the caller's
// cancellation, so a disconnected caller cannot strand a debited balance
// mid-workflow.
func (s *Service) RequestEdit(ctx context.Context, accountID, sourceRef, instruction string) (*EditResult, error) {
	if accountID == "" {
		return nil, Errorf(KindUnauthenticated, "missing account identity")
	}
	if sourceRef == "" {
		return nil, Errorf(KindInvalidArgument, "source path is required")
	}
	if instruction == "" {
		return nil, Errorf(KindInvalidArgument, "prompt is required")
	}

	exists, err := s.media.Exists(ctx, sourceRef)
	if err != nil {
		return nil, WrapError(KindInternalError, err, "checking source object")
	}
	if !exists {
		return nil, Errorf(KindNotFound, "source object %q does not exist", sourceRef)
	}

	if err := s.coins.ChargeIfAffordable(ctx, accountID, EditCost); err != nil {
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return nil, WrapError(KindInsufficientFunds, err, "not enough coins for an edit")
		}
		return nil, WrapError(KindInternalError, err, "charging account")
	}

	// Charge committed: run to a terminal state regardless of caller presence.
	ctx = context.WithoutCancel(ctx)

	source, err := s.media.Download(ctx, sourceRef)
	if err != nil {
		return nil, s.refundAndFail(ctx, accountID, WrapError(KindInternalError, err, "downloading source object"))
	}

	normalized, err := transform.Normalize(source)
	if err != nil {
		return nil, s.refundAndFail(ctx, accountID, WrapError(KindInternalError, err, "normalizing source image"))
	}

	output, err := s.transformer.Transform(ctx, normalized, instruction)
	if err != nil {
		return nil, s.refundAndFail(ctx, accountID, WrapError(KindProviderError, err, "image transform failed"))
	}

	outputRef := outputPath(accountID)
	if err := s.media.Upload(ctx, outputRef, output, "image/png"); err != nil {
		return nil, s.refundAndFail(ctx, accountID, WrapError(KindInternalError, err, "persisting generated image"))
	}

	link, err := s.media.SignedURL(ctx, outputRef, SignedLinkTTL)
	if err != nil {
		return nil, s.refundAndFail(ctx, accountID, WrapError(KindInternalError, err, "signing output link"))
	}

	s.logger.Info("edit completed",
		"account_id", accountID,
		"source", sourceRef,
		"output", outputRef)

	return &EditResult{OutputRef: outputRef, SignedLink: link}, nil
}

// AddBalance credits coins to an account.
func (s *Service) AddBalance(ctx context.Context, accountID string, amount int64) error {
	if accountID == "" {
		return Errorf(KindUnauthenticated, "missing account identity")
	}
	if amount <= 0 {
		return Errorf(KindInvalidArgument, "amount must be positive, got %d", amount)
	}
	if err := s.coins.TopUp(ctx, accountID, amount); err != nil {
		return WrapError(KindInternalError, err, "crediting account")
	}
	return nil
}

// Bootstrap seeds a new account with StartingCoins. Safe to call repeatedly;
// only the first call grants the coins.
func (s *Service) Bootstrap(ctx context.Context, accountID string) error {
	if accountID == "" {
		return Errorf(KindInvalidArgument, "account id is required")
	}
	if err := s.coins.CreateAccount(ctx, accountID, StartingCoins); err != nil {
		return WrapError(KindInternalError, err, "creating account")
	}
	return nil
}

// Balance reads the account's current coin balance.
func (s *Service) Balance(ctx context.Context, accountID string) (int64, error) {
	if accountID == "" {
		return 0, Errorf(KindUnauthenticated, "missing account identity")
	}
	balance, err := s.coins.Balance(ctx, accountID)
	if err != nil {
		return 0, WrapError(KindInternalError, err, "reading balance")
	}
	return balance, nil
}

// refundAndFail compensates a committed charge and returns cause unchanged.
// A failed refund is logged, not returned: the caller must see the workflow's
// real failure, and the account's shortfall is an operator concern.
func (s *Service) refundAndFail(ctx context.Context, accountID string, cause error) error {
	if err := s.coins.Refund(ctx, accountID, EditCost); err != nil {
		s.logger.Error("refund compensation failed",
			"account_id", accountID,
			"refund_error", err,
			"workflow_error", cause)
	}
	return cause
}

// outputPath names a fresh generated object under the paying account's
// namespace. Random names make outputs append-only: re-running the same edit
// never overwrites an earlier result.
func outputPath(accountID string) string {
	id := uuid.New()
	return fmt.Sprintf("accounts/%s/generated/%s.png", accountID, hex.EncodeToString(id[:]))
}
