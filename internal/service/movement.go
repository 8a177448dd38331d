package service

import (
	"context"
	"fmt"
	"time"

	"gudangkita/backend/internal/domain"
	"gudangkita/backend/internal/store"
)

// CreateMovement validates and records one ledger entry. Sales and refunds
// hit stock immediately and enter the ledger completed; every other type
// starts pending and only touches stock on approval.
func (s *Service) CreateMovement(ctx context.Context, req domain.MovementCreateRequest) (*domain.Movement, error) {
	if err := validateMovementRequest(req); err != nil {
		return nil, err
	}
	actor := ActorFromContext(ctx)
	now := time.Now().UTC()

	movement := domain.Movement{
		Type:         req.Type,
		FromBranchID: req.FromBranchID,
		ToBranchID:   req.ToBranchID,
		ProductID:    req.ProductID,
		ProductName:  req.ProductName,
		Quantity:     req.Quantity,
		UnitCost:     req.UnitCost,
		TotalCost:    req.UnitCost * float64(req.Quantity),
		Status:       domain.MovementStatusPending,
		RequestedBy:  actor.Username,
		Reason:       req.Reason,
		CreatedAt:    now,
	}

	if req.Type == domain.MovementSale || req.Type == domain.MovementRefund {
		if err := s.applyMovementEffect(ctx, movement); err != nil {
			return nil, err
		}
		movement.Status = domain.MovementStatusCompleted
		movement.ApprovedBy = actor.Username
		movement.ApprovedAt = &now
	}

	return s.repo.CreateMovement(ctx, movement)
}

func (s *Service) GetMovement(ctx context.Context, id string) (*domain.Movement, error) {
	return s.repo.GetMovementByID(ctx, id)
}

func (s *Service) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown movement type %q", store.ErrValidation, filter.Type)
	}
	return s.repo.ListMovements(ctx, filter)
}

// ApproveMovement moves a pending entry to completed and applies its stock
// effect. Approving an already completed movement is a no-op returning the
// record as is, so retried approvals never double-apply.
func (s *Service) ApproveMovement(ctx context.Context, id string) (*domain.Movement, error) {
	movement, err := s.repo.GetMovementByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch movement.Status {
	case domain.MovementStatusCompleted:
		return movement, nil
	case domain.MovementStatusRejected:
		return nil, fmt.Errorf("%w: movement %s is rejected", store.ErrInvalidState, id)
	case domain.MovementStatusPending, domain.MovementStatusApproved:
	default:
		return nil, fmt.Errorf("%w: movement %s has unknown status %q", store.ErrInvalidState, id, movement.Status)
	}

	if err := s.applyMovementEffect(ctx, *movement); err != nil {
		return nil, err
	}

	actor := ActorFromContext(ctx)
	now := time.Now().UTC()
	movement.Status = domain.MovementStatusCompleted
	movement.ApprovedBy = actor.Username
	movement.ApprovedAt = &now
	return s.repo.UpdateMovement(ctx, *movement)
}

// RejectMovement marks a pending entry rejected. Rejection never touches
// stock. Rejecting twice is a no-op; rejecting a completed entry fails.
func (s *Service) RejectMovement(ctx context.Context, id string, reason string) (*domain.Movement, error) {
	movement, err := s.repo.GetMovementByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch movement.Status {
	case domain.MovementStatusRejected:
		return movement, nil
	case domain.MovementStatusCompleted:
		return nil, fmt.Errorf("%w: movement %s is already completed", store.ErrInvalidState, id)
	case domain.MovementStatusPending, domain.MovementStatusApproved:
	default:
		return nil, fmt.Errorf("%w: movement %s has unknown status %q", store.ErrInvalidState, id, movement.Status)
	}

	actor := ActorFromContext(ctx)
	now := time.Now().UTC()
	movement.Status = domain.MovementStatusRejected
	movement.ApprovedBy = actor.Username
	movement.ApprovedAt = &now
	if reason != "" {
		movement.Reason = reason
	}
	return s.repo.UpdateMovement(ctx, *movement)
}

// applyMovementEffect dispatches the stock change for one movement by type.
// The switch is exhaustive over the closed type set.
func (s *Service) applyMovementEffect(ctx context.Context, movement domain.Movement) error {
	switch movement.Type {
	case domain.MovementNewStock:
		_, err := s.upsertStock(ctx, movement.ToBranchID, movement.ProductID, movement.ProductName, movement.Quantity, movement.UnitCost)
		return err
	case domain.MovementTransferOut:
		if _, err := s.upsertStock(ctx, movement.FromBranchID, movement.ProductID, movement.ProductName, -movement.Quantity, 0); err != nil {
			return fmt.Errorf("deduct %s: %w", movement.FromBranchID, err)
		}
		if _, err := s.upsertStock(ctx, movement.ToBranchID, movement.ProductID, movement.ProductName, movement.Quantity, movement.UnitCost); err != nil {
			return fmt.Errorf("credit %s: %w", movement.ToBranchID, err)
		}
		return nil
	case domain.MovementTransferIn:
		_, err := s.upsertStock(ctx, movement.ToBranchID, movement.ProductID, movement.ProductName, movement.Quantity, movement.UnitCost)
		return err
	case domain.MovementSale:
		_, err := s.upsertStock(ctx, movement.FromBranchID, movement.ProductID, movement.ProductName, -movement.Quantity, 0)
		return err
	case domain.MovementRefund:
		_, err := s.upsertStock(ctx, movement.ToBranchID, movement.ProductID, movement.ProductName, movement.Quantity, 0)
		return err
	case domain.MovementPurchaseOrder:
		// Ledger-only: the stock arrives via purchase_receive or an order
		// completion, never through the order entry itself.
		return nil
	case domain.MovementPurchaseReceive:
		_, err := s.upsertStock(ctx, movement.ToBranchID, movement.ProductID, movement.ProductName, movement.Quantity, movement.UnitCost)
		return err
	}
	return fmt.Errorf("%w: unknown movement type %q", store.ErrValidation, movement.Type)
}

func validateMovementRequest(req domain.MovementCreateRequest) error {
	if !req.Type.IsValid() {
		return fmt.Errorf("%w: unknown movement type %q", store.ErrValidation, req.Type)
	}
	if req.ProductName == "" {
		return fmt.Errorf("%w: product name is required", store.ErrValidation)
	}
	if req.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
	}
	if req.UnitCost < 0 {
		return fmt.Errorf("%w: unit cost cannot be negative", store.ErrValidation)
	}

	switch req.Type {
	case domain.MovementNewStock, domain.MovementTransferIn, domain.MovementRefund, domain.MovementPurchaseReceive:
		if req.ToBranchID == "" {
			return fmt.Errorf("%w: %s requires to_branch_id", store.ErrValidation, req.Type)
		}
	case domain.MovementSale:
		if req.FromBranchID == "" {
			return fmt.Errorf("%w: sale requires from_branch_id", store.ErrValidation)
		}
	case domain.MovementTransferOut:
		if req.FromBranchID == "" || req.ToBranchID == "" {
			return fmt.Errorf("%w: transfer requires from_branch_id and to_branch_id", store.ErrValidation)
		}
		if req.FromBranchID == req.ToBranchID {
			return fmt.Errorf("%w: transfer branches must differ", store.ErrValidation)
		}
	case domain.MovementPurchaseOrder:
	}
	return nil
}
