package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gudangkita/backend/internal/domain"
	"gudangkita/backend/internal/store"
	"gudangkita/backend/internal/xid"
)

// InitiateTransfer records one pending transfer_out movement per item, all
// sharing a fresh transfer id. Nothing moves yet; quantities change only on
// approval. Every item must name a product the source branch actually
// stocks, and stock on hand must cover the requested quantity at this
// moment (approval re-checks nothing: a concurrent drain clamps instead).
func (s *Service) InitiateTransfer(ctx context.Context, req domain.TransferRequest) (*domain.TransferResponse, error) {
	if req.FromBranchID == "" || req.ToBranchID == "" {
		return nil, fmt.Errorf("%w: from_branch_id and to_branch_id are required", store.ErrValidation)
	}
	if req.FromBranchID == req.ToBranchID {
		return nil, fmt.Errorf("%w: transfer branches must differ", store.ErrValidation)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: transfer needs at least one item", store.ErrValidation)
	}

	for i, item := range req.Items {
		name := strings.TrimSpace(item.ProductName)
		if name == "" {
			return nil, fmt.Errorf("%w: item %d has no product name", store.ErrValidation, i)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %q quantity must be positive", store.ErrValidation, name)
		}
		source, err := s.repo.FindStockItem(ctx, req.FromBranchID, name)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: branch %s does not stock %q", store.ErrValidation, req.FromBranchID, name)
		}
		if err != nil {
			return nil, err
		}
		if source.QuantityAvailable < item.Quantity {
			return nil, fmt.Errorf("%w: branch %s has %d of %q, requested %d",
				store.ErrValidation, req.FromBranchID, source.QuantityAvailable, name, item.Quantity)
		}
	}

	actor := ActorFromContext(ctx)
	transferID := xid.New("trf")
	now := time.Now().UTC()

	movements := make([]domain.Movement, 0, len(req.Items))
	for _, item := range req.Items {
		created, err := s.repo.CreateMovement(ctx, domain.Movement{
			Type:         domain.MovementTransferOut,
			FromBranchID: req.FromBranchID,
			ToBranchID:   req.ToBranchID,
			ProductID:    item.ProductID,
			ProductName:  strings.TrimSpace(item.ProductName),
			Quantity:     item.Quantity,
			UnitCost:     item.UnitCost,
			TotalCost:    item.UnitCost * float64(item.Quantity),
			Status:       domain.MovementStatusPending,
			TransferID:   transferID,
			RequestedBy:  actor.Username,
			Reason:       req.Reason,
			CreatedAt:    now,
		})
		if err != nil {
			// Movements already written stay pending under this transfer id;
			// rejecting the transfer cleans them up.
			log.Printf("[service] WARN: transfer %s aborted after %d of %d items: %v", transferID, len(movements), len(req.Items), err)
			return nil, fmt.Errorf("record transfer item %q: %w", item.ProductName, err)
		}
		movements = append(movements, *created)
	}

	return &domain.TransferResponse{TransferID: transferID, Movements: movements}, nil
}

// ApproveTransfer applies the sibling movements of one transfer in creation
// order: deduct at the source, credit at the destination, mark completed.
// Siblings already completed are skipped, so re-driving a half-applied
// transfer finishes the remainder without double-moving anything. The first
// store failure stops the run; the caller gets every item's outcome in a
// PartialBatchError and re-approves once the store is back.
func (s *Service) ApproveTransfer(ctx context.Context, transferID string) (*domain.TransferApprovalResponse, error) {
	movements, err := s.repo.ListMovements(ctx, domain.MovementFilter{TransferID: transferID})
	if err != nil {
		return nil, err
	}
	if len(movements) == 0 {
		return nil, fmt.Errorf("%w: transfer %s", store.ErrNotFound, transferID)
	}

	actor := ActorFromContext(ctx)
	now := time.Now().UTC()
	results := make([]domain.TransferItemResult, 0, len(movements))
	failed := false

	for i, movement := range movements {
		switch movement.Status {
		case domain.MovementStatusCompleted:
			results = append(results, domain.TransferItemResult{
				MovementID:  movement.ID,
				ProductName: movement.ProductName,
				Status:      "skipped",
				Detail:      "already applied",
			})
			continue
		case domain.MovementStatusRejected:
			results = append(results, domain.TransferItemResult{
				MovementID:  movement.ID,
				ProductName: movement.ProductName,
				Status:      "skipped",
				Detail:      "rejected",
			})
			continue
		}

		if failed {
			results = append(results, domain.TransferItemResult{
				MovementID:  movement.ID,
				ProductName: movement.ProductName,
				Status:      "pending",
				Detail:      "not attempted, re-approve the transfer",
			})
			continue
		}

		if err := s.applyMovementEffect(ctx, movement); err != nil {
			failed = true
			results = append(results, domain.TransferItemResult{
				MovementID:  movement.ID,
				ProductName: movement.ProductName,
				Status:      "failed",
				Detail:      err.Error(),
			})
			log.Printf("[service] transfer %s stopped at item %d/%d: %v", transferID, i+1, len(movements), err)
			continue
		}

		movement.Status = domain.MovementStatusCompleted
		movement.ApprovedBy = actor.Username
		movement.ApprovedAt = &now
		if _, err := s.repo.UpdateMovement(ctx, movement); err != nil {
			// Stock moved but the ledger still says pending. A re-approve
			// will re-apply this item, so surface it as failed rather than
			// silently leaving the ledger behind.
			failed = true
			results = append(results, domain.TransferItemResult{
				MovementID:  movement.ID,
				ProductName: movement.ProductName,
				Status:      "failed",
				Detail:      fmt.Sprintf("stock applied but ledger update failed: %v", err),
			})
			log.Printf("[service] WARN: transfer %s item %s applied to stock but not marked completed: %v", transferID, movement.ID, err)
			continue
		}

		results = append(results, domain.TransferItemResult{
			MovementID:  movement.ID,
			ProductName: movement.ProductName,
			Status:      "applied",
		})
	}

	if failed {
		return nil, &store.PartialBatchError{Op: "approve transfer " + transferID, Results: results}
	}
	return &domain.TransferApprovalResponse{TransferID: transferID, Results: results}, nil
}

// RejectTransfer marks every still-pending sibling rejected. Completed
// siblings keep their applied stock; rejection is not a rollback.
func (s *Service) RejectTransfer(ctx context.Context, transferID string, reason string) (*domain.TransferApprovalResponse, error) {
	movements, err := s.repo.ListMovements(ctx, domain.MovementFilter{TransferID: transferID})
	if err != nil {
		return nil, err
	}
	if len(movements) == 0 {
		return nil, fmt.Errorf("%w: transfer %s", store.ErrNotFound, transferID)
	}

	actor := ActorFromContext(ctx)
	now := time.Now().UTC()
	results := make([]domain.TransferItemResult, 0, len(movements))

	for _, movement := range movements {
		if movement.Status != domain.MovementStatusPending {
			results = append(results, domain.TransferItemResult{
				MovementID:  movement.ID,
				ProductName: movement.ProductName,
				Status:      "skipped",
				Detail:      string(movement.Status),
			})
			continue
		}

		movement.Status = domain.MovementStatusRejected
		movement.ApprovedBy = actor.Username
		movement.ApprovedAt = &now
		if reason != "" {
			movement.Reason = reason
		}
		if _, err := s.repo.UpdateMovement(ctx, movement); err != nil {
			return nil, fmt.Errorf("reject transfer item %s: %w", movement.ID, err)
		}
		results = append(results, domain.TransferItemResult{
			MovementID:  movement.ID,
			ProductName: movement.ProductName,
			Status:      "applied",
		})
	}

	return &domain.TransferApprovalResponse{TransferID: transferID, Results: results}, nil
}
