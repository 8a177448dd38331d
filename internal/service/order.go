package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gudangkita/backend/internal/domain"
	"gudangkita/backend/internal/store"
)

// CreateOrder records a purchase order in draft with its line items. Totals
// are computed here, never trusted from the caller.
func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (*domain.OrderResponse, error) {
	if strings.TrimSpace(req.SupplierName) == "" {
		return nil, fmt.Errorf("%w: supplier name is required", store.ErrValidation)
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: order needs at least one item", store.ErrValidation)
	}

	total := 0.0
	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductName) == "" {
			return nil, fmt.Errorf("%w: item %d has no product name", store.ErrValidation, i)
		}
		if item.QuantityOrdered <= 0 {
			return nil, fmt.Errorf("%w: item %q quantity must be positive", store.ErrValidation, item.ProductName)
		}
		if item.PurchasePricePerUnit < 0 {
			return nil, fmt.Errorf("%w: item %q price cannot be negative", store.ErrValidation, item.ProductName)
		}
		total += item.PurchasePricePerUnit * float64(item.QuantityOrdered)
	}

	actor := ActorFromContext(ctx)
	now := time.Now().UTC()
	orderDate := now
	if req.OrderDate != nil {
		orderDate = req.OrderDate.UTC()
	}

	order, err := s.repo.CreateOrder(ctx, domain.Order{
		SupplierName:         strings.TrimSpace(req.SupplierName),
		OrderDate:            orderDate,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		TotalAmount:          total,
		AmountPaid:           0,
		BalanceRemaining:     total,
		Status:               domain.OrderStatusOrdered,
		ApprovalStatus:       domain.ApprovalDraft,
		RequestedBy:          actor.Username,
		CreatedAt:            now,
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		created, err := s.repo.CreateOrderItem(ctx, domain.OrderItem{
			OrderID:              order.ID,
			ProductName:          strings.TrimSpace(item.ProductName),
			QuantityOrdered:      item.QuantityOrdered,
			PurchasePricePerUnit: item.PurchasePricePerUnit,
			BranchDestinationID:  item.BranchDestinationID,
		})
		if err != nil {
			log.Printf("[service] WARN: order %s created with %d of %d items: %v", order.ID, len(items), len(req.Items), err)
			return nil, fmt.Errorf("record order item %q: %w", item.ProductName, err)
		}
		items = append(items, *created)
	}

	return &domain.OrderResponse{Order: *order, Items: items}, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.OrderResponse, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.OrderResponse{Order: *order, Items: items}, nil
}

func (s *Service) ListOrders(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	return s.repo.ListOrders(ctx, status, limit)
}

func (s *Service) ListOrderReceives(ctx context.Context, orderID string) ([]domain.PurchaseReceive, error) {
	if _, err := s.repo.GetOrderByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListPurchaseReceives(ctx, orderID)
}

// ApproveOrder moves a draft order to approved. Only draft orders move.
func (s *Service) ApproveOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.setOrderApproval(ctx, id, domain.ApprovalApproved)
}

func (s *Service) RejectOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.setOrderApproval(ctx, id, domain.ApprovalRejected)
}

func (s *Service) setOrderApproval(ctx context.Context, id string, target domain.ApprovalStatus) (*domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.ApprovalStatus == target {
		return order, nil
	}
	if order.ApprovalStatus != domain.ApprovalDraft {
		return nil, fmt.Errorf("%w: order %s is %s", store.ErrInvalidState, id, order.ApprovalStatus)
	}

	order.ApprovalStatus = target
	order.ApprovedBy = ActorFromContext(ctx).Username
	return s.repo.UpdateOrder(ctx, *order)
}

// RecordOrderPayment adds one payment to an order. The balance never goes
// negative: overpayment pins it at zero and the order reads as paid.
func (s *Service) RecordOrderPayment(ctx context.Context, id string, req domain.OrderPaymentRequest) (*domain.Order, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", store.ErrValidation)
	}

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: order %s is completed", store.ErrInvalidState, id)
	}

	order.AmountPaid += req.Amount
	order.BalanceRemaining = order.TotalAmount - order.AmountPaid
	if order.BalanceRemaining < 0 {
		order.BalanceRemaining = 0
	}

	// Payment status only moves within the payment band; delivery statuses
	// already past it are kept.
	switch order.Status {
	case domain.OrderStatusOrdered, domain.OrderStatusPartiallyPaid, domain.OrderStatusPaid:
		if order.BalanceRemaining == 0 {
			order.Status = domain.OrderStatusPaid
		} else {
			order.Status = domain.OrderStatusPartiallyPaid
		}
	}

	return s.repo.UpdateOrder(ctx, *order)
}

// ReceiveOrderItems records goods arriving against an approved order. Lines
// in good condition credit the destination branch and write a completed
// purchase_receive ledger entry; damaged lines stay in the receive document
// only. Lines naming a product the order never listed are reported and
// skipped. A store failure mid-run surfaces the per-line outcomes in a
// PartialBatchError; already-counted lines are visible in quantity_received.
func (s *Service) ReceiveOrderItems(ctx context.Context, orderID string, req domain.OrderReceiveRequest) (*domain.OrderReceiveResponse, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: receive needs at least one item", store.ErrValidation)
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ApprovalStatus != domain.ApprovalApproved {
		return nil, fmt.Errorf("%w: order %s is %s, only approved orders receive goods", store.ErrInvalidState, orderID, order.ApprovalStatus)
	}
	if order.Status == domain.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: order %s is completed", store.ErrInvalidState, orderID)
	}

	orderItems, err := s.repo.ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	itemsByName := make(map[string]*domain.OrderItem, len(orderItems))
	for i := range orderItems {
		itemsByName[strings.ToLower(orderItems[i].ProductName)] = &orderItems[i]
	}

	actor := ActorFromContext(ctx)
	now := time.Now().UTC()
	receivedDate := now
	if req.ReceivedDate != nil {
		receivedDate = req.ReceivedDate.UTC()
	}

	results := make([]domain.TransferItemResult, 0, len(req.Items))
	failed := false

	for _, line := range req.Items {
		name := strings.TrimSpace(line.ProductName)
		orderItem, listed := itemsByName[strings.ToLower(name)]
		switch {
		case name == "" || line.QuantityReceived <= 0:
			results = append(results, domain.TransferItemResult{
				ProductName: name,
				Status:      "skipped",
				Detail:      "missing product name or non-positive quantity",
			})
			continue
		case !listed:
			results = append(results, domain.TransferItemResult{
				ProductName: name,
				Status:      "skipped",
				Detail:      "not on this order",
			})
			continue
		case line.Condition == domain.ConditionDamaged:
			results = append(results, domain.TransferItemResult{
				ProductName: name,
				Status:      "skipped",
				Detail:      "damaged, not added to stock",
			})
			continue
		}

		branchID := line.BranchID
		if branchID == "" {
			branchID = orderItem.BranchDestinationID
		}
		if branchID == "" {
			results = append(results, domain.TransferItemResult{
				ProductName: name,
				Status:      "skipped",
				Detail:      "no destination branch",
			})
			continue
		}

		unitCost := line.UnitCost
		if unitCost == 0 {
			unitCost = orderItem.PurchasePricePerUnit
		}

		if _, err := s.upsertStock(ctx, branchID, "", name, line.QuantityReceived, unitCost); err != nil {
			failed = true
			results = append(results, domain.TransferItemResult{
				ProductName: name,
				Status:      "failed",
				Detail:      err.Error(),
			})
			continue
		}

		movement, err := s.repo.CreateMovement(ctx, domain.Movement{
			Type:        domain.MovementPurchaseReceive,
			ToBranchID:  branchID,
			ProductName: name,
			Quantity:    line.QuantityReceived,
			UnitCost:    unitCost,
			TotalCost:   unitCost * float64(line.QuantityReceived),
			Status:      domain.MovementStatusCompleted,
			TransferID:  orderID,
			RequestedBy: actor.Username,
			ApprovedBy:  actor.Username,
			Reason:      "purchase receive for order " + orderID,
			CreatedAt:   now,
			ApprovedAt:  &now,
		})
		if err != nil {
			log.Printf("[service] WARN: receive for order %s: stock credited but ledger entry failed for %q: %v", orderID, name, err)
		}

		orderItem.QuantityReceived += line.QuantityReceived
		if _, err := s.repo.UpdateOrderItem(ctx, *orderItem); err != nil {
			// Keep the in-memory count in step with the store, otherwise the
			// all-received check below would trust a quantity that was never
			// persisted.
			orderItem.QuantityReceived -= line.QuantityReceived
			failed = true
			results = append(results, domain.TransferItemResult{
				ProductName: name,
				Status:      "failed",
				Detail:      fmt.Sprintf("stock applied but order item update failed: %v", err),
			})
			continue
		}

		result := domain.TransferItemResult{ProductName: name, Status: "applied"}
		if movement != nil {
			result.MovementID = movement.ID
		}
		results = append(results, result)
	}

	// A failed line means the store is misbehaving; leave the order where it
	// was and let the caller re-drive the remaining lines. The per-line
	// outcomes tell it which goods were already counted.
	if failed {
		return nil, &store.PartialBatchError{Op: "receive order " + orderID, Results: results}
	}

	allReceived := len(orderItems) > 0
	for _, item := range orderItems {
		if item.QuantityReceived < item.QuantityOrdered {
			allReceived = false
			break
		}
	}

	receiveStatus := domain.ReceivePartial
	if allReceived {
		receiveStatus = domain.ReceiveComplete
	}
	receive, err := s.repo.CreatePurchaseReceive(ctx, domain.PurchaseReceive{
		OrderID:       orderID,
		ReceivedDate:  receivedDate,
		ReceiveStatus: receiveStatus,
		ReceivedBy:    actor.Username,
		Items:         req.Items,
	})
	if err != nil {
		log.Printf("[service] WARN: receive for order %s: goods counted but receive document failed: %v", orderID, err)
		return nil, &store.PartialBatchError{Op: "receive order " + orderID, Results: results}
	}

	if allReceived {
		order.Status = domain.OrderStatusReceived
	} else {
		order.Status = domain.OrderStatusDelivered
	}
	order, err = s.repo.UpdateOrder(ctx, *order)
	if err != nil {
		log.Printf("[service] WARN: receive for order %s: goods counted but order status update failed: %v", orderID, err)
		return nil, &store.PartialBatchError{Op: "receive order " + orderID, Results: results}
	}

	return &domain.OrderReceiveResponse{Order: *order, Receive: *receive, Results: results}, nil
}

// CompleteOrder force-closes an order from the caller's item list: each
// valid line credits its branch and writes a completed purchase_order
// ledger entry, invalid lines are reported and skipped, and the order ends
// completed with its payment reconciled to the full total regardless of
// what was actually paid. This is the back-office escape hatch for orders
// whose paperwork never caught up with the goods.
func (s *Service) CompleteOrder(ctx context.Context, orderID string, req domain.OrderCompleteRequest) (*domain.OrderCompleteResponse, error) {
	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == domain.OrderStatusCompleted {
		return nil, fmt.Errorf("%w: order %s is already completed", store.ErrInvalidState, orderID)
	}

	actor := ActorFromContext(ctx)
	now := time.Now().UTC()
	results := make([]domain.TransferItemResult, 0, len(req.Items))
	failed := false

	for _, item := range req.Items {
		name := strings.TrimSpace(item.ProductName)
		switch {
		case name == "":
			results = append(results, domain.TransferItemResult{
				ProductName: name,
				Status:      "skipped",
				Detail:      "missing product name",
			})
			continue
		case item.Quantity <= 0:
			results = append(results, domain.TransferItemResult{
				ProductName: name,
				Status:      "skipped",
				Detail:      "non-positive quantity",
			})
			continue
		case item.BranchDestinationID == "":
			results = append(results, domain.TransferItemResult{
				ProductName: name,
				Status:      "skipped",
				Detail:      "no destination branch",
			})
			continue
		}

		if _, err := s.upsertStock(ctx, item.BranchDestinationID, "", name, item.Quantity, item.UnitPrice); err != nil {
			failed = true
			results = append(results, domain.TransferItemResult{
				ProductName: name,
				Status:      "failed",
				Detail:      err.Error(),
			})
			continue
		}

		movement, err := s.repo.CreateMovement(ctx, domain.Movement{
			Type:        domain.MovementPurchaseOrder,
			ToBranchID:  item.BranchDestinationID,
			ProductName: name,
			Quantity:    item.Quantity,
			UnitCost:    item.UnitPrice,
			TotalCost:   item.UnitPrice * float64(item.Quantity),
			Status:      domain.MovementStatusCompleted,
			TransferID:  orderID,
			RequestedBy: actor.Username,
			ApprovedBy:  actor.Username,
			Reason:      "completion of order " + orderID,
			CreatedAt:   now,
			ApprovedAt:  &now,
		})
		if err != nil {
			log.Printf("[service] WARN: completion of order %s: stock credited but ledger entry failed for %q: %v", orderID, name, err)
		}

		result := domain.TransferItemResult{ProductName: name, Status: "applied"}
		if movement != nil {
			result.MovementID = movement.ID
		}
		results = append(results, result)
	}

	if failed {
		return nil, &store.PartialBatchError{Op: "complete order " + orderID, Results: results}
	}

	if order.AmountPaid != order.TotalAmount {
		log.Printf("[service] WARN: order %s completed with paid %.2f of %.2f, reconciling to total", orderID, order.AmountPaid, order.TotalAmount)
	}
	order.Status = domain.OrderStatusCompleted
	order.AmountPaid = order.TotalAmount
	order.BalanceRemaining = 0
	order.ApprovedBy = actor.Username

	order, err = s.repo.UpdateOrder(ctx, *order)
	if err != nil {
		log.Printf("[service] WARN: completion of order %s: stock credited but order not marked completed: %v", orderID, err)
		return nil, &store.PartialBatchError{Op: "complete order " + orderID, Results: results}
	}
	return &domain.OrderCompleteResponse{Order: *order, Results: results}, nil
}
