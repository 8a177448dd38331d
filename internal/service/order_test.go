package service

import (
	"errors"
	"testing"

	"gudangkita/backend/internal/domain"
	"gudangkita/backend/internal/store"
)

func newDraftOrder(t *testing.T, svc *Service) *domain.OrderResponse {
	t.Helper()
	resp, err := svc.CreateOrder(testCtx(), domain.OrderCreateRequest{
		SupplierName: "PT Sumber Pangan",
		Items: []domain.OrderItemRequest{
			{ProductName: "Beras Premium 5kg", QuantityOrdered: 10, PurchasePricePerUnit: 70, BranchDestinationID: "branch-pusat"},
			{ProductName: "Kopi Bubuk 250g", QuantityOrdered: 20, PurchasePricePerUnit: 15, BranchDestinationID: "branch-kota"},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return resp
}

func TestCreateOrderComputesTotals(t *testing.T) {
	svc, _ := newTestService(t)
	resp := newDraftOrder(t, svc)

	if resp.Order.TotalAmount != 1000 {
		t.Errorf("total = %.2f, want 1000", resp.Order.TotalAmount)
	}
	if resp.Order.BalanceRemaining != 1000 {
		t.Errorf("balance = %.2f, want 1000", resp.Order.BalanceRemaining)
	}
	if resp.Order.Status != domain.OrderStatusOrdered {
		t.Errorf("status = %s, want ordered", resp.Order.Status)
	}
	if resp.Order.ApprovalStatus != domain.ApprovalDraft {
		t.Errorf("approval = %s, want draft", resp.Order.ApprovalStatus)
	}
	if len(resp.Items) != 2 {
		t.Errorf("items = %d, want 2", len(resp.Items))
	}

	cases := []struct {
		name string
		req  domain.OrderCreateRequest
	}{
		{"no supplier", domain.OrderCreateRequest{Items: []domain.OrderItemRequest{{ProductName: "x", QuantityOrdered: 1}}}},
		{"no items", domain.OrderCreateRequest{SupplierName: "PT X"}},
		{"zero quantity", domain.OrderCreateRequest{SupplierName: "PT X", Items: []domain.OrderItemRequest{{ProductName: "x", QuantityOrdered: 0}}}},
		{"negative price", domain.OrderCreateRequest{SupplierName: "PT X", Items: []domain.OrderItemRequest{{ProductName: "x", QuantityOrdered: 1, PurchasePricePerUnit: -1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateOrder(testCtx(), tc.req); !errors.Is(err, store.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestOrderApprovalTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()
	resp := newDraftOrder(t, svc)

	approved, err := svc.ApproveOrder(ctx, resp.Order.ID)
	if err != nil {
		t.Fatalf("ApproveOrder: %v", err)
	}
	if approved.ApprovalStatus != domain.ApprovalApproved {
		t.Errorf("approval = %s", approved.ApprovalStatus)
	}
	if approved.ApprovedBy != "manager" {
		t.Errorf("approved_by = %s", approved.ApprovedBy)
	}

	// Re-approving is a no-op; flipping to rejected afterwards is not allowed.
	if _, err := svc.ApproveOrder(ctx, resp.Order.ID); err != nil {
		t.Errorf("re-approve: %v", err)
	}
	if _, err := svc.RejectOrder(ctx, resp.Order.ID); !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("reject approved order: err = %v, want ErrInvalidState", err)
	}
}

func TestRecordOrderPayment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()
	resp := newDraftOrder(t, svc) // total 1000

	order, err := svc.RecordOrderPayment(ctx, resp.Order.ID, domain.OrderPaymentRequest{Amount: 400})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if order.Status != domain.OrderStatusPartiallyPaid {
		t.Errorf("status = %s, want partially_paid", order.Status)
	}
	if order.BalanceRemaining != 600 {
		t.Errorf("balance = %.2f, want 600", order.BalanceRemaining)
	}

	order, err = svc.RecordOrderPayment(ctx, resp.Order.ID, domain.OrderPaymentRequest{Amount: 600})
	if err != nil {
		t.Fatalf("second payment: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Errorf("status = %s, want paid", order.Status)
	}
	if order.BalanceRemaining != 0 {
		t.Errorf("balance = %.2f, want 0", order.BalanceRemaining)
	}

	// Overpayment pins the balance at zero.
	order, err = svc.RecordOrderPayment(ctx, resp.Order.ID, domain.OrderPaymentRequest{Amount: 250})
	if err != nil {
		t.Fatalf("overpayment: %v", err)
	}
	if order.BalanceRemaining != 0 {
		t.Errorf("balance = %.2f, want clamp at 0", order.BalanceRemaining)
	}
	if order.AmountPaid != 1250 {
		t.Errorf("amount paid = %.2f, want 1250", order.AmountPaid)
	}

	if _, err := svc.RecordOrderPayment(ctx, resp.Order.ID, domain.OrderPaymentRequest{Amount: 0}); !errors.Is(err, store.ErrValidation) {
		t.Errorf("zero payment: err = %v, want ErrValidation", err)
	}
	if _, err := svc.RecordOrderPayment(ctx, resp.Order.ID, domain.OrderPaymentRequest{Amount: -10}); !errors.Is(err, store.ErrValidation) {
		t.Errorf("negative payment: err = %v, want ErrValidation", err)
	}
}

func TestReceiveOrderItems(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()
	resp := newDraftOrder(t, svc)

	// Draft orders do not receive goods.
	if _, err := svc.ReceiveOrderItems(ctx, resp.Order.ID, domain.OrderReceiveRequest{
		Items: []domain.ReceiveItem{{ProductName: "Beras Premium 5kg", QuantityReceived: 4, Condition: domain.ConditionGood}},
	}); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("receive on draft: err = %v, want ErrInvalidState", err)
	}
	if _, err := svc.ApproveOrder(ctx, resp.Order.ID); err != nil {
		t.Fatalf("ApproveOrder: %v", err)
	}

	berasBefore := mustStockQuantity(t, svc, "branch-pusat", "Beras Premium 5kg")
	received, err := svc.ReceiveOrderItems(ctx, resp.Order.ID, domain.OrderReceiveRequest{
		Items: []domain.ReceiveItem{
			{ProductName: "Beras Premium 5kg", QuantityReceived: 4, Condition: domain.ConditionGood},
			{ProductName: "Kopi Bubuk 250g", QuantityReceived: 3, Condition: domain.ConditionDamaged},
			{ProductName: "Garam Dapur", QuantityReceived: 2, Condition: domain.ConditionGood},
		},
	})
	if err != nil {
		t.Fatalf("ReceiveOrderItems: %v", err)
	}

	byProduct := map[string]domain.TransferItemResult{}
	for _, r := range received.Results {
		byProduct[r.ProductName] = r
	}
	if byProduct["Beras Premium 5kg"].Status != "applied" {
		t.Errorf("good line = %+v", byProduct["Beras Premium 5kg"])
	}
	if byProduct["Kopi Bubuk 250g"].Status != "skipped" {
		t.Errorf("damaged line = %+v", byProduct["Kopi Bubuk 250g"])
	}
	if byProduct["Garam Dapur"].Status != "skipped" {
		t.Errorf("unlisted line = %+v", byProduct["Garam Dapur"])
	}

	// Only the good line reaches stock.
	if got := mustStockQuantity(t, svc, "branch-pusat", "Beras Premium 5kg"); got != berasBefore+4 {
		t.Errorf("quantity = %d, want %d", got, berasBefore+4)
	}

	if received.Order.Status != domain.OrderStatusDelivered {
		t.Errorf("order status = %s, want delivered (partial receipt)", received.Order.Status)
	}
	if received.Receive.ReceiveStatus != domain.ReceivePartial {
		t.Errorf("receive status = %s, want partial", received.Receive.ReceiveStatus)
	}

	// The receive is in the ledger as a completed purchase_receive entry.
	movements, err := svc.ListMovements(ctx, domain.MovementFilter{Type: domain.MovementPurchaseReceive})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	if len(movements) != 1 || movements[0].Status != domain.MovementStatusCompleted {
		t.Fatalf("ledger entries = %+v, want one completed purchase_receive", movements)
	}

	// Second receive tops the order up; quantity_received accumulates and
	// the order flips to received once every line is covered.
	received, err = svc.ReceiveOrderItems(ctx, resp.Order.ID, domain.OrderReceiveRequest{
		Items: []domain.ReceiveItem{
			{ProductName: "Beras Premium 5kg", QuantityReceived: 6, Condition: domain.ConditionGood},
			{ProductName: "Kopi Bubuk 250g", QuantityReceived: 20, Condition: domain.ConditionGood},
		},
	})
	if err != nil {
		t.Fatalf("second receive: %v", err)
	}
	if received.Order.Status != domain.OrderStatusReceived {
		t.Errorf("order status = %s, want received", received.Order.Status)
	}
	if received.Receive.ReceiveStatus != domain.ReceiveComplete {
		t.Errorf("receive status = %s, want complete", received.Receive.ReceiveStatus)
	}

	items, err := svc.ListOrderReceives(ctx, resp.Order.ID)
	if err != nil {
		t.Fatalf("ListOrderReceives: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("receive documents = %d, want 2", len(items))
	}

	full, err := svc.GetOrder(ctx, resp.Order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	for _, item := range full.Items {
		if item.QuantityReceived < item.QuantityOrdered {
			t.Errorf("item %s received %d of %d", item.ProductName, item.QuantityReceived, item.QuantityOrdered)
		}
	}
}

func TestReceiveOrderItemsStoreFailureLeavesOrderReDrivable(t *testing.T) {
	svc, repo := newFaultyService(t)
	ctx := testCtx()
	resp := newDraftOrder(t, svc)
	if _, err := svc.ApproveOrder(ctx, resp.Order.ID); err != nil {
		t.Fatalf("ApproveOrder: %v", err)
	}

	repo.failOrderItemWrites = true
	_, err := svc.ReceiveOrderItems(ctx, resp.Order.ID, domain.OrderReceiveRequest{
		Items: []domain.ReceiveItem{{ProductName: "Beras Premium 5kg", QuantityReceived: 10, Condition: domain.ConditionGood}},
	})
	var batch *store.PartialBatchError
	if !errors.As(err, &batch) {
		t.Fatalf("err = %v, want PartialBatchError", err)
	}
	if len(batch.Results) != 1 || batch.Results[0].Status != "failed" {
		t.Fatalf("results = %+v, want one failed line", batch.Results)
	}

	// The order never moves forward on a failed batch: status stays put and
	// quantity_received reflects only what the store accepted.
	full, err := svc.GetOrder(ctx, resp.Order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if full.Order.Status != domain.OrderStatusOrdered {
		t.Errorf("order status = %s after failed receive, want ordered", full.Order.Status)
	}
	for _, item := range full.Items {
		if item.QuantityReceived != 0 {
			t.Errorf("item %s quantity_received = %d, nothing was persisted", item.ProductName, item.QuantityReceived)
		}
	}

	repo.failOrderItemWrites = false
	received, err := svc.ReceiveOrderItems(ctx, resp.Order.ID, domain.OrderReceiveRequest{
		Items: []domain.ReceiveItem{{ProductName: "Beras Premium 5kg", QuantityReceived: 10, Condition: domain.ConditionGood}},
	})
	if err != nil {
		t.Fatalf("re-receive after store recovery: %v", err)
	}
	if received.Order.Status != domain.OrderStatusDelivered {
		t.Errorf("order status = %s, want delivered", received.Order.Status)
	}
	full, err = svc.GetOrder(ctx, resp.Order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	for _, item := range full.Items {
		if item.ProductName == "Beras Premium 5kg" && item.QuantityReceived != 10 {
			t.Errorf("quantity_received = %d after re-drive, want 10", item.QuantityReceived)
		}
	}
}

func TestReceiveOrderItemsReceiveDocFailureCarriesResults(t *testing.T) {
	svc, repo := newFaultyService(t)
	ctx := testCtx()
	resp := newDraftOrder(t, svc)
	if _, err := svc.ApproveOrder(ctx, resp.Order.ID); err != nil {
		t.Fatalf("ApproveOrder: %v", err)
	}

	repo.failReceiveWrites = true
	_, err := svc.ReceiveOrderItems(ctx, resp.Order.ID, domain.OrderReceiveRequest{
		Items: []domain.ReceiveItem{{ProductName: "Beras Premium 5kg", QuantityReceived: 4, Condition: domain.ConditionGood}},
	})
	var batch *store.PartialBatchError
	if !errors.As(err, &batch) {
		t.Fatalf("err = %v, want PartialBatchError", err)
	}
	// The caller still sees which goods were counted.
	if len(batch.Results) != 1 || batch.Results[0].Status != "applied" {
		t.Fatalf("results = %+v, want one applied line", batch.Results)
	}

	// quantity_received committed before the receive document failed, but
	// the order status upgrade never ran.
	full, err := svc.GetOrder(ctx, resp.Order.ID)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if full.Order.Status != domain.OrderStatusOrdered {
		t.Errorf("order status = %s, want ordered", full.Order.Status)
	}
	for _, item := range full.Items {
		if item.ProductName == "Beras Premium 5kg" && item.QuantityReceived != 4 {
			t.Errorf("quantity_received = %d, want 4", item.QuantityReceived)
		}
	}
}

func TestCompleteOrderSkipsInvalidAndReconcilesPayment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()
	resp := newDraftOrder(t, svc) // total 1000

	if _, err := svc.RecordOrderPayment(ctx, resp.Order.ID, domain.OrderPaymentRequest{Amount: 400}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	kopiBefore := mustStockQuantity(t, svc, "branch-kota", "Kopi Bubuk 250g")

	completed, err := svc.CompleteOrder(ctx, resp.Order.ID, domain.OrderCompleteRequest{
		Items: []domain.OrderCompleteItem{
			{ProductName: "Kopi Bubuk 250g", Quantity: 20, BranchDestinationID: "branch-kota", UnitPrice: 15},
			{ProductName: "", Quantity: 5, BranchDestinationID: "branch-kota"},
			{ProductName: "Beras Premium 5kg", Quantity: 0, BranchDestinationID: "branch-pusat"},
			{ProductName: "Gula Pasir 1kg", Quantity: 3, BranchDestinationID: ""},
		},
	})
	if err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}

	applied, skipped := 0, 0
	for _, r := range completed.Results {
		switch r.Status {
		case "applied":
			applied++
		case "skipped":
			skipped++
		}
	}
	if applied != 1 || skipped != 3 {
		t.Errorf("results = %d applied / %d skipped, want 1/3: %+v", applied, skipped, completed.Results)
	}

	if got := mustStockQuantity(t, svc, "branch-kota", "Kopi Bubuk 250g"); got != kopiBefore+20 {
		t.Errorf("quantity = %d, want %d", got, kopiBefore+20)
	}

	// Completion force-reconciles the payment regardless of what was paid.
	if completed.Order.Status != domain.OrderStatusCompleted {
		t.Errorf("status = %s, want completed", completed.Order.Status)
	}
	if completed.Order.AmountPaid != 1000 || completed.Order.BalanceRemaining != 0 {
		t.Errorf("paid = %.2f balance = %.2f, want 1000/0", completed.Order.AmountPaid, completed.Order.BalanceRemaining)
	}

	// Completion writes completed purchase_order ledger entries.
	movements, err := svc.ListMovements(ctx, domain.MovementFilter{Type: domain.MovementPurchaseOrder})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	if len(movements) != 1 || movements[0].Status != domain.MovementStatusCompleted {
		t.Errorf("ledger entries = %+v, want one completed purchase_order", movements)
	}

	// A completed order stays completed.
	if _, err := svc.CompleteOrder(ctx, resp.Order.ID, domain.OrderCompleteRequest{}); !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("re-complete: err = %v, want ErrInvalidState", err)
	}
	if _, err := svc.RecordOrderPayment(ctx, resp.Order.ID, domain.OrderPaymentRequest{Amount: 50}); !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("payment after completion: err = %v, want ErrInvalidState", err)
	}
}

func TestListOrdersByStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()

	first := newDraftOrder(t, svc)
	newDraftOrder(t, svc)

	if _, err := svc.RecordOrderPayment(ctx, first.Order.ID, domain.OrderPaymentRequest{Amount: 100}); err != nil {
		t.Fatalf("payment: %v", err)
	}

	partiallyPaid, err := svc.ListOrders(ctx, domain.OrderStatusPartiallyPaid, 0)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(partiallyPaid) != 1 || partiallyPaid[0].ID != first.Order.ID {
		t.Errorf("partially paid = %+v", partiallyPaid)
	}

	all, err := svc.ListOrders(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListOrders all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("orders = %d, want 2", len(all))
	}
}
