package service

import (
	"errors"
	"testing"

	"gudangkita/backend/internal/domain"
	"gudangkita/backend/internal/store"
)

func TestSaleAppliesImmediatelyAndClampsAtZero(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()

	// Kopi Bubuk at branch-kota is seeded with 8.
	movement, err := svc.CreateMovement(ctx, domain.MovementCreateRequest{
		Type:         domain.MovementSale,
		FromBranchID: "branch-kota",
		ProductName:  "Kopi Bubuk 250g",
		Quantity:     15,
	})
	if err != nil {
		t.Fatalf("CreateMovement: %v", err)
	}
	if movement.Status != domain.MovementStatusCompleted {
		t.Errorf("sale status = %s, want completed", movement.Status)
	}
	if got := mustStockQuantity(t, svc, "branch-kota", "Kopi Bubuk 250g"); got != 0 {
		t.Errorf("quantity after oversell = %d, want clamp to 0", got)
	}
}

func TestSaleAgainstAbsentStockIsNoOp(t *testing.T) {
	svc, _ := newTestService(t)

	movement, err := svc.CreateMovement(testCtx(), domain.MovementCreateRequest{
		Type:         domain.MovementSale,
		FromBranchID: "branch-kota",
		ProductName:  "Susu UHT 1L",
		Quantity:     3,
	})
	if err != nil {
		t.Fatalf("CreateMovement: %v", err)
	}
	if movement.Status != domain.MovementStatusCompleted {
		t.Errorf("status = %s, want completed", movement.Status)
	}
	if _, err := svc.GetStockLevel(testCtx(), "branch-kota", "Susu UHT 1L"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("no stock record should be created, got err = %v", err)
	}
}

func TestRefundCreditsImmediately(t *testing.T) {
	svc, _ := newTestService(t)

	before := mustStockQuantity(t, svc, "branch-pusat", "Gula Pasir 1kg")
	if _, err := svc.CreateMovement(testCtx(), domain.MovementCreateRequest{
		Type:        domain.MovementRefund,
		ToBranchID:  "branch-pusat",
		ProductName: "Gula Pasir 1kg",
		Quantity:    2,
	}); err != nil {
		t.Fatalf("CreateMovement: %v", err)
	}
	if got := mustStockQuantity(t, svc, "branch-pusat", "Gula Pasir 1kg"); got != before+2 {
		t.Errorf("quantity = %d, want %d", got, before+2)
	}
}

func TestNewStockWaitsForApproval(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()

	movement, err := svc.CreateMovement(ctx, domain.MovementCreateRequest{
		Type:        domain.MovementNewStock,
		ToBranchID:  "branch-kota",
		ProductName: "Teh Celup 25s",
		Quantity:    30,
		UnitCost:    9500,
	})
	if err != nil {
		t.Fatalf("CreateMovement: %v", err)
	}
	if movement.Status != domain.MovementStatusPending {
		t.Fatalf("status = %s, want pending", movement.Status)
	}
	if _, err := svc.GetStockLevel(ctx, "branch-kota", "Teh Celup 25s"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("stock must not change before approval, got err = %v", err)
	}

	approved, err := svc.ApproveMovement(ctx, movement.ID)
	if err != nil {
		t.Fatalf("ApproveMovement: %v", err)
	}
	if approved.Status != domain.MovementStatusCompleted {
		t.Errorf("status = %s, want completed", approved.Status)
	}
	if approved.ApprovedBy != "manager" {
		t.Errorf("approved_by = %s", approved.ApprovedBy)
	}
	if approved.ApprovedAt == nil {
		t.Error("approved_at not set")
	}

	item, err := svc.GetStockLevel(ctx, "branch-kota", "Teh Celup 25s")
	if err != nil {
		t.Fatalf("GetStockLevel: %v", err)
	}
	if item.QuantityAvailable != 30 {
		t.Errorf("quantity = %d, want 30", item.QuantityAvailable)
	}
	if item.UnitPrice != 9500 {
		t.Errorf("unit price = %.0f, want 9500", item.UnitPrice)
	}
	if item.ReorderLevel != 10 {
		t.Errorf("reorder level = %d, want default 10", item.ReorderLevel)
	}
}

func TestApproveMovementIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()

	movement, err := svc.CreateMovement(ctx, domain.MovementCreateRequest{
		Type:        domain.MovementNewStock,
		ToBranchID:  "branch-pusat",
		ProductName: "Beras Premium 5kg",
		Quantity:    10,
	})
	if err != nil {
		t.Fatalf("CreateMovement: %v", err)
	}

	if _, err := svc.ApproveMovement(ctx, movement.ID); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	after := mustStockQuantity(t, svc, "branch-pusat", "Beras Premium 5kg")

	again, err := svc.ApproveMovement(ctx, movement.ID)
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if again.Status != domain.MovementStatusCompleted {
		t.Errorf("status = %s", again.Status)
	}
	if got := mustStockQuantity(t, svc, "branch-pusat", "Beras Premium 5kg"); got != after {
		t.Errorf("quantity = %d after re-approval, want unchanged %d", got, after)
	}
}

func TestRejectMovementNeverTouchesStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()

	before := mustStockQuantity(t, svc, "branch-pusat", "Minyak Goreng 2L")
	movement, err := svc.CreateMovement(ctx, domain.MovementCreateRequest{
		Type:        domain.MovementNewStock,
		ToBranchID:  "branch-pusat",
		ProductName: "Minyak Goreng 2L",
		Quantity:    100,
	})
	if err != nil {
		t.Fatalf("CreateMovement: %v", err)
	}

	rejected, err := svc.RejectMovement(ctx, movement.ID, "wrong count")
	if err != nil {
		t.Fatalf("RejectMovement: %v", err)
	}
	if rejected.Status != domain.MovementStatusRejected {
		t.Errorf("status = %s", rejected.Status)
	}
	if rejected.Reason != "wrong count" {
		t.Errorf("reason = %q", rejected.Reason)
	}
	if got := mustStockQuantity(t, svc, "branch-pusat", "Minyak Goreng 2L"); got != before {
		t.Errorf("quantity = %d, want untouched %d", got, before)
	}

	// Rejected movements cannot be approved back to life.
	if _, err := svc.ApproveMovement(ctx, movement.ID); !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("approve after reject: err = %v, want ErrInvalidState", err)
	}
	// Re-rejecting is a no-op.
	if _, err := svc.RejectMovement(ctx, movement.ID, ""); err != nil {
		t.Errorf("second reject: %v", err)
	}
}

func TestRejectCompletedMovementFails(t *testing.T) {
	svc, _ := newTestService(t)

	movement, err := svc.CreateMovement(testCtx(), domain.MovementCreateRequest{
		Type:         domain.MovementSale,
		FromBranchID: "branch-pusat",
		ProductName:  "Gula Pasir 1kg",
		Quantity:     1,
	})
	if err != nil {
		t.Fatalf("CreateMovement: %v", err)
	}
	if _, err := svc.RejectMovement(testCtx(), movement.ID, ""); !errors.Is(err, store.ErrInvalidState) {
		t.Errorf("err = %v, want ErrInvalidState", err)
	}
}

func TestCreateMovementValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()

	cases := []struct {
		name string
		req  domain.MovementCreateRequest
	}{
		{"unknown type", domain.MovementCreateRequest{Type: "teleport", ProductName: "Gula Pasir 1kg", Quantity: 1}},
		{"no product", domain.MovementCreateRequest{Type: domain.MovementSale, FromBranchID: "branch-pusat", Quantity: 1}},
		{"zero quantity", domain.MovementCreateRequest{Type: domain.MovementSale, FromBranchID: "branch-pusat", ProductName: "Gula Pasir 1kg", Quantity: 0}},
		{"negative quantity", domain.MovementCreateRequest{Type: domain.MovementRefund, ToBranchID: "branch-pusat", ProductName: "Gula Pasir 1kg", Quantity: -5}},
		{"sale without branch", domain.MovementCreateRequest{Type: domain.MovementSale, ProductName: "Gula Pasir 1kg", Quantity: 1}},
		{"new stock without branch", domain.MovementCreateRequest{Type: domain.MovementNewStock, ProductName: "Gula Pasir 1kg", Quantity: 1}},
		{"transfer same branch", domain.MovementCreateRequest{Type: domain.MovementTransferOut, FromBranchID: "branch-pusat", ToBranchID: "branch-pusat", ProductName: "Gula Pasir 1kg", Quantity: 1}},
		{"negative cost", domain.MovementCreateRequest{Type: domain.MovementNewStock, ToBranchID: "branch-pusat", ProductName: "Gula Pasir 1kg", Quantity: 1, UnitCost: -2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateMovement(ctx, tc.req); !errors.Is(err, store.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestListMovementsFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()

	if _, err := svc.CreateMovement(ctx, domain.MovementCreateRequest{
		Type: domain.MovementSale, FromBranchID: "branch-pusat", ProductName: "Gula Pasir 1kg", Quantity: 1,
	}); err != nil {
		t.Fatalf("sale: %v", err)
	}
	if _, err := svc.CreateMovement(ctx, domain.MovementCreateRequest{
		Type: domain.MovementNewStock, ToBranchID: "branch-kota", ProductName: "Kopi Bubuk 250g", Quantity: 5,
	}); err != nil {
		t.Fatalf("new stock: %v", err)
	}

	pending, err := svc.ListMovements(ctx, domain.MovementFilter{Status: domain.MovementStatusPending})
	if err != nil {
		t.Fatalf("ListMovements: %v", err)
	}
	if len(pending) != 1 || pending[0].Type != domain.MovementNewStock {
		t.Errorf("pending = %+v, want the one new_stock entry", pending)
	}

	kota, err := svc.ListMovements(ctx, domain.MovementFilter{BranchID: "branch-kota"})
	if err != nil {
		t.Fatalf("ListMovements branch: %v", err)
	}
	if len(kota) != 1 {
		t.Errorf("branch-kota movements = %d, want 1", len(kota))
	}

	if _, err := svc.ListMovements(ctx, domain.MovementFilter{Type: "warp"}); !errors.Is(err, store.ErrValidation) {
		t.Errorf("bad type filter: err = %v, want ErrValidation", err)
	}
}
