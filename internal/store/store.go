package store

import (
	"context"
	"errors"
	"fmt"

	"gudangkita/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state transition")
	ErrUnavailable  = errors.New("record store unavailable")
)

// PartialBatchError reports a multi-item operation that left the system in a
// mixed state: some items committed, some did not. Callers re-drive only the
// items still marked pending or failed; re-driving is safe because each item
// is idempotency-checked against current state before it is reapplied.
type PartialBatchError struct {
	Op      string
	Results []domain.TransferItemResult
}

func (e *PartialBatchError) Error() string {
	applied, failed := 0, 0
	for _, r := range e.Results {
		switch r.Status {
		case "applied":
			applied++
		case "failed":
			failed++
		}
	}
	return fmt.Sprintf("%s: partial batch (%d applied, %d failed, %d total)", e.Op, applied, failed, len(e.Results))
}

// Repository is the persistence boundary for the stock ledger. The hosted
// record store has no transactions, so every method is one logical read or
// write; consistency across calls is the service layer's problem.
type Repository interface {
	// Stock. FindStockItem resolves the logical (branch, product name) key.
	FindStockItem(ctx context.Context, branchID string, productName string) (*domain.StockItem, error)
	CreateStockItem(ctx context.Context, item domain.StockItem) (*domain.StockItem, error)
	UpdateStockItem(ctx context.Context, item domain.StockItem) (*domain.StockItem, error)
	QueryStock(ctx context.Context, query domain.StockQuery) ([]domain.StockItem, error)
	DeleteStockItem(ctx context.Context, id string) error

	// Movement ledger.
	CreateMovement(ctx context.Context, movement domain.Movement) (*domain.Movement, error)
	GetMovementByID(ctx context.Context, id string) (*domain.Movement, error)
	UpdateMovement(ctx context.Context, movement domain.Movement) (*domain.Movement, error)
	ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error)

	// Purchase orders.
	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	ListOrders(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error)
	CreateOrderItem(ctx context.Context, item domain.OrderItem) (*domain.OrderItem, error)
	ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	UpdateOrderItem(ctx context.Context, item domain.OrderItem) (*domain.OrderItem, error)
	CreatePurchaseReceive(ctx context.Context, receive domain.PurchaseReceive) (*domain.PurchaseReceive, error)
	ListPurchaseReceives(ctx context.Context, orderID string) ([]domain.PurchaseReceive, error)

	// User accounts for the HTTP surface.
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
