// Package service holds the business rules of the stock ledger: stock
// quantity upserts, the movement approval state machine, and the transfer
// and order orchestrators. Handlers stay thin; everything that must hold
// across the transactionless record store lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gudangkita/backend/internal/domain"
	"gudangkita/backend/internal/locking"
	"gudangkita/backend/internal/store"
)

type actorKey struct{}

// WithActor stamps the authenticated caller onto the context so the service
// layer can fill requested_by / approved_by without threading it everywhere.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) domain.Actor {
	if actor, ok := ctx.Value(actorKey{}).(domain.Actor); ok {
		return actor
	}
	return domain.Actor{Username: "system"}
}

type Service struct {
	repo  store.Repository
	locks locking.Locker
}

func New(repo store.Repository, locks locking.Locker) *Service {
	return &Service{repo: repo, locks: locks}
}

// ---- stock repository ----

func (s *Service) QueryStock(ctx context.Context, query domain.StockQuery) ([]domain.StockItem, error) {
	query.ProductName = strings.TrimSpace(query.ProductName)
	return s.repo.QueryStock(ctx, query)
}

func (s *Service) GetStockLevel(ctx context.Context, branchID string, productName string) (*domain.StockItem, error) {
	if branchID == "" || strings.TrimSpace(productName) == "" {
		return nil, fmt.Errorf("%w: branch and product name are required", store.ErrValidation)
	}
	return s.repo.FindStockItem(ctx, branchID, strings.TrimSpace(productName))
}

// DeleteStockItem removes a stock record outright. Quantity lifecycle never
// deletes; this is the explicit admin path only.
func (s *Service) DeleteStockItem(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: stock item id is required", store.ErrValidation)
	}
	actor := ActorFromContext(ctx)
	if err := s.repo.DeleteStockItem(ctx, id); err != nil {
		return err
	}
	log.Printf("[service] stock item %s deleted by %s", id, actor.Username)
	return nil
}

// LowStockReport lists every item at or below its reorder level, optionally
// scoped to one branch.
func (s *Service) LowStockReport(ctx context.Context, branchID string) (*domain.LowStockReport, error) {
	items, err := s.repo.QueryStock(ctx, domain.StockQuery{BranchID: branchID})
	if err != nil {
		return nil, err
	}
	report := &domain.LowStockReport{
		BranchID: branchID,
		Entries:  []domain.LowStockEntry{},
		At:       time.Now().UTC().Format(time.RFC3339),
	}
	for _, item := range items {
		if item.QuantityAvailable <= item.ReorderLevel {
			report.Entries = append(report.Entries, domain.LowStockEntry{
				Item:    item,
				Deficit: item.ReorderLevel - item.QuantityAvailable,
			})
		}
	}
	return report, nil
}

// upsertStock is the single write path for quantity changes. It holds the
// per-(branch, product) lock across the find-then-write pair, which is what
// stands in for the record store's missing atomic increment. A negative
// result clamps to zero rather than failing: the ledger entry that caused
// the deficit is the thing to investigate, not this write.
func (s *Service) upsertStock(ctx context.Context, branchID string, productID string, productName string, delta int, unitCost float64) (*domain.StockItem, error) {
	productName = strings.TrimSpace(productName)
	if branchID == "" || productName == "" {
		return nil, fmt.Errorf("%w: branch and product name are required", store.ErrValidation)
	}

	release, err := s.locks.Acquire(ctx, locking.StockKey(branchID, productName))
	if err != nil {
		return nil, fmt.Errorf("acquire stock lock for %s/%s: %w", branchID, productName, err)
	}
	defer release()

	now := time.Now().UTC()
	item, err := s.repo.FindStockItem(ctx, branchID, productName)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if delta <= 0 {
			log.Printf("[service] WARN: deduction of %d for absent stock %s/%s ignored", -delta, branchID, productName)
			return nil, nil
		}
		created := domain.StockItem{
			BranchID:          branchID,
			ProductID:         productID,
			ProductName:       productName,
			QuantityAvailable: delta,
			UnitPrice:         unitCost,
			ReorderLevel:      10,
			LastUpdated:       now,
		}
		return s.repo.CreateStockItem(ctx, created)
	case err != nil:
		return nil, err
	}

	next := item.QuantityAvailable + delta
	if next < 0 {
		log.Printf("[service] WARN: stock %s/%s clamped to zero (had %d, delta %d)", branchID, productName, item.QuantityAvailable, delta)
		next = 0
	}
	item.QuantityAvailable = next
	if unitCost > 0 {
		item.UnitPrice = unitCost
	}
	if productID != "" {
		item.ProductID = productID
	}
	item.LastUpdated = now
	return s.repo.UpdateStockItem(ctx, *item)
}
