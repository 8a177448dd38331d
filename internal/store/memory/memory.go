// Package memory is the in-memory Repository used for dev mode and tests.
// It mimics the hosted record store's shape (generated ids, whole-record
// reads and writes, no transactions) behind a single mutex.
package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gudangkita/backend/internal/domain"
	"gudangkita/backend/internal/store"
	"gudangkita/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	stockByID       map[string]domain.StockItem
	movementsByID   map[string]domain.Movement
	movementOrder   []string
	ordersByID      map[string]domain.Order
	orderIDs        []string
	orderItemsByID  map[string]domain.OrderItem
	receivesByID    map[string]domain.PurchaseReceive
	receiveOrder    []string
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial user accounts for dev/demo mode. Credentials
// come from SEED_ADMIN_PASSWORD and SEED_MANAGER_PASSWORD; hardcoded dev
// defaults are used with a warning when unset.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "manager123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_MANAGER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_MANAGER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"manager", managerPwd, "manager"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	seed := []domain.StockItem{
		{BranchID: "branch-pusat", ProductName: "Beras Premium 5kg", UnitPrice: 78000, QuantityAvailable: 40, ReorderLevel: 10},
		{BranchID: "branch-pusat", ProductName: "Minyak Goreng 2L", UnitPrice: 36500, QuantityAvailable: 60, ReorderLevel: 15},
		{BranchID: "branch-pusat", ProductName: "Gula Pasir 1kg", UnitPrice: 17400, QuantityAvailable: 80, ReorderLevel: 20},
		{BranchID: "branch-pusat", ProductName: "Tepung Terigu 1kg", UnitPrice: 12800, QuantityAvailable: 55, ReorderLevel: 10},
		{BranchID: "branch-kota", ProductName: "Beras Premium 5kg", UnitPrice: 79500, QuantityAvailable: 25, ReorderLevel: 10},
		{BranchID: "branch-kota", ProductName: "Minyak Goreng 2L", UnitPrice: 37000, QuantityAvailable: 30, ReorderLevel: 15},
		{BranchID: "branch-kota", ProductName: "Kopi Bubuk 250g", UnitPrice: 24500, QuantityAvailable: 8, ReorderLevel: 10},
	}

	stock := make(map[string]domain.StockItem, len(seed))
	for _, item := range seed {
		item.ID = xid.New("stk")
		item.LastUpdated = now
		stock[item.ID] = item
	}

	return &Store{
		stockByID:       stock,
		movementsByID:   make(map[string]domain.Movement),
		movementOrder:   make([]string, 0, 64),
		ordersByID:      make(map[string]domain.Order),
		orderIDs:        make([]string, 0, 16),
		orderItemsByID:  make(map[string]domain.OrderItem),
		receivesByID:    make(map[string]domain.PurchaseReceive),
		receiveOrder:    make([]string, 0, 16),
		usersByUsername: seedUsers(),
	}
}

// New returns an empty store, for tests that want full control of state.
func New() *Store {
	s := NewSeeded()
	s.mu.Lock()
	s.stockByID = make(map[string]domain.StockItem)
	s.mu.Unlock()
	return s
}

// ---- stock ----

func (s *Store) FindStockItem(_ context.Context, branchID string, productName string) (*domain.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, item := range s.stockByID {
		if item.BranchID == branchID && strings.EqualFold(item.ProductName, productName) {
			found := item
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateStockItem(_ context.Context, item domain.StockItem) (*domain.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.BranchID == "" || item.ProductName == "" {
		return nil, store.ErrValidation
	}
	if item.ID == "" {
		item.ID = xid.New("stk")
	}
	s.stockByID[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) UpdateStockItem(_ context.Context, item domain.StockItem) (*domain.StockItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stockByID[item.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.stockByID[item.ID] = item
	updated := item
	return &updated, nil
}

func (s *Store) QueryStock(_ context.Context, query domain.StockQuery) ([]domain.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query.ProductName))
	items := make([]domain.StockItem, 0, len(s.stockByID))
	for _, item := range s.stockByID {
		if query.BranchID != "" && item.BranchID != query.BranchID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(item.ProductName), needle) {
			continue
		}
		items = append(items, item)
	}

	slices.SortFunc(items, func(a, b domain.StockItem) int {
		if a.BranchID == b.BranchID {
			return strings.Compare(a.ProductName, b.ProductName)
		}
		return strings.Compare(a.BranchID, b.BranchID)
	})
	return items, nil
}

func (s *Store) DeleteStockItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.stockByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.stockByID, id)
	return nil
}

// ---- movements ----

func (s *Store) CreateMovement(_ context.Context, movement domain.Movement) (*domain.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if movement.ID == "" {
		movement.ID = xid.New("mov")
	}
	s.movementsByID[movement.ID] = movement
	s.movementOrder = append(s.movementOrder, movement.ID)
	created := movement
	return &created, nil
}

func (s *Store) GetMovementByID(_ context.Context, id string) (*domain.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movement, exists := s.movementsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := movement
	return &found, nil
}

func (s *Store) UpdateMovement(_ context.Context, movement domain.Movement) (*domain.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.movementsByID[movement.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.movementsByID[movement.ID] = movement
	updated := movement
	return &updated, nil
}

func (s *Store) ListMovements(_ context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	movements := make([]domain.Movement, 0, len(s.movementOrder))
	for _, id := range s.movementOrder {
		movement, exists := s.movementsByID[id]
		if !exists {
			continue
		}
		if filter.Status != "" && movement.Status != filter.Status {
			continue
		}
		if filter.Type != "" && movement.Type != filter.Type {
			continue
		}
		if filter.TransferID != "" && movement.TransferID != filter.TransferID {
			continue
		}
		if filter.BranchID != "" && movement.FromBranchID != filter.BranchID && movement.ToBranchID != filter.BranchID {
			continue
		}
		movements = append(movements, movement)
		if filter.Limit > 0 && len(movements) >= filter.Limit {
			break
		}
	}
	return movements, nil
}

// ---- orders ----

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	s.ordersByID[order.ID] = order
	s.orderIDs = append(s.orderIDs, order.ID)
	created := order
	return &created, nil
}

func (s *Store) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := order
	return &found, nil
}

func (s *Store) UpdateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ordersByID[order.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.ordersByID[order.ID] = order
	updated := order
	return &updated, nil
}

func (s *Store) ListOrders(_ context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, len(s.orderIDs))
	for _, id := range s.orderIDs {
		order, exists := s.ordersByID[id]
		if !exists {
			continue
		}
		if status != "" && order.Status != status {
			continue
		}
		orders = append(orders, order)
		if limit > 0 && len(orders) >= limit {
			break
		}
	}
	return orders, nil
}

func (s *Store) CreateOrderItem(_ context.Context, item domain.OrderItem) (*domain.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.OrderID == "" || item.ProductName == "" {
		return nil, store.ErrValidation
	}
	if item.ID == "" {
		item.ID = xid.New("oit")
	}
	s.orderItemsByID[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) ListOrderItems(_ context.Context, orderID string) ([]domain.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.OrderItem, 0, 8)
	for _, item := range s.orderItemsByID {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	slices.SortFunc(items, func(a, b domain.OrderItem) int {
		return strings.Compare(a.ProductName, b.ProductName)
	})
	return items, nil
}

func (s *Store) UpdateOrderItem(_ context.Context, item domain.OrderItem) (*domain.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orderItemsByID[item.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.orderItemsByID[item.ID] = item
	updated := item
	return &updated, nil
}

func (s *Store) CreatePurchaseReceive(_ context.Context, receive domain.PurchaseReceive) (*domain.PurchaseReceive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if receive.OrderID == "" || len(receive.Items) == 0 {
		return nil, store.ErrValidation
	}
	if receive.ID == "" {
		receive.ID = xid.New("rcv")
	}
	s.receivesByID[receive.ID] = receive
	s.receiveOrder = append(s.receiveOrder, receive.ID)
	created := receive
	return &created, nil
}

func (s *Store) ListPurchaseReceives(_ context.Context, orderID string) ([]domain.PurchaseReceive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receives := make([]domain.PurchaseReceive, 0, 4)
	for _, id := range s.receiveOrder {
		receive, exists := s.receivesByID[id]
		if !exists || receive.OrderID != orderID {
			continue
		}
		receives = append(receives, receive)
	}
	return receives, nil
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.ErrValidation
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrValidation
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
