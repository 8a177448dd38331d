// Package record implements store.Repository against the hosted record
// store. Every operation is one find/create/update/delete round trip; the
// store keeps whole records as flat field maps, so this package owns the
// domain <-> field-map translation and the server-side filter expressions.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gudangkita/backend/internal/domain"
	"gudangkita/backend/internal/recordstore"
	"gudangkita/backend/internal/store"
)

const (
	collectionStock    = "stock"
	collectionMovement = "movements"
	collectionOrder    = "orders"
	collectionItems    = "order_items"
	collectionReceives = "purchase_receives"
	collectionUsers    = "users"
)

type Repository struct {
	client *recordstore.Client
}

func New(client *recordstore.Client) *Repository {
	return &Repository{client: client}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, recordstore.ErrNotFound):
		return store.ErrNotFound
	case errors.Is(err, recordstore.ErrUnavailable):
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	default:
		return err
	}
}

// ---- stock ----

func (r *Repository) FindStockItem(ctx context.Context, branchID string, productName string) (*domain.StockItem, error) {
	filter := recordstore.And(
		recordstore.Eq("branch_id", branchID),
		recordstore.Eq("product_name", productName),
	)
	records, err := r.client.Find(ctx, collectionStock, filter, "")
	if err != nil {
		return nil, mapErr(err)
	}
	if len(records) == 0 {
		return nil, store.ErrNotFound
	}
	// (branch, product) is only logically unique; take the first match the
	// way the rest of the system does.
	item := stockFromRecord(records[0])
	return &item, nil
}

func (r *Repository) CreateStockItem(ctx context.Context, item domain.StockItem) (*domain.StockItem, error) {
	if item.BranchID == "" || item.ProductName == "" {
		return nil, store.ErrValidation
	}
	rec, err := r.client.Create(ctx, collectionStock, stockToFields(item))
	if err != nil {
		return nil, mapErr(err)
	}
	created := stockFromRecord(*rec)
	return &created, nil
}

func (r *Repository) UpdateStockItem(ctx context.Context, item domain.StockItem) (*domain.StockItem, error) {
	rec, err := r.client.Update(ctx, collectionStock, item.ID, stockToFields(item))
	if err != nil {
		return nil, mapErr(err)
	}
	updated := stockFromRecord(*rec)
	return &updated, nil
}

func (r *Repository) QueryStock(ctx context.Context, query domain.StockQuery) ([]domain.StockItem, error) {
	var exprs []string
	if query.BranchID != "" {
		exprs = append(exprs, recordstore.Eq("branch_id", query.BranchID))
	}
	if query.ProductName != "" {
		exprs = append(exprs, recordstore.Contains("product_name", query.ProductName))
	}
	records, err := r.client.Find(ctx, collectionStock, recordstore.And(exprs...), "product_name")
	if err != nil {
		return nil, mapErr(err)
	}
	items := make([]domain.StockItem, 0, len(records))
	for _, rec := range records {
		items = append(items, stockFromRecord(rec))
	}
	return items, nil
}

func (r *Repository) DeleteStockItem(ctx context.Context, id string) error {
	return mapErr(r.client.Delete(ctx, collectionStock, id))
}

func stockToFields(item domain.StockItem) recordstore.Fields {
	return recordstore.Fields{
		"branch_id":          item.BranchID,
		"product_id":         item.ProductID,
		"product_name":       item.ProductName,
		"quantity_available": item.QuantityAvailable,
		"unit_price":         item.UnitPrice,
		"reorder_level":      item.ReorderLevel,
		"last_updated":       item.LastUpdated.UTC().Format(time.RFC3339),
	}
}

func stockFromRecord(rec recordstore.Record) domain.StockItem {
	return domain.StockItem{
		ID:                rec.ID,
		BranchID:          str(rec.Fields, "branch_id"),
		ProductID:         str(rec.Fields, "product_id"),
		ProductName:       str(rec.Fields, "product_name"),
		QuantityAvailable: integer(rec.Fields, "quantity_available"),
		UnitPrice:         float(rec.Fields, "unit_price"),
		ReorderLevel:      integer(rec.Fields, "reorder_level"),
		LastUpdated:       timestamp(rec.Fields, "last_updated"),
	}
}

// ---- movements ----

func (r *Repository) CreateMovement(ctx context.Context, movement domain.Movement) (*domain.Movement, error) {
	rec, err := r.client.Create(ctx, collectionMovement, movementToFields(movement))
	if err != nil {
		return nil, mapErr(err)
	}
	created := movementFromRecord(*rec)
	return &created, nil
}

func (r *Repository) GetMovementByID(ctx context.Context, id string) (*domain.Movement, error) {
	rec, err := r.client.FindByID(ctx, collectionMovement, id)
	if err != nil {
		return nil, mapErr(err)
	}
	movement := movementFromRecord(*rec)
	return &movement, nil
}

func (r *Repository) UpdateMovement(ctx context.Context, movement domain.Movement) (*domain.Movement, error) {
	rec, err := r.client.Update(ctx, collectionMovement, movement.ID, movementToFields(movement))
	if err != nil {
		return nil, mapErr(err)
	}
	updated := movementFromRecord(*rec)
	return &updated, nil
}

func (r *Repository) ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.Movement, error) {
	var exprs []string
	if filter.Status != "" {
		exprs = append(exprs, recordstore.Eq("status", string(filter.Status)))
	}
	if filter.Type != "" {
		exprs = append(exprs, recordstore.Eq("movement_type", string(filter.Type)))
	}
	if filter.TransferID != "" {
		exprs = append(exprs, recordstore.Eq("transfer_id", filter.TransferID))
	}
	if filter.BranchID != "" {
		exprs = append(exprs, recordstore.Or(
			recordstore.Eq("from_branch_id", filter.BranchID),
			recordstore.Eq("to_branch_id", filter.BranchID),
		))
	}
	records, err := r.client.Find(ctx, collectionMovement, recordstore.And(exprs...), "created_at")
	if err != nil {
		return nil, mapErr(err)
	}
	movements := make([]domain.Movement, 0, len(records))
	for _, rec := range records {
		movements = append(movements, movementFromRecord(rec))
		if filter.Limit > 0 && len(movements) >= filter.Limit {
			break
		}
	}
	return movements, nil
}

func movementToFields(movement domain.Movement) recordstore.Fields {
	fields := recordstore.Fields{
		"movement_type":  string(movement.Type),
		"from_branch_id": movement.FromBranchID,
		"to_branch_id":   movement.ToBranchID,
		"product_id":     movement.ProductID,
		"product_name":   movement.ProductName,
		"quantity":       movement.Quantity,
		"unit_cost":      movement.UnitCost,
		"total_cost":     movement.TotalCost,
		"status":         string(movement.Status),
		"transfer_id":    movement.TransferID,
		"requested_by":   movement.RequestedBy,
		"approved_by":    movement.ApprovedBy,
		"reason":         movement.Reason,
		"created_at":     movement.CreatedAt.UTC().Format(time.RFC3339),
	}
	if movement.ApprovedAt != nil {
		fields["approved_at"] = movement.ApprovedAt.UTC().Format(time.RFC3339)
	}
	return fields
}

func movementFromRecord(rec recordstore.Record) domain.Movement {
	movement := domain.Movement{
		ID:           rec.ID,
		Type:         domain.MovementType(str(rec.Fields, "movement_type")),
		FromBranchID: str(rec.Fields, "from_branch_id"),
		ToBranchID:   str(rec.Fields, "to_branch_id"),
		ProductID:    str(rec.Fields, "product_id"),
		ProductName:  str(rec.Fields, "product_name"),
		Quantity:     integer(rec.Fields, "quantity"),
		UnitCost:     float(rec.Fields, "unit_cost"),
		TotalCost:    float(rec.Fields, "total_cost"),
		Status:       domain.MovementStatus(str(rec.Fields, "status")),
		TransferID:   str(rec.Fields, "transfer_id"),
		RequestedBy:  str(rec.Fields, "requested_by"),
		ApprovedBy:   str(rec.Fields, "approved_by"),
		Reason:       str(rec.Fields, "reason"),
		CreatedAt:    timestamp(rec.Fields, "created_at"),
	}
	if raw := str(rec.Fields, "approved_at"); raw != "" {
		if at, err := time.Parse(time.RFC3339, raw); err == nil {
			movement.ApprovedAt = &at
		}
	}
	return movement
}

// ---- orders ----

func (r *Repository) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	rec, err := r.client.Create(ctx, collectionOrder, orderToFields(order))
	if err != nil {
		return nil, mapErr(err)
	}
	created := orderFromRecord(*rec)
	return &created, nil
}

func (r *Repository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	rec, err := r.client.FindByID(ctx, collectionOrder, id)
	if err != nil {
		return nil, mapErr(err)
	}
	order := orderFromRecord(*rec)
	return &order, nil
}

func (r *Repository) UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	rec, err := r.client.Update(ctx, collectionOrder, order.ID, orderToFields(order))
	if err != nil {
		return nil, mapErr(err)
	}
	updated := orderFromRecord(*rec)
	return &updated, nil
}

func (r *Repository) ListOrders(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	filter := ""
	if status != "" {
		filter = recordstore.Eq("status", string(status))
	}
	records, err := r.client.Find(ctx, collectionOrder, filter, "order_date")
	if err != nil {
		return nil, mapErr(err)
	}
	orders := make([]domain.Order, 0, len(records))
	for _, rec := range records {
		orders = append(orders, orderFromRecord(rec))
		if limit > 0 && len(orders) >= limit {
			break
		}
	}
	return orders, nil
}

func orderToFields(order domain.Order) recordstore.Fields {
	fields := recordstore.Fields{
		"supplier_name":     order.SupplierName,
		"order_date":        order.OrderDate.UTC().Format(time.RFC3339),
		"total_amount":      order.TotalAmount,
		"amount_paid":       order.AmountPaid,
		"balance_remaining": order.BalanceRemaining,
		"status":            string(order.Status),
		"approval_status":   string(order.ApprovalStatus),
		"requested_by":      order.RequestedBy,
		"approved_by":       order.ApprovedBy,
		"created_at":        order.CreatedAt.UTC().Format(time.RFC3339),
	}
	if order.ExpectedDeliveryDate != nil {
		fields["expected_delivery_date"] = order.ExpectedDeliveryDate.UTC().Format(time.RFC3339)
	}
	return fields
}

func orderFromRecord(rec recordstore.Record) domain.Order {
	order := domain.Order{
		ID:               rec.ID,
		SupplierName:     str(rec.Fields, "supplier_name"),
		OrderDate:        timestamp(rec.Fields, "order_date"),
		TotalAmount:      float(rec.Fields, "total_amount"),
		AmountPaid:       float(rec.Fields, "amount_paid"),
		BalanceRemaining: float(rec.Fields, "balance_remaining"),
		Status:           domain.OrderStatus(str(rec.Fields, "status")),
		ApprovalStatus:   domain.ApprovalStatus(str(rec.Fields, "approval_status")),
		RequestedBy:      str(rec.Fields, "requested_by"),
		ApprovedBy:       str(rec.Fields, "approved_by"),
		CreatedAt:        timestamp(rec.Fields, "created_at"),
	}
	if raw := str(rec.Fields, "expected_delivery_date"); raw != "" {
		if at, err := time.Parse(time.RFC3339, raw); err == nil {
			order.ExpectedDeliveryDate = &at
		}
	}
	return order
}

func (r *Repository) CreateOrderItem(ctx context.Context, item domain.OrderItem) (*domain.OrderItem, error) {
	if item.OrderID == "" || item.ProductName == "" {
		return nil, store.ErrValidation
	}
	rec, err := r.client.Create(ctx, collectionItems, orderItemToFields(item))
	if err != nil {
		return nil, mapErr(err)
	}
	created := orderItemFromRecord(*rec)
	return &created, nil
}

func (r *Repository) ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	records, err := r.client.Find(ctx, collectionItems, recordstore.Eq("order_id", orderID), "product_name")
	if err != nil {
		return nil, mapErr(err)
	}
	items := make([]domain.OrderItem, 0, len(records))
	for _, rec := range records {
		items = append(items, orderItemFromRecord(rec))
	}
	return items, nil
}

func (r *Repository) UpdateOrderItem(ctx context.Context, item domain.OrderItem) (*domain.OrderItem, error) {
	rec, err := r.client.Update(ctx, collectionItems, item.ID, orderItemToFields(item))
	if err != nil {
		return nil, mapErr(err)
	}
	updated := orderItemFromRecord(*rec)
	return &updated, nil
}

func orderItemToFields(item domain.OrderItem) recordstore.Fields {
	return recordstore.Fields{
		"order_id":                item.OrderID,
		"product_name":            item.ProductName,
		"quantity_ordered":        item.QuantityOrdered,
		"quantity_received":       item.QuantityReceived,
		"purchase_price_per_unit": item.PurchasePricePerUnit,
		"branch_destination_id":   item.BranchDestinationID,
	}
}

func orderItemFromRecord(rec recordstore.Record) domain.OrderItem {
	return domain.OrderItem{
		ID:                   rec.ID,
		OrderID:              str(rec.Fields, "order_id"),
		ProductName:          str(rec.Fields, "product_name"),
		QuantityOrdered:      integer(rec.Fields, "quantity_ordered"),
		QuantityReceived:     integer(rec.Fields, "quantity_received"),
		PurchasePricePerUnit: float(rec.Fields, "purchase_price_per_unit"),
		BranchDestinationID:  str(rec.Fields, "branch_destination_id"),
	}
}

func (r *Repository) CreatePurchaseReceive(ctx context.Context, receive domain.PurchaseReceive) (*domain.PurchaseReceive, error) {
	if receive.OrderID == "" || len(receive.Items) == 0 {
		return nil, store.ErrValidation
	}
	// Receive lines ride along as a JSON field: the store has no nested
	// records and a separate collection would buy nothing here.
	itemsJSON, err := json.Marshal(receive.Items)
	if err != nil {
		return nil, err
	}
	rec, err := r.client.Create(ctx, collectionReceives, recordstore.Fields{
		"order_id":       receive.OrderID,
		"received_date":  receive.ReceivedDate.UTC().Format(time.RFC3339),
		"receive_status": string(receive.ReceiveStatus),
		"received_by":    receive.ReceivedBy,
		"items_json":     string(itemsJSON),
	})
	if err != nil {
		return nil, mapErr(err)
	}
	created := receiveFromRecord(*rec)
	return &created, nil
}

func (r *Repository) ListPurchaseReceives(ctx context.Context, orderID string) ([]domain.PurchaseReceive, error) {
	records, err := r.client.Find(ctx, collectionReceives, recordstore.Eq("order_id", orderID), "received_date")
	if err != nil {
		return nil, mapErr(err)
	}
	receives := make([]domain.PurchaseReceive, 0, len(records))
	for _, rec := range records {
		receives = append(receives, receiveFromRecord(rec))
	}
	return receives, nil
}

func receiveFromRecord(rec recordstore.Record) domain.PurchaseReceive {
	receive := domain.PurchaseReceive{
		ID:            rec.ID,
		OrderID:       str(rec.Fields, "order_id"),
		ReceivedDate:  timestamp(rec.Fields, "received_date"),
		ReceiveStatus: domain.ReceiveStatus(str(rec.Fields, "receive_status")),
		ReceivedBy:    str(rec.Fields, "received_by"),
	}
	if raw := str(rec.Fields, "items_json"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &receive.Items)
	}
	return receive
}

// ---- users ----

func (r *Repository) CreateUser(ctx context.Context, user domain.UserAccount) error {
	_, err := r.client.Create(ctx, collectionUsers, recordstore.Fields{
		"username":   user.Username,
		"password":   user.Password,
		"role":       user.Role,
		"active":     user.Active,
		"created_at": user.CreatedAt.UTC().Format(time.RFC3339),
	})
	return mapErr(err)
}

func (r *Repository) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	records, err := r.client.Find(ctx, collectionUsers, "", "username")
	if err != nil {
		return nil, mapErr(err)
	}
	users := make([]domain.UserAccount, 0, len(records))
	for _, rec := range records {
		users = append(users, domain.UserAccount{
			Username:  str(rec.Fields, "username"),
			Password:  str(rec.Fields, "password"),
			Role:      str(rec.Fields, "role"),
			Active:    boolean(rec.Fields, "active"),
			CreatedAt: timestamp(rec.Fields, "created_at"),
		})
	}
	return users, nil
}

func (r *Repository) UpdateUserPassword(ctx context.Context, username string, password string) error {
	records, err := r.client.Find(ctx, collectionUsers, recordstore.Eq("username", username), "")
	if err != nil {
		return mapErr(err)
	}
	if len(records) == 0 {
		return store.ErrNotFound
	}
	_, err = r.client.Update(ctx, collectionUsers, records[0].ID, recordstore.Fields{"password": password})
	return mapErr(err)
}

// ---- field helpers ----
// The store returns JSON numbers as float64 and omits empty fields, so all
// reads go through these tolerant accessors.

func str(fields recordstore.Fields, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func integer(fields recordstore.Fields, key string) int {
	switch v := fields[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func float(fields recordstore.Fields, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func boolean(fields recordstore.Fields, key string) bool {
	if v, ok := fields[key].(bool); ok {
		return v
	}
	return false
}

func timestamp(fields recordstore.Fields, key string) time.Time {
	raw := str(fields, key)
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
