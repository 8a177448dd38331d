package domain

import "time"

// MovementType is the closed set of stock-affecting event kinds. Adding a
// type means adding a case to the service dispatch; the compiler flags any
// handler left unwritten.
type MovementType string

const (
	MovementNewStock        MovementType = "new_stock"
	MovementTransferOut     MovementType = "transfer_out"
	MovementTransferIn      MovementType = "transfer_in"
	MovementSale            MovementType = "sale"
	MovementRefund          MovementType = "refund"
	MovementPurchaseOrder   MovementType = "purchase_order"
	MovementPurchaseReceive MovementType = "purchase_receive"
)

func (t MovementType) IsValid() bool {
	switch t {
	case MovementNewStock, MovementTransferOut, MovementTransferIn,
		MovementSale, MovementRefund, MovementPurchaseOrder, MovementPurchaseReceive:
		return true
	}
	return false
}

type MovementStatus string

const (
	MovementStatusPending   MovementStatus = "pending"
	MovementStatusApproved  MovementStatus = "approved"
	MovementStatusRejected  MovementStatus = "rejected"
	MovementStatusCompleted MovementStatus = "completed"
)

type OrderStatus string

const (
	OrderStatusOrdered       OrderStatus = "ordered"
	OrderStatusPartiallyPaid OrderStatus = "partially_paid"
	OrderStatusPaid          OrderStatus = "paid"
	OrderStatusDelivered     OrderStatus = "delivered"
	OrderStatusReceived      OrderStatus = "received"
	OrderStatusCompleted     OrderStatus = "completed"
)

type ApprovalStatus string

const (
	ApprovalDraft    ApprovalStatus = "draft"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type ItemCondition string

const (
	ConditionGood    ItemCondition = "good"
	ConditionDamaged ItemCondition = "damaged"
)

type ReceiveStatus string

const (
	ReceivePartial  ReceiveStatus = "partial"
	ReceiveComplete ReceiveStatus = "complete"
)

// StockItem is one (branch, product) quantity record. The branch plus
// product name is the logical key; ProductID is carried for display but is
// not reliably unique across branches.
type StockItem struct {
	ID                string    `json:"id"`
	BranchID          string    `json:"branch_id"`
	ProductID         string    `json:"product_id,omitempty"`
	ProductName       string    `json:"product_name"`
	QuantityAvailable int       `json:"quantity_available"`
	UnitPrice         float64   `json:"unit_price"`
	ReorderLevel      int       `json:"reorder_level"`
	LastUpdated       time.Time `json:"last_updated"`
}

// Movement is one recorded stock-quantity-affecting event with an approval
// lifecycle. Sibling movements of a branch transfer share TransferID.
type Movement struct {
	ID           string         `json:"id"`
	Type         MovementType   `json:"movement_type"`
	FromBranchID string         `json:"from_branch_id,omitempty"`
	ToBranchID   string         `json:"to_branch_id,omitempty"`
	ProductID    string         `json:"product_id,omitempty"`
	ProductName  string         `json:"product_name"`
	Quantity     int            `json:"quantity"`
	UnitCost     float64        `json:"unit_cost"`
	TotalCost    float64        `json:"total_cost"`
	Status       MovementStatus `json:"status"`
	TransferID   string         `json:"transfer_id,omitempty"`
	RequestedBy  string         `json:"requested_by"`
	ApprovedBy   string         `json:"approved_by,omitempty"`
	Reason       string         `json:"reason,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	ApprovedAt   *time.Time     `json:"approved_at,omitempty"`
}

type Order struct {
	ID                   string         `json:"id"`
	SupplierName         string         `json:"supplier_name"`
	OrderDate            time.Time      `json:"order_date"`
	ExpectedDeliveryDate *time.Time     `json:"expected_delivery_date,omitempty"`
	TotalAmount          float64        `json:"total_amount"`
	AmountPaid           float64        `json:"amount_paid"`
	BalanceRemaining     float64        `json:"balance_remaining"`
	Status               OrderStatus    `json:"status"`
	ApprovalStatus       ApprovalStatus `json:"approval_status"`
	RequestedBy          string         `json:"requested_by,omitempty"`
	ApprovedBy           string         `json:"approved_by,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
}

type OrderItem struct {
	ID                   string  `json:"id"`
	OrderID              string  `json:"order_id"`
	ProductName          string  `json:"product_name"`
	QuantityOrdered      int     `json:"quantity_ordered"`
	QuantityReceived     int     `json:"quantity_received"`
	PurchasePricePerUnit float64 `json:"purchase_price_per_unit"`
	BranchDestinationID  string  `json:"branch_destination_id,omitempty"`
}

// ReceiveItem is one line of goods arriving against an order. Only lines in
// good condition reach the stock ledger.
type ReceiveItem struct {
	ProductName      string        `json:"product_name"`
	QuantityReceived int           `json:"quantity_received"`
	Condition        ItemCondition `json:"condition"`
	UnitCost         float64       `json:"unit_cost,omitempty"`
	BranchID         string        `json:"branch_id,omitempty"`
}

type PurchaseReceive struct {
	ID            string        `json:"id"`
	OrderID       string        `json:"order_id"`
	ReceivedDate  time.Time     `json:"received_date"`
	ReceiveStatus ReceiveStatus `json:"receive_status"`
	ReceivedBy    string        `json:"received_by,omitempty"`
	Items         []ReceiveItem `json:"items"`
}

type Actor struct {
	Username string
	Role     string
}

type UserAccount struct {
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// ---- service requests/responses ----

type MovementCreateRequest struct {
	Type         MovementType `json:"movement_type"`
	FromBranchID string       `json:"from_branch_id,omitempty"`
	ToBranchID   string       `json:"to_branch_id,omitempty"`
	ProductID    string       `json:"product_id,omitempty"`
	ProductName  string       `json:"product_name"`
	Quantity     int          `json:"quantity"`
	UnitCost     float64      `json:"unit_cost"`
	Reason       string       `json:"reason,omitempty"`
}

type MovementFilter struct {
	Status     MovementStatus `json:"status,omitempty"`
	Type       MovementType   `json:"movement_type,omitempty"`
	BranchID   string         `json:"branch_id,omitempty"`
	TransferID string         `json:"transfer_id,omitempty"`
	Limit      int            `json:"limit,omitempty"`
}

type TransferItem struct {
	ProductName string  `json:"product_name"`
	ProductID   string  `json:"product_id,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitCost    float64 `json:"unit_cost,omitempty"`
}

type TransferRequest struct {
	FromBranchID string         `json:"from_branch_id"`
	ToBranchID   string         `json:"to_branch_id"`
	Items        []TransferItem `json:"items"`
	Reason       string         `json:"reason,omitempty"`
}

type TransferResponse struct {
	TransferID string     `json:"transfer_id"`
	Movements  []Movement `json:"movements"`
}

// TransferItemResult reports the outcome of one sibling movement during a
// transfer approval or an order completion batch. Batch callers always get
// the full per-item list, never a single flag.
type TransferItemResult struct {
	MovementID  string `json:"movement_id,omitempty"`
	ProductName string `json:"product_name"`
	Status      string `json:"status"` // applied | skipped | failed | pending
	Detail      string `json:"detail,omitempty"`
}

type TransferApprovalResponse struct {
	TransferID string               `json:"transfer_id"`
	Results    []TransferItemResult `json:"results"`
}

type OrderItemRequest struct {
	ProductName          string  `json:"product_name"`
	QuantityOrdered      int     `json:"quantity_ordered"`
	PurchasePricePerUnit float64 `json:"purchase_price_per_unit"`
	BranchDestinationID  string  `json:"branch_destination_id,omitempty"`
}

type OrderCreateRequest struct {
	SupplierName         string             `json:"supplier_name"`
	OrderDate            *time.Time         `json:"order_date,omitempty"`
	ExpectedDeliveryDate *time.Time         `json:"expected_delivery_date,omitempty"`
	Items                []OrderItemRequest `json:"items"`
}

type OrderResponse struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items,omitempty"`
}

type OrderPaymentRequest struct {
	Amount float64 `json:"amount"`
}

type OrderReceiveRequest struct {
	ReceivedDate *time.Time    `json:"received_date,omitempty"`
	Items        []ReceiveItem `json:"items"`
}

type OrderReceiveResponse struct {
	Order   Order                `json:"order"`
	Receive PurchaseReceive      `json:"receive"`
	Results []TransferItemResult `json:"results"`
}

// OrderCompleteItem is one caller-supplied line of a force-completion. The
// order's recorded items are not consulted; completion trusts this list.
type OrderCompleteItem struct {
	ProductName         string  `json:"product_name"`
	Quantity            int     `json:"quantity"`
	BranchDestinationID string  `json:"branch_destination_id"`
	UnitPrice           float64 `json:"unit_price,omitempty"`
}

type OrderCompleteRequest struct {
	Items []OrderCompleteItem `json:"items"`
}

type OrderCompleteResponse struct {
	Order   Order                `json:"order"`
	Results []TransferItemResult `json:"results"`
}

type StockQuery struct {
	BranchID    string `json:"branch_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
}

type LowStockEntry struct {
	Item    StockItem `json:"item"`
	Deficit int       `json:"deficit"`
}

type LowStockReport struct {
	BranchID string          `json:"branch_id,omitempty"`
	Entries  []LowStockEntry `json:"entries"`
	At       string          `json:"at"`
}
