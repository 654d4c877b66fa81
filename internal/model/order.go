package model

import "time"

// Status is the lifecycle state of an order as reported by ArcPay.
type Status string

const (
	StatusCreated    Status = "created"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusReceived   Status = "received"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// statusRank orders the happy-path statuses. The gateway may coalesce
// intermediate states, so reconciliation compares ranks instead of
// requiring adjacent transitions.
var statusRank = map[Status]int{
	StatusCreated:    0,
	StatusPending:    1,
	StatusProcessing: 2,
	StatusReceived:   3,
	StatusCaptured:   4,
}

// Rank returns the forward-progress rank of s and whether s is a
// happy-path status. failed and canceled carry no rank; they are
// reachable from any non-terminal state.
func (s Status) Rank() (int, bool) {
	r, ok := statusRank[s]
	return r, ok
}

// Known reports whether s is any status ArcPay can emit.
func (s Status) Known() bool {
	if _, ok := statusRank[s]; ok {
		return true
	}
	return s == StatusFailed || s == StatusCanceled
}

// Terminal reports whether no further transition is accepted from s.
func (s Status) Terminal() bool {
	return s == StatusCaptured || s == StatusFailed || s == StatusCanceled
}

type OrderItem struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl"`
	Price       float64 `json:"price"`
	Count       int     `json:"count"`
	ItemID      string  `json:"itemId"`
}

type OrderMeta struct {
	CustomerID string `json:"customer_id,omitempty"`
	TelegramID string `json:"telegram_id,omitempty"`
}

type OrderTxn struct {
	Hash string `json:"hash"`
}

type OrderCustomer struct {
	Wallet string `json:"wallet"`
}

// Order is the reconciled local record of a purchase. UUID is the
// gateway-assigned primary key; OrderID is the merchant-assigned human
// identifier. Revision increments on every accepted transition and is
// monotonic per UUID.
type Order struct {
	UUID      string         `json:"uuid"`
	OrderID   string         `json:"orderId"`
	Title     string         `json:"title"`
	Status    Status         `json:"status"`
	Amount    float64        `json:"amount"`
	Currency  string         `json:"currency"`
	Items     []OrderItem    `json:"items,omitempty"`
	Meta      OrderMeta      `json:"meta"`
	Txn       *OrderTxn      `json:"txn,omitempty"`
	Customer  *OrderCustomer `json:"customer,omitempty"`
	Testnet   bool           `json:"testnet"`
	Revision  uint64         `json:"revision"`
	CreatedAt time.Time      `json:"createdAt"`
}
