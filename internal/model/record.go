package model

import (
	"encoding/json"
	"time"
)

// OrderRecord is the persisted snapshot of an Order. The in-memory
// store is authoritative while the process runs; records exist so the
// store can be repopulated at boot.
type OrderRecord struct {
	UUID           string `gorm:"primaryKey"`
	OrderID        string
	Title          string
	Status         string
	Amount         float64
	Currency       string
	ItemsJSON      string
	CustomerID     string
	TelegramID     string
	TxnHash        string
	CustomerWallet string
	Testnet        bool
	Revision       uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderTransition is the audit row written for every accepted
// reconciliation, one per revision.
type OrderTransition struct {
	ID         uint `gorm:"primaryKey"`
	UUID       string
	FromStatus string
	ToStatus   string
	TxnHash    string
	Revision   uint64
	ReceivedAt time.Time
}

// ToRecord flattens an Order into its persisted form.
func (o *Order) ToRecord() *OrderRecord {
	rec := &OrderRecord{
		UUID:       o.UUID,
		OrderID:    o.OrderID,
		Title:      o.Title,
		Status:     string(o.Status),
		Amount:     o.Amount,
		Currency:   o.Currency,
		CustomerID: o.Meta.CustomerID,
		TelegramID: o.Meta.TelegramID,
		Testnet:    o.Testnet,
		Revision:   o.Revision,
		CreatedAt:  o.CreatedAt,
	}
	if o.Txn != nil {
		rec.TxnHash = o.Txn.Hash
	}
	if o.Customer != nil {
		rec.CustomerWallet = o.Customer.Wallet
	}
	if len(o.Items) > 0 {
		if b, err := json.Marshal(o.Items); err == nil {
			rec.ItemsJSON = string(b)
		}
	}
	return rec
}

// ToOrder rebuilds the domain Order from a persisted record.
func (r *OrderRecord) ToOrder() Order {
	o := Order{
		UUID:     r.UUID,
		OrderID:  r.OrderID,
		Title:    r.Title,
		Status:   Status(r.Status),
		Amount:   r.Amount,
		Currency: r.Currency,
		Meta: OrderMeta{
			CustomerID: r.CustomerID,
			TelegramID: r.TelegramID,
		},
		Testnet:   r.Testnet,
		Revision:  r.Revision,
		CreatedAt: r.CreatedAt,
	}
	if r.TxnHash != "" {
		o.Txn = &OrderTxn{Hash: r.TxnHash}
	}
	if r.CustomerWallet != "" {
		o.Customer = &OrderCustomer{Wallet: r.CustomerWallet}
	}
	if r.ItemsJSON != "" {
		_ = json.Unmarshal([]byte(r.ItemsJSON), &o.Items)
	}
	return o
}
