package model

// EventOrderStatusChanged is the only event type ArcPay currently
// delivers. Unknown event types are accepted and ignored.
const EventOrderStatusChanged = "order.status.changed"

// WebhookPayload mirrors the wire shape of an ArcPay webhook body:
// {"event": "...", "data": {"uuid": "...", "status": "...", ...}}.
type WebhookPayload struct {
	Event string           `json:"event"`
	Data  WebhookOrderData `json:"data"`
}

type WebhookOrderData struct {
	UUID           string `json:"uuid"`
	Status         string `json:"status"`
	TxnHash        string `json:"txnHash,omitempty"`
	CustomerWallet string `json:"customerWallet,omitempty"`
}

// WebhookEvent is an inbound notification carried from the HTTP
// boundary into reconciliation. It lives only for the duration of
// verification plus reconciliation; RawPayload is the exact request
// body the signature was computed over.
type WebhookEvent struct {
	EventType      string
	UUID           string
	Status         Status
	TxnHash        string
	CustomerWallet string
	RawPayload     []byte
	Signature      string
}
