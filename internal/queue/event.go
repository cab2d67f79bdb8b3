// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// OrderConfirmedEvent is published when a hold is confirmed into a
// purchase.  It carries enough for downstream consumers to log, notify or
// feed analytics without querying the order store.
type OrderConfirmedEvent struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	EventID     string `json:"event_id"`
	SeatID      string `json:"seat_id"`
	PriceCents  int32  `json:"price_cents"`
	ConfirmedAt string `json:"confirmed_at"`
}

// OrderRefundedEvent is published when a purchase is refunded.
type OrderRefundedEvent struct {
	OrderID    string `json:"order_id"`
	UserID     string `json:"user_id"`
	RefundedAt string `json:"refunded_at"`
}
