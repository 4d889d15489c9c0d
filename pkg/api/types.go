package api

import "github.com/uhyunpark/orderflow/pkg/flow"

// API request/response types for REST endpoints and WebSocket messages

// ==============================
// REST Types
// ==============================

// GenerateRequest is the body of POST /api/v1/generate
type GenerateRequest struct {
	Symbols []string `json:"symbols"`
	Count   int      `json:"count"`
	Seed    int64    `json:"seed"` // 0 seeds from the wall clock
	Mode    string   `json:"mode"` // "realistic" (default), "aggressive" or "walk"
	Persist bool     `json:"persist"`
}

// RunInfo summarises a stored run
type RunInfo struct {
	ID         string   `json:"id"`
	Mode       string   `json:"mode"`
	Symbols    []string `json:"symbols"`
	Seed       int64    `json:"seed"`
	Requested  int      `json:"requested"`
	Events     int      `json:"events"`
	LiveOrders int      `json:"liveOrders"`
	Digest     string   `json:"digest,omitempty"`
	CreatedAt  int64    `json:"createdAt"` // Unix milliseconds
}

// EventInfo is the JSON form of one lifecycle event. Term fields are
// omitted for CANCEL.
type EventInfo struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	OrderID   uint64 `json:"orderId"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side,omitempty"`
	Price     string `json:"price,omitempty"`
	Quantity  int64  `json:"quantity,omitempty"`
	OrderType string `json:"orderType,omitempty"`
}

func toEventInfo(ev flow.Event) EventInfo {
	out := EventInfo{
		Timestamp: ev.Timestamp.Format(flow.TimestampLayout),
		Action:    ev.Action.String(),
		OrderID:   ev.OrderID,
		Symbol:    ev.Symbol,
	}
	if t := ev.Terms; t != nil {
		out.Side = t.Side.String()
		out.Price = t.Price.StringFixed(2)
		out.Quantity = t.Quantity
		out.OrderType = t.Type.String()
	}
	return out
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ==============================
// WebSocket Types
// ==============================

// WSMessage is the base structure for all WebSocket messages
type WSMessage struct {
	Type string      `json:"type"` // "event"
	Data interface{} `json:"data"`
}

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["events", "events:AAPL"]
}
