package flow

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Action is the lifecycle step an event applies to an order.
type Action uint8

const (
	ActionNew Action = iota + 1
	ActionCancel
	ActionReplace
)

func (a Action) String() string {
	switch a {
	case ActionNew:
		return "NEW"
	case ActionCancel:
		return "CANCEL"
	case ActionReplace:
		return "REPLACE"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}

func ParseAction(s string) (Action, error) {
	switch s {
	case "NEW":
		return ActionNew, nil
	case "CANCEL":
		return ActionCancel, nil
	case "REPLACE":
		return ActionReplace, nil
	}
	return 0, fmt.Errorf("%w: action %q", ErrMalformedEvent, s)
}

type Side uint8

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

func ParseSide(s string) (Side, error) {
	switch s {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	}
	return 0, fmt.Errorf("%w: side %q", ErrMalformedEvent, s)
}

type OrderType uint8

const (
	Limit OrderType = iota + 1
	Market
)

func (t OrderType) String() string {
	switch t {
	case Limit:
		return "LIMIT"
	case Market:
		return "MARKET"
	default:
		return fmt.Sprintf("OrderType(%d)", uint8(t))
	}
}

func ParseOrderType(s string) (OrderType, error) {
	switch s {
	case "LIMIT":
		return Limit, nil
	case "MARKET":
		return Market, nil
	}
	return 0, fmt.Errorf("%w: order type %q", ErrMalformedEvent, s)
}

// Terms are the order terms carried by NEW and REPLACE.
// Price is zero for MARKET orders.
type Terms struct {
	Side     Side
	Price    decimal.Decimal
	Quantity int64
	Type     OrderType
}

// Event is one emitted lifecycle record. Terms is nil for CANCEL and
// non-nil for NEW and REPLACE; the flat seven-column row exists only in
// the CSV codec.
type Event struct {
	Timestamp time.Time
	Action    Action
	OrderID   uint64
	Symbol    string
	Terms     *Terms
}

func (e Event) String() string {
	if e.Terms == nil {
		return fmt.Sprintf("%s #%d %s", e.Action, e.OrderID, e.Symbol)
	}
	return fmt.Sprintf("%s #%d %s %s %s %d@%s",
		e.Action, e.OrderID, e.Symbol, e.Terms.Type, e.Terms.Side, e.Terms.Quantity, e.Terms.Price.StringFixed(2))
}
