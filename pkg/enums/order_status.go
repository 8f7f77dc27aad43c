package enums

// OrderStatus is the lifecycle state of an order. Pending is the only
// non-terminal state; every other status is final.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusVerified   OrderStatus = "verified"
	OrderStatusRejected   OrderStatus = "rejected"
	OrderStatusStockError OrderStatus = "stock_error"
	OrderStatusTimeout    OrderStatus = "timeout"
)

var orderStatuses = newValueSet("order status", false,
	OrderStatusPending,
	OrderStatusVerified,
	OrderStatusRejected,
	OrderStatusStockError,
	OrderStatusTimeout,
)

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return orderStatuses.contains(s) }

func (s OrderStatus) IsTerminal() bool {
	return s != OrderStatusPending && s.IsValid()
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return orderStatuses.parse(value)
}

// AllOrderStatuses lists every status in lifecycle order.
func AllOrderStatuses() []OrderStatus {
	return orderStatuses.all()
}
