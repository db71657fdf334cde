package domain

import "time"

type OrderStatus string

const (
	OrderCreated   OrderStatus = "created"
	OrderAccepted  OrderStatus = "accepted"
	OrderPickedUp  OrderStatus = "picked_up"
	OrderInTransit OrderStatus = "in_transit"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the order has reached a final state and no longer
// contributes stops to route planning.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Order is a delivery order as seen from the tracking core: the assignment of
// a pickup and dropoff location to a driver. Registry lookups own the full
// order lifecycle; only the fields route planning needs appear here.
type Order struct {
	ID        string
	DriverID  string
	Category  string
	Status    OrderStatus
	Pickup    Coordinates
	Dropoff   Coordinates
	CreatedAt time.Time
}

// Driver is a registry row for an assigned driver.
type Driver struct {
	ID     string
	Name   string
	Status string
}
