package domain

import "time"

// Order statuses that select the wording of status emails.
const (
	OrderStatusProcessing = "Processing"
	OrderStatusShipped    = "Shipped"
	OrderStatusDelivered  = "Delivered"
)

// ShippingInfo is the delivery address of an order.
type ShippingInfo struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	Name     string  `json:"name"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
	Size     Size    `json:"size"`
	Price    float64 `json:"price"`
}

// Order is the subset of an order owned by the order service that status
// emails render.
type Order struct {
	ID            string       `json:"_id"`
	OrderStatus   string       `json:"orderStatus"`
	CreatedAt     time.Time    `json:"createdAt"`
	ShippingInfo  ShippingInfo `json:"shippingInfo"`
	OrderItems    []OrderItem  `json:"orderItems"`
	ItemsPrice    float64      `json:"itemsPrice"`
	ShippingPrice float64      `json:"shippingPrice"`
	TotalPrice    float64      `json:"totalPrice"`
}
