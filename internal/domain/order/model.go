package order

import (
	"time"
)

// Correlation associates an order id with the phone number that future
// shipment events should be delivered to. Phone is always the canonical
// international form produced by the normalizer, never the raw webhook value.
type Correlation struct {
	Phone      string    `json:"phone"`
	Name       string    `json:"name"`
	RecordedAt time.Time `json:"stored_at"`
}

// Placed is the order object carried by ORDER_PLACED and ORDER_CANCELED payloads.
type Placed struct {
	ID              string           `json:"_id"`
	OrderSerial     string           `json:"orderSerial"`
	Customer        *Customer        `json:"customer"`
	ShippingAddress *ShippingAddress `json:"shippingAddress"`
	TotalPrice      TotalPrice       `json:"totalPrice"`
}

type Customer struct {
	Name string `json:"name"`
}

type ShippingAddress struct {
	Phone string `json:"phone"`
}

type TotalPrice struct {
	Amount float64 `json:"amount"`
}

// Shipment is the order object carried by SHIPMENT_UPDATED payloads. It
// references the order by a plain orderId field and does not carry the
// customer phone, which is why the correlation store exists.
type Shipment struct {
	OrderID          string `json:"orderId"`
	OrderSerial      string `json:"orderSerial"`
	CompanyName      string `json:"companyName"`
	ShippingRateName string `json:"shippingRateName"`
	TrackingNumber   string `json:"trackingNumber"`
}
