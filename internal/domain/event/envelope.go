package event

import (
	"encoding/json"

	"github.com/mejo-sal/pinable/internal/domain/order"
)

// Kind is the webhook event tag.
type Kind string

const (
	OrderPlaced     Kind = "ORDER_PLACED"
	ShipmentUpdated Kind = "SHIPMENT_UPDATED"
	OrderCanceled   Kind = "ORDER_CANCELED"
)

// Shipment sub-events carried inside a SHIPMENT_UPDATED payload.
const (
	ShipmentPickedUp  = "OrderShipmentPickedUp"
	ShipmentDelivered = "OrderShipmentDelivered"
)

// Envelope is the top-level webhook body: { data: { event, payload } }.
// Payload stays raw until the router knows which kind it is.
type Envelope struct {
	Data struct {
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	} `json:"data"`
}

// OrderPayload is the payload for ORDER_PLACED and ORDER_CANCELED.
type OrderPayload struct {
	Order *order.Placed `json:"order"`
}

// ShipmentPayload is the payload for SHIPMENT_UPDATED. Events lists zero or
// more sub-events that occurred since the last update, in occurrence order.
type ShipmentPayload struct {
	Events []string        `json:"events"`
	Order  *order.Shipment `json:"order"`
}
