// Package compose renders the customer-facing Arabic message for each
// order lifecycle event. Rendering is pure: no I/O, no clock, no state.
package compose

import (
	"errors"
	"fmt"

	"github.com/mejo-sal/pinable/internal/domain/event"
	"github.com/mejo-sal/pinable/internal/domain/order"
)

// ErrNoMessage means the event carries nothing worth telling the customer
// about. Distinct from an empty-but-valid template.
var ErrNoMessage = errors.New("compose: no message for event")

// fallback strings for optional payload fields
const (
	genericCustomer = "العميل"
	genericCarrier  = "شركة الشحن"
)

// Composer holds the store-identity bits that get interpolated into every
// template. Template wording is a localized asset; only the interpolation
// points are load-bearing.
type Composer struct {
	storeName       string
	trackingBaseURL string
	surveyURL       string
}

func New(storeName, trackingBaseURL, surveyURL string) *Composer {
	return &Composer{
		storeName:       storeName,
		trackingBaseURL: trackingBaseURL,
		surveyURL:       surveyURL,
	}
}

// OrderPlaced is the confirmation sent right after checkout.
func (c *Composer) OrderPlaced(o *order.Placed) string {
	name := genericCustomer
	if o.Customer != nil && o.Customer.Name != "" {
		name = o.Customer.Name
	}

	return fmt.Sprintf(`مرحبًا %s 💛
تم استلام طلبك رقم #%s من %s بنجاح

إجمالي الطلب: %v EGP
شكرًا لاختيارك %s`,
		name, o.OrderSerial, c.storeName, formatAmount(o.TotalPrice.Amount), c.storeName)
}

// ShipmentEvent renders the message for one shipment sub-event.
// Unrecognized sub-events return ErrNoMessage.
func (c *Composer) ShipmentEvent(subEvent string, sh *order.Shipment) (string, error) {
	switch subEvent {
	case event.ShipmentPickedUp:
		carrier := sh.CompanyName
		if carrier == "" {
			carrier = sh.ShippingRateName
		}
		if carrier == "" {
			carrier = genericCarrier
		}

		return fmt.Sprintf(`تم تسليم طلبك رقم #%s لشركة الشحن:
شركة: %s 🚚
رابط التتبع: %s%s
إمكانية فتح الشحنة: نعم ✅

شكرًا لثقتك في %s`,
			sh.OrderSerial, carrier, c.trackingBaseURL, sh.TrackingNumber, c.storeName), nil

	case event.ShipmentDelivered:
		return fmt.Sprintf(`شكرا لثقتك فى 🍍 %s
يارب يكون الاوردر عجب حضرتك 🙏
رايك يهمنا 💛

%s`,
			c.storeName, c.surveyURL), nil

	default:
		return "", ErrNoMessage
	}
}

// OrderCanceled asks for cancellation feedback.
func (c *Composer) OrderCanceled(o *order.Placed) string {
	name := genericCustomer
	if o.Customer != nil && o.Customer.Name != "" {
		name = o.Customer.Name
	}

	return fmt.Sprintf(`مرحبًا %s 💛

تم إلغاء طلبك رقم #%s من %s بناءً على طلبك.

مهتمين نعرف رأيك
هل واجهتك أي مشكلة أثناء الطلب؟ أو ممكن تقولنا سبب الإلغاء؟

رأيك يهمنا جدًا علشان نحسّن تجربتك في المرات الجاية 💛`,
		name, o.OrderSerial, c.storeName)
}

// formatAmount prints whole-pound totals without a trailing ".00".
func formatAmount(amount float64) string {
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("%d", int64(amount))
	}
	return fmt.Sprintf("%.2f", amount)
}
