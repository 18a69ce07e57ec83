package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// SignatureHeader is the request header Shopify signs webhook deliveries with.
const SignatureHeader = "X-Shopify-Hmac-Sha256"

// DeliveryHeader carries Shopify's id for a single webhook delivery attempt.
const DeliveryHeader = "X-Shopify-Webhook-Id"

// Address is the shipping or billing block of an order webhook.
type Address struct {
	Company      string `json:"company"`
	Name         string `json:"name"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	ProvinceCode string `json:"province_code"`
	CountryCode  string `json:"country_code"`
	Zip          string `json:"zip"`
	Phone        string `json:"phone"`
}

// LineItem is a single purchased line of an order webhook.
type LineItem struct {
	SKU      string `json:"sku"`
	Title    string `json:"title"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

// Wholesale reports whether the line is a wholesale item ("WS" SKU prefix).
// Matching is exact and case-sensitive.
func (l LineItem) Wholesale() bool {
	return strings.HasPrefix(l.SKU, "WS")
}

// DecorativeCover reports whether the line is a decorative cover ("DC" SKU
// prefix), fulfilled by a different party. Matching is exact and case-sensitive.
func (l LineItem) DecorativeCover() bool {
	return strings.HasPrefix(l.SKU, "DC")
}

// OrderEvent is the orders/create webhook payload, immutable after parse.
// Pointer fields distinguish blocks Shopify omitted from blocks it sent; a JSON
// null and an absent key decode the same way.
type OrderEvent struct {
	OrderNumber     int64             `json:"order_number"`
	CreatedAt       string            `json:"created_at"`
	ContactEmail    string            `json:"contact_email"`
	TotalPrice      string            `json:"total_price"`
	Note            string            `json:"note"`
	ShippingAddress *Address          `json:"shipping_address"`
	BillingAddress  *Address          `json:"billing_address"`
	LineItems       []LineItem        `json:"line_items"`
	Refunds         []json.RawMessage `json:"refunds"`
}

// ParseOrderEvent decodes a raw webhook body.
func ParseOrderEvent(data []byte) (*OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}

	return &event, nil
}

// HasRefunds reports whether the order carries any refund information.
func (e *OrderEvent) HasRefunds() bool {
	return len(e.Refunds) > 0
}

// VerifySignature checks a webhook delivery against the shared app secret.
// The digest is computed over the raw body bytes exactly as received;
// re-serializing the JSON can change the byte layout and break the signature.
func VerifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	computed := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(computed), []byte(signature))
}

// Sign computes the signature header value Shopify would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
