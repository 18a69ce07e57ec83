// Package mdsorder builds the XML order document the MDS web service accepts.
package mdsorder

import (
	"encoding/xml"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/activefrequency/tranquilo-shopify/internal/service/models/shopify"
	"github.com/go-playground/validator/v10"
)

const (
	documentLang = "en-US"
	testFlag     = "Y"
)

// Document is the root MDSOrder element sent to MDS.
type Document struct {
	XMLName         xml.Name `xml:"MDSOrder"`
	Lang            string   `xml:"xml:lang,attr"`
	ClientCode      string   `xml:"ClientCode"`
	ClientSignature string   `xml:"ClientSignature"`
	Order           Order    `xml:"Order"`
}

// Order is the order block of the document. Billing fields are pointers so the
// whole block disappears when the webhook carried no billing address; element
// names and their order follow the MDS schema, including the lowercase
// "Shipname"/"Billname".
type Order struct {
	Test         string  `xml:"Test,omitempty"`
	OrderID      string  `xml:"OrderID"`
	OrderDate    string  `xml:"OrderDate"`
	ShipCompany  string  `xml:"ShipCompany"`
	ShipName     string  `xml:"Shipname"`
	ShipAddress1 string  `xml:"ShipAddress1"`
	ShipAddress2 string  `xml:"ShipAddress2"`
	ShipCity     string  `xml:"ShipCity"`
	ShipState    string  `xml:"ShipState"`
	ShipCountry  string  `xml:"ShipCountry"`
	ShipZip      string  `xml:"ShipZip"`
	ShipPhone    string  `xml:"ShipPhone"`
	ShipEmail    string  `xml:"ShipEmail"`
	BillCompany  *string `xml:"BillCompany"`
	BillName     *string `xml:"Billname"`
	BillAddress1 *string `xml:"BillAddress1"`
	BillAddress2 *string `xml:"BillAddress2"`
	BillCity     *string `xml:"BillCity"`
	BillState    *string `xml:"BillState"`
	BillCountry  *string `xml:"BillCountry"`
	BillZip      *string `xml:"BillZip"`
	OrderTotal   string  `xml:"OrderTotal"`
	OrderNotes   string  `xml:"OrderNotes"`
	Lines        []Line  `xml:"Lines>Line"`
}

// Line is a single retained order line. Number is the 1-based position among
// retained lines, zero-padded to three digits.
type Line struct {
	Number         string `xml:"number,attr"`
	CUSTItemID     string `xml:"CUSTItemID"`
	RetailerItemID string `xml:"RetailerItemID"`
	Description    string `xml:"Description"`
	PricePerUnit   string `xml:"PricePerUnit"`
	Qty            string `xml:"Qty"`
}

// Retained returns the number of lines kept in the document.
func (d *Document) Retained() int {
	return len(d.Order.Lines)
}

// Bytes serializes the document as UTF-8 XML text with a declaration.
func (d *Document) Bytes() ([]byte, error) {
	out, err := xml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal order document: %w", err)
	}

	return append([]byte(xml.Header), out...), nil
}

// BuildParams are the static client credentials every document carries.
type BuildParams struct {
	ClientCode      string
	ClientSignature string
	TestMode        bool
}

// Exclusions counts the line items dropped while building a document.
type Exclusions struct {
	Wholesale  int
	Decorative int
}

// Any reports whether at least one line was excluded.
func (e Exclusions) Any() bool {
	return e.Wholesale > 0 || e.Decorative > 0
}

// FieldError reports a required order field that is missing or unusable.
type FieldError struct {
	Field string
	cause error
}

func (e *FieldError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("field %s: %v", e.Field, e.cause)
	}

	return fmt.Sprintf("field %s is missing", e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.cause
}

// requiredFields is the explicit validation pass run before any document is
// assembled; validation failures map to FieldError by wire name.
type requiredFields struct {
	OrderNumber     int64            `json:"order_number"     validate:"required"`
	CreatedAt       string           `json:"created_at"       validate:"required,min=10"`
	ShippingAddress *shopify.Address `json:"shipping_address" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})

	return v
}

// Build translates a webhook event into an MDS order document. Wholesale and
// decorative-cover lines are dropped and counted; retained lines are renumbered
// sequentially from "001". Build is pure: it never touches the network and the
// returned document is ready to serialize.
func Build(event *shopify.OrderEvent, params BuildParams) (*Document, Exclusions, error) {
	var excluded Exclusions

	if err := validateRequired(event); err != nil {
		return nil, excluded, err
	}

	orderDate, err := formatOrderDate(event.CreatedAt)
	if err != nil {
		return nil, excluded, &FieldError{Field: "created_at", cause: err}
	}

	ship := event.ShippingAddress
	ord := Order{
		OrderID:      strconv.FormatInt(event.OrderNumber, 10),
		OrderDate:    orderDate,
		ShipCompany:  ship.Company,
		ShipName:     ship.Name,
		ShipAddress1: ship.Address1,
		ShipAddress2: ship.Address2,
		ShipCity:     ship.City,
		ShipState:    ship.ProvinceCode,
		ShipCountry:  ship.CountryCode,
		ShipZip:      ship.Zip,
		ShipPhone:    ship.Phone,
		ShipEmail:    event.ContactEmail,
		OrderTotal:   event.TotalPrice,
		OrderNotes:   event.Note,
	}

	if params.TestMode {
		ord.Test = testFlag
	}

	if bill := event.BillingAddress; bill != nil {
		ord.BillCompany = &bill.Company
		ord.BillName = &bill.Name
		ord.BillAddress1 = &bill.Address1
		ord.BillAddress2 = &bill.Address2
		ord.BillCity = &bill.City
		ord.BillState = &bill.ProvinceCode
		ord.BillCountry = &bill.CountryCode
		ord.BillZip = &bill.Zip
	}

	for _, line := range event.LineItems {
		switch {
		case line.Wholesale():
			excluded.Wholesale++
		case line.DecorativeCover():
			excluded.Decorative++
		default:
			ord.Lines = append(ord.Lines, Line{
				Number:         fmt.Sprintf("%03d", len(ord.Lines)+1),
				CUSTItemID:     line.SKU,
				RetailerItemID: line.SKU,
				Description:    line.Title,
				PricePerUnit:   line.Price,
				Qty:            strconv.Itoa(line.Quantity),
			})
		}
	}

	doc := &Document{
		Lang:            documentLang,
		ClientCode:      params.ClientCode,
		ClientSignature: params.ClientSignature,
		Order:           ord,
	}

	return doc, excluded, nil
}

func validateRequired(event *shopify.OrderEvent) error {
	err := validate.Struct(requiredFields{
		OrderNumber:     event.OrderNumber,
		CreatedAt:       event.CreatedAt,
		ShippingAddress: event.ShippingAddress,
	})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &FieldError{Field: verrs[0].Field()}
	}

	return err
}

// formatOrderDate reformats the date portion of created_at from YYYY-MM-DD to
// the MM/DD/YYYY form MDS expects. Only the first ten characters matter; the
// time and zone suffix is ignored.
func formatOrderDate(createdAt string) (string, error) {
	day, err := time.Parse("2006-01-02", createdAt[:10])
	if err != nil {
		return "", err
	}

	return day.Format("01/02/2006"), nil
}
