// Package relaysvc relays Shopify order webhooks to the MDS web service.
package relaysvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/activefrequency/tranquilo-shopify/internal/config"
	"github.com/activefrequency/tranquilo-shopify/internal/dal/mds"
	"github.com/activefrequency/tranquilo-shopify/internal/service/models/mdsorder"
	"github.com/activefrequency/tranquilo-shopify/internal/service/models/shopify"
	"github.com/activefrequency/tranquilo-shopify/internal/worker/alerts"
	"github.com/activefrequency/tranquilo-shopify/pkg/metrics"
	"github.com/getsentry/sentry-go"
)

// domesticCountry is the only shipping destination forwarded to MDS.
const domesticCountry = "US"

var (
	// ErrSignatureMismatch means the webhook signature did not verify against
	// the shared secret.
	ErrSignatureMismatch = errors.New("webhook signature mismatch")

	// ErrMalformedEvent means the webhook body was not a parseable order event.
	ErrMalformedEvent = errors.New("malformed webhook event")
)

// Disposition says what the relay did with a webhook.
type Disposition string

const (
	DispositionForwarded         Disposition = "forwarded"
	DispositionSkippedRefund     Disposition = "skipped_refund"
	DispositionSkippedNoShipping Disposition = "skipped_no_shipping"
	DispositionSkippedForeign    Disposition = "skipped_foreign"
	DispositionSkippedNoLines    Disposition = "skipped_all_lines_excluded"
	DispositionSkippedInvalid    Disposition = "skipped_invalid"
)

// Result describes the outcome of one relayed webhook.
type Result struct {
	Disposition  Disposition
	OrderNumber  int64
	Excluded     mdsorder.Exclusions
	Acknowledged bool
}

// submitter posts an order document downstream.
type submitter interface {
	SubmitOrder(ctx context.Context, payload []byte) (*mds.Acknowledgment, error)
}

// notifier escalates failures to the operators.
type notifier interface {
	Notify(n alerts.Notification)
}

// RelayService is the order relay pipeline.
type RelayService struct {
	secret  string
	params  mdsorder.BuildParams
	mds     submitter
	alerts  notifier
	metrics *metrics.Metrics
}

// option is a function that configures the RelayService.
type option func(*RelayService)

// MustNewRelayService creates a new RelayService.
func MustNewRelayService(opts ...option) *RelayService {
	s := &RelayService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.secret == "" {
		panic("relay service configured without a webhook secret")
	}
	if s.mds == nil {
		panic("relay service configured without an MDS client")
	}

	return s
}

// WithConfig sets the webhook secret and document credentials from cfg.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithConfig(cfg *config.Config) option {
	return func(s *RelayService) {
		s.secret = cfg.ShopifyAPISecret
		s.params = mdsorder.BuildParams{
			ClientCode:      cfg.MDSClientCode,
			ClientSignature: cfg.MDSClientSignature,
			TestMode:        cfg.TestMode(),
		}
	}
}

// WithMDSClient sets the downstream client for the RelayService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMDSClient(client submitter) option {
	return func(s *RelayService) {
		s.mds = client
	}
}

// WithAlerts sets the escalation notifier for the RelayService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithAlerts(n notifier) option {
	return func(s *RelayService) {
		s.alerts = n
	}
}

// WithMetrics sets the Prometheus collectors for the RelayService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMetrics(m *metrics.Metrics) option {
	return func(s *RelayService) {
		s.metrics = m
	}
}

// Relay runs one webhook through the pipeline: verify the signature over the
// raw body, parse the event, apply the business filters, build the document
// and submit it. Only ErrSignatureMismatch and ErrMalformedEvent come back as
// errors; every other failure is absorbed so Shopify does not retry a delivery
// it cannot fix.
func (s *RelayService) Relay(ctx context.Context, rawBody []byte, signature string) (Result, error) {
	if !shopify.VerifySignature(s.secret, rawBody, signature) {
		return Result{}, ErrSignatureMismatch
	}

	event, err := shopify.ParseOrderEvent(rawBody)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	slog.DebugContext(ctx, "Got Shopify webhook", "order_number", event.OrderNumber)

	result := Result{OrderNumber: event.OrderNumber}

	if event.HasRefunds() {
		slog.InfoContext(ctx, "Order has refunds, not forwarding", "order_number", event.OrderNumber)

		return s.finish(result, DispositionSkippedRefund), nil
	}

	if event.ShippingAddress == nil {
		slog.InfoContext(ctx, "Order has no shipping address, not forwarding", "order_number", event.OrderNumber)

		return s.finish(result, DispositionSkippedNoShipping), nil
	}

	if event.ShippingAddress.CountryCode != domesticCountry {
		slog.InfoContext(ctx, "Order ships outside the US, not forwarding",
			"order_number", event.OrderNumber,
			"country_code", event.ShippingAddress.CountryCode,
		)

		return s.finish(result, DispositionSkippedForeign), nil
	}

	doc, excluded, err := mdsorder.Build(event, s.params)
	if err != nil {
		s.escalate(ctx, event.OrderNumber, "failed to build order document", err.Error())
		slog.ErrorContext(ctx, "Error building order document",
			"order_number", event.OrderNumber,
			"error", err,
		)

		return s.finish(result, DispositionSkippedInvalid), nil
	}

	result.Excluded = excluded
	s.countExcluded(excluded)

	if doc.Retained() == 0 {
		slog.InfoContext(ctx, "All order lines excluded, not forwarding",
			"order_number", event.OrderNumber,
			"wholesale", excluded.Wholesale,
			"decorative", excluded.Decorative,
		)

		return s.finish(result, DispositionSkippedNoLines), nil
	}

	if excluded.Any() {
		slog.InfoContext(ctx, "Excluded some order lines",
			"order_number", event.OrderNumber,
			"wholesale", excluded.Wholesale,
			"decorative", excluded.Decorative,
		)
	}

	payload, err := doc.Bytes()
	if err != nil {
		s.escalate(ctx, event.OrderNumber, "failed to serialize order document", err.Error())
		slog.ErrorContext(ctx, "Error serializing order document",
			"order_number", event.OrderNumber,
			"error", err,
		)

		return s.finish(result, DispositionSkippedInvalid), nil
	}

	result.Acknowledged = s.submit(ctx, event.OrderNumber, payload)

	return s.finish(result, DispositionForwarded), nil
}

// submit posts the document to MDS and interprets the acknowledgment. A
// transport failure, an unparseable response, or a result other than "1" all
// count as unacknowledged and are escalated; none of them reach the caller.
func (s *RelayService) submit(ctx context.Context, orderNumber int64, payload []byte) bool {
	start := time.Now()
	ack, err := s.mds.SubmitOrder(ctx, payload)
	if s.metrics != nil {
		s.metrics.MDSRequestDuration.Observe(time.Since(start).Seconds())
	}

	if err != nil || !ack.Accepted() {
		response := ""
		if ack != nil {
			response = string(ack.Raw)
		}
		s.countAck("rejected")
		s.escalate(ctx, orderNumber, "MDS did not acknowledge the order", response)
		slog.ErrorContext(ctx, fmt.Sprintf("Problem sending Order #%d to MDS. Response: %s", orderNumber, response),
			"order_number", orderNumber,
			"error", err,
		)

		return false
	}

	s.countAck("accepted")
	slog.InfoContext(ctx, fmt.Sprintf("Sent Order #%d to MDS", orderNumber), "order_number", orderNumber)

	return true
}

func (s *RelayService) escalate(ctx context.Context, orderNumber int64, reason, detail string) {
	sentry.CaptureMessage(fmt.Sprintf("order #%d: %s", orderNumber, reason))

	if s.alerts != nil {
		s.alerts.Notify(alerts.Notification{
			OrderNumber: orderNumber,
			Reason:      reason,
			Detail:      detail,
		})
	}
}

func (s *RelayService) finish(result Result, disposition Disposition) Result {
	result.Disposition = disposition
	if s.metrics != nil {
		s.metrics.Webhooks.WithLabelValues(string(disposition)).Inc()
	}

	return result
}

func (s *RelayService) countExcluded(excluded mdsorder.Exclusions) {
	if s.metrics == nil {
		return
	}
	if excluded.Wholesale > 0 {
		s.metrics.ExcludedLines.WithLabelValues("wholesale").Add(float64(excluded.Wholesale))
	}
	if excluded.Decorative > 0 {
		s.metrics.ExcludedLines.WithLabelValues("decorative").Add(float64(excluded.Decorative))
	}
}

func (s *RelayService) countAck(result string) {
	if s.metrics != nil {
		s.metrics.MDSAcks.WithLabelValues(result).Inc()
	}
}
