package relaysvc

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/activefrequency/tranquilo-shopify/internal/config"
	"github.com/activefrequency/tranquilo-shopify/internal/dal/mds"
	"github.com/activefrequency/tranquilo-shopify/internal/service/models/shopify"
	"github.com/activefrequency/tranquilo-shopify/internal/worker/alerts"
	"github.com/activefrequency/tranquilo-shopify/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "hush"

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) SubmitOrder(ctx context.Context, payload []byte) (*mds.Acknowledgment, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*mds.Acknowledgment), args.Error(1)
}

type recordingNotifier struct {
	notifications []alerts.Notification
}

func (r *recordingNotifier) Notify(n alerts.Notification) {
	r.notifications = append(r.notifications, n)
}

func newService(sub *mockSubmitter, notes *recordingNotifier) *RelayService {
	return MustNewRelayService(
		WithConfig(&config.Config{
			ShopifyAPISecret:   testSecret,
			MDSClientCode:      "CC",
			MDSClientSignature: "CS",
			MDSTest:            "Y",
		}),
		WithMDSClient(sub),
		WithAlerts(notes),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
}

func orderPayload(t *testing.T, mutate func(map[string]any)) []byte {
	t.Helper()

	event := map[string]any{
		"order_number":  int64(1001),
		"created_at":    "2021-03-05T10:00:00Z",
		"contact_email": "buyer@example.com",
		"total_price":   "19.98",
		"note":          "",
		"shipping_address": map[string]any{
			"name":          "Pat Doe",
			"address1":      "1 Main St",
			"city":          "Boston",
			"province_code": "MA",
			"country_code":  "US",
			"zip":           "02134",
		},
		"line_items": []map[string]any{
			{"sku": "ABC123", "title": "Widget", "price": "9.99", "quantity": 2},
		},
	}
	if mutate != nil {
		mutate(event)
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return payload
}

func ack(result string) *mds.Acknowledgment {
	a := &mds.Acknowledgment{Raw: []byte("<CUSTOrderAck><OrderAck><Result>" + result + "</Result></OrderAck></CUSTOrderAck>")}
	a.OrderAck.Result = result

	return a
}

func TestRelay_SignatureMismatch(t *testing.T) {
	sub := new(mockSubmitter)
	svc := newService(sub, &recordingNotifier{})

	body := orderPayload(t, nil)
	_, err := svc.Relay(context.Background(), body, "bm90IHRoZSByaWdodCBzaWduYXR1cmU=")

	assert.ErrorIs(t, err, ErrSignatureMismatch)
	sub.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestRelay_MalformedBody(t *testing.T) {
	sub := new(mockSubmitter)
	svc := newService(sub, &recordingNotifier{})

	body := []byte("not json")
	_, err := svc.Relay(context.Background(), body, shopify.Sign(testSecret, body))

	assert.ErrorIs(t, err, ErrMalformedEvent)
	sub.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestRelay_BusinessFilters(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(map[string]any)
		disposition Disposition
	}{
		{
			name: "order with refunds",
			mutate: func(event map[string]any) {
				event["refunds"] = []map[string]any{{"id": 5}}
			},
			disposition: DispositionSkippedRefund,
		},
		{
			name: "no shipping address",
			mutate: func(event map[string]any) {
				delete(event, "shipping_address")
			},
			disposition: DispositionSkippedNoShipping,
		},
		{
			name: "non-domestic shipping address",
			mutate: func(event map[string]any) {
				event["shipping_address"].(map[string]any)["country_code"] = "CA"
			},
			disposition: DispositionSkippedForeign,
		},
		{
			name: "all lines wholesale or decorative",
			mutate: func(event map[string]any) {
				event["line_items"] = []map[string]any{
					{"sku": "WS100", "title": "Wholesale", "price": "1.00", "quantity": 1},
					{"sku": "DC200", "title": "Cover", "price": "5.00", "quantity": 1},
				}
			},
			disposition: DispositionSkippedNoLines,
		},
		{
			name: "missing created_at",
			mutate: func(event map[string]any) {
				delete(event, "created_at")
			},
			disposition: DispositionSkippedInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := new(mockSubmitter)
			svc := newService(sub, &recordingNotifier{})

			body := orderPayload(t, tt.mutate)
			result, err := svc.Relay(context.Background(), body, shopify.Sign(testSecret, body))

			require.NoError(t, err)
			assert.Equal(t, tt.disposition, result.Disposition)
			assert.False(t, result.Acknowledged)
			sub.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestRelay_Forwarded(t *testing.T) {
	sub := new(mockSubmitter)
	sub.On("SubmitOrder", mock.Anything, mock.Anything).Return(ack("1"), nil)
	notes := &recordingNotifier{}
	svc := newService(sub, notes)

	body := orderPayload(t, nil)
	result, err := svc.Relay(context.Background(), body, shopify.Sign(testSecret, body))

	require.NoError(t, err)
	assert.Equal(t, DispositionForwarded, result.Disposition)
	assert.Equal(t, int64(1001), result.OrderNumber)
	assert.True(t, result.Acknowledged)
	assert.Empty(t, notes.notifications)

	sub.AssertCalled(t, "SubmitOrder", mock.Anything, mock.MatchedBy(func(payload []byte) bool {
		text := string(payload)
		return strings.Contains(text, "<MDSOrder") && strings.Contains(text, "<OrderID>1001</OrderID>")
	}))
}

func TestRelay_ForwardedWithExcludedLines(t *testing.T) {
	sub := new(mockSubmitter)
	sub.On("SubmitOrder", mock.Anything, mock.Anything).Return(ack("1"), nil)
	svc := newService(sub, &recordingNotifier{})

	body := orderPayload(t, func(event map[string]any) {
		event["line_items"] = []map[string]any{
			{"sku": "WS100", "title": "Wholesale", "price": "1.00", "quantity": 1},
			{"sku": "ABC123", "title": "Widget", "price": "9.99", "quantity": 2},
			{"sku": "DC200", "title": "Cover", "price": "5.00", "quantity": 1},
		}
	})
	result, err := svc.Relay(context.Background(), body, shopify.Sign(testSecret, body))

	require.NoError(t, err)
	assert.Equal(t, DispositionForwarded, result.Disposition)
	assert.Equal(t, 1, result.Excluded.Wholesale)
	assert.Equal(t, 1, result.Excluded.Decorative)
}

func TestRelay_NegativeAcknowledgment(t *testing.T) {
	sub := new(mockSubmitter)
	sub.On("SubmitOrder", mock.Anything, mock.Anything).Return(ack("0"), nil)
	notes := &recordingNotifier{}
	svc := newService(sub, notes)

	body := orderPayload(t, nil)
	result, err := svc.Relay(context.Background(), body, shopify.Sign(testSecret, body))

	// downstream failures never surface to the caller
	require.NoError(t, err)
	assert.Equal(t, DispositionForwarded, result.Disposition)
	assert.False(t, result.Acknowledged)

	require.Len(t, notes.notifications, 1)
	assert.Equal(t, int64(1001), notes.notifications[0].OrderNumber)
	assert.Contains(t, notes.notifications[0].Detail, "<Result>0</Result>")
}

func TestRelay_SubmitError(t *testing.T) {
	sub := new(mockSubmitter)
	sub.On("SubmitOrder", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	notes := &recordingNotifier{}
	svc := newService(sub, notes)

	body := orderPayload(t, nil)
	result, err := svc.Relay(context.Background(), body, shopify.Sign(testSecret, body))

	require.NoError(t, err)
	assert.Equal(t, DispositionForwarded, result.Disposition)
	assert.False(t, result.Acknowledged)
	assert.Len(t, notes.notifications, 1)
}

func TestRelay_FieldFailureNotifies(t *testing.T) {
	sub := new(mockSubmitter)
	notes := &recordingNotifier{}
	svc := newService(sub, notes)

	body := orderPayload(t, func(event map[string]any) {
		event["created_at"] = "bogus-date"
	})
	result, err := svc.Relay(context.Background(), body, shopify.Sign(testSecret, body))

	require.NoError(t, err)
	assert.Equal(t, DispositionSkippedInvalid, result.Disposition)
	require.Len(t, notes.notifications, 1)
	assert.Contains(t, notes.notifications[0].Detail, "created_at")
	sub.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}
