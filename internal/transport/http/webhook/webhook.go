package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/activefrequency/tranquilo-shopify/internal/service/models/shopify"
	"github.com/activefrequency/tranquilo-shopify/internal/service/services/relaysvc"
	"github.com/google/uuid"
)

// Responses Shopify sees. Anything past signature and structural validation is
// a 200 so the webhook is never redelivered for a failure we cannot fix.
const (
	responseOK               = "OK"
	responseMissingData      = "Bad Request (missing data)"
	responseFailedValidation = "Bad Request (failed validation)"
)

// service is an interface for the service layer.
type service interface {
	Relay(ctx context.Context, rawBody []byte, signature string) (relaysvc.Result, error)
}

// Handle processes one webhook delivery.
func Handle(w http.ResponseWriter, r *http.Request, service service) {
	deliveryID := r.Header.Get(shopify.DeliveryHeader)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	signature := r.Header.Get(shopify.SignatureHeader)
	if signature == "" {
		http.Error(w, responseMissingData, http.StatusBadRequest)
		slog.ErrorContext(r.Context(), "Error receiving webhook",
			"delivery_id", deliveryID,
			"error", "missing signature header",
		)

		return
	}

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, responseMissingData, http.StatusBadRequest)
		slog.ErrorContext(r.Context(), "Error receiving webhook", "delivery_id", deliveryID, "error", err)

		return
	}

	result, err := service.Relay(r.Context(), rawBody, signature)
	if err != nil {
		switch {
		case errors.Is(err, relaysvc.ErrSignatureMismatch):
			http.Error(w, responseFailedValidation, http.StatusBadRequest)
			slog.ErrorContext(r.Context(), "Error validating webhook", "delivery_id", deliveryID, "error", err)
		default:
			http.Error(w, responseMissingData, http.StatusBadRequest)
			slog.ErrorContext(r.Context(), "Error receiving webhook", "delivery_id", deliveryID, "error", err)
		}

		return
	}

	slog.InfoContext(r.Context(), "Webhook handled",
		"delivery_id", deliveryID,
		"order_number", result.OrderNumber,
		"disposition", string(result.Disposition),
	)

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(responseOK)); err != nil {
		slog.ErrorContext(r.Context(), "Error sending response for webhook", "delivery_id", deliveryID, "error", err)
	}
}
