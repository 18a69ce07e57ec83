// Package mds is the client for the MDS order-management web service.
package mds

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
)

// Acknowledgment is the XML response MDS returns for a submitted order.
type Acknowledgment struct {
	XMLName  xml.Name `xml:"CUSTOrderAck"`
	OrderAck struct {
		Result string `xml:"Result"`
	} `xml:"OrderAck"`

	// Raw is the response body exactly as received, kept for diagnostics.
	Raw []byte `xml:"-"`
}

// Accepted reports whether MDS acknowledged the order.
func (a *Acknowledgment) Accepted() bool {
	return a != nil && a.OrderAck.Result == "1"
}

// Client submits order documents to the MDS endpoint.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient creates a new MDS client. The request timeout comes from
// mds.timeout_seconds, defaulting to 30s.
func NewClient(endpoint string) *Client {
	timeoutSeconds := viper.GetInt("mds.timeout_seconds")
	if timeoutSeconds == 0 {
		timeoutSeconds = 30
	}

	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		endpoint:   endpoint,
	}
}

// SubmitOrder posts an XML order document to MDS and parses the
// acknowledgment. The payload travels in a single "xml" request parameter, the
// way the MDS endpoint expects it. When the response arrives but cannot be
// parsed, the returned Acknowledgment still carries the raw body alongside the
// error.
func (c *Client) SubmitOrder(ctx context.Context, payload []byte) (*Acknowledgment, error) {
	tracer := otel.Tracer("tranquilo-shopify")
	ctx, span := tracer.Start(ctx, "mds.submit_order")
	defer span.End()

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse mds endpoint: %w", err)
	}

	query := url.Values{}
	query.Set("xml", string(payload))
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build mds request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml; charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post order to mds: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read mds response: %w", err)
	}

	ack := &Acknowledgment{Raw: raw}
	if err := xml.Unmarshal(raw, ack); err != nil {
		return ack, fmt.Errorf("parse mds acknowledgment: %w", err)
	}

	return ack, nil
}
