package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valentina-app/backend/internal/infra/httpclient"
)

var ErrTransactionNotFound = errors.New("paystack transaction not found")

type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		secretKey: strings.TrimSpace(secretKey),
		http:      httpclient.New(timeout),
	}
}

// Transaction is the subset of the verify payload the app relies on.
type Transaction struct {
	Reference string
	Status    string
	Amount    int64
	Currency  string
	PaidAt    *time.Time
	UserID    string
}

type verifyEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference string          `json:"reference"`
		Status    string          `json:"status"`
		Amount    int64           `json:"amount"`
		Currency  string          `json:"currency"`
		PaidAt    *time.Time      `json:"paid_at"`
		Metadata  json.RawMessage `json:"metadata"`
	} `json:"data"`
}

// Verify fetches a transaction by reference. A reference unknown to
// Paystack yields ErrTransactionNotFound; other non-2xx responses are
// transport errors.
func (c *Client) Verify(ctx context.Context, reference string) (Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Transaction{}, fmt.Errorf("paystack reference is empty")
	}
	if c.secretKey == "" {
		return Transaction{}, fmt.Errorf("paystack secret key is not configured")
	}

	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Transaction{}, fmt.Errorf("build paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Transaction{}, fmt.Errorf("call paystack verify: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Transaction{}, fmt.Errorf("read paystack response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		return Transaction{}, ErrTransactionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return Transaction{}, fmt.Errorf("paystack verify returned status %d", resp.StatusCode)
	}

	var env verifyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Transaction{}, fmt.Errorf("decode paystack response: %w", err)
	}
	if !env.Status {
		return Transaction{}, ErrTransactionNotFound
	}

	return Transaction{
		Reference: env.Data.Reference,
		Status:    env.Data.Status,
		Amount:    env.Data.Amount,
		Currency:  env.Data.Currency,
		PaidAt:    env.Data.PaidAt,
		UserID:    metadataUserID(env.Data.Metadata),
	}, nil
}

// metadataUserID reads metadata.user_id. Paystack returns metadata either as
// an object or as a JSON-encoded string depending on how it was submitted.
func metadataUserID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = json.RawMessage(asString)
	}

	var meta struct {
		UserID any `json:"user_id"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return ""
	}
	switch v := meta.UserID.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
