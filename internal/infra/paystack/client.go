package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://api.paystack.co"

// Kobo converts a naira amount to the smallest currency unit. Rounds to
// the nearest kobo: truncation would send two-decimal amounts like 1.13
// across the wire one kobo short.
func Kobo(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Client is a thin bearer-token REST client for the Paystack API.
// Amounts cross the wire in the smallest currency unit (kobo), so every
// request multiplies naira amounts by 100.
type Client struct {
	secretKey string
	baseURL   string
	http      *http.Client
}

func NewClient(secretKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		secretKey: secretKey,
		baseURL:   baseURL,
		// Outbound calls are bounded; a timeout is an unknown outcome,
		// resolved by the provider's own callback rather than a retry.
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("paystack %s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("paystack %s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

type InitializeTransactionResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// InitializeTransaction starts a hosted charge and returns the redirect
// URL for the payer.
func (c *Client) InitializeTransaction(ctx context.Context, email string, amount float64, reference string, metadata map[string]interface{}) (*InitializeTransactionResult, error) {
	var out struct {
		Data InitializeTransactionResult `json:"data"`
	}
	body := map[string]interface{}{
		"email":     email,
		"amount":    Kobo(amount),
		"reference": reference,
		"metadata":  metadata,
	}
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

type VerifyTransactionResult struct {
	Status  string `json:"status"`
	Channel string `json:"channel"`
	PaidAt  string `json:"paid_at"`
}

// VerifyTransaction fetches the provider's view of a charge by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyTransactionResult, error) {
	var out struct {
		Data VerifyTransactionResult `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ChargeAuthorization charges a previously authorized card.
func (c *Client) ChargeAuthorization(ctx context.Context, email string, amount float64, authorizationCode string, metadata map[string]interface{}) (string, error) {
	var out struct {
		Data struct {
			Status    string `json:"status"`
			Reference string `json:"reference"`
		} `json:"data"`
	}
	body := map[string]interface{}{
		"email":              email,
		"amount":             Kobo(amount),
		"authorization_code": authorizationCode,
		"metadata":           metadata,
	}
	if err := c.do(ctx, http.MethodPost, "/transaction/charge_authorization", body, &out); err != nil {
		return "", err
	}
	return out.Data.Reference, nil
}

// CreateRecipient registers a payout destination and returns the
// provider's recipient code.
func (c *Client) CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error) {
	var out struct {
		Data struct {
			RecipientCode string `json:"recipient_code"`
		} `json:"data"`
	}
	body := map[string]interface{}{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}
	if err := c.do(ctx, http.MethodPost, "/transferrecipient", body, &out); err != nil {
		return "", err
	}
	return out.Data.RecipientCode, nil
}

type BulkTransferEntry struct {
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
	Recipient string `json:"recipient"`
}

type BulkTransferResult struct {
	BatchID   string
	Transfers []struct {
		Recipient    string `json:"recipient"`
		TransferCode string `json:"transfer_code"`
		Reference    string `json:"reference"`
	}
}

// BulkTransfer submits one batch of transfers from the given source
// account.
func (c *Client) BulkTransfer(ctx context.Context, source, currency string, entries []BulkTransferEntry) (*BulkTransferResult, error) {
	var out struct {
		Data []struct {
			Recipient    string `json:"recipient"`
			TransferCode string `json:"transfer_code"`
			Reference    string `json:"reference"`
		} `json:"data"`
	}
	body := map[string]interface{}{
		"currency":  currency,
		"source":    source,
		"transfers": entries,
	}
	if err := c.do(ctx, http.MethodPost, "/transfer/bulk", body, &out); err != nil {
		return nil, err
	}
	result := &BulkTransferResult{}
	for _, t := range out.Data {
		result.Transfers = append(result.Transfers, t)
		if result.BatchID == "" && t.Reference != "" {
			result.BatchID = t.Reference
		}
	}
	return result, nil
}
