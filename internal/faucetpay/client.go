package faucetpay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FaucetPay API status codes this client interprets.
const (
	statusOK              = 200
	statusAddressNotFound = 456 // "The address does not belong to any user."
)

// ErrAddressNotFound means FaucetPay explicitly reported the address does not
// belong to any of its users.
var ErrAddressNotFound = errors.New("faucetpay: address does not belong to any user")

// ProviderError is an unexpected but parseable provider response, or a
// response whose shape could not be understood. It is never treated as
// success.
type ProviderError struct {
	Status  int    // FaucetPay application status code, 0 if the body was unreadable
	Message string // Provider message, if any
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("faucetpay: provider error (status %d): %s", e.Status, e.Message)
}

// RejectedError means the provider explicitly declined a send request.
type RejectedError struct {
	Status int
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("faucetpay: payout rejected (status %d): %s", e.Status, e.Reason)
}

// AmbiguousResponseError means the provider reported a success status but the
// response lacked the fields a real success carries (the "OK" message, the
// payout id). The payout may have gone out, so callers must not compensate as
// if it had failed.
type AmbiguousResponseError struct {
	Message string
}

func (e *AmbiguousResponseError) Error() string {
	return "faucetpay: success status without payout details: " + e.Message
}

// TransportError is a network-level failure or timeout. The request may or may
// not have reached the provider, so callers must treat the outcome as
// ambiguous.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "faucetpay: transport failure: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// CheckResult is a successful address validation.
type CheckResult struct {
	PayoutUserHash string
}

// SendResult is a successful payout.
type SendResult struct {
	PayoutID        string
	ProviderBalance int64
}

// Client calls the FaucetPay REST API. Each method performs exactly one
// attempt; retry policy belongs to the caller.
type Client struct {
	apiKey   string
	baseURL  string
	currency string
	http     *http.Client
}

// New creates a FaucetPay client with a bounded per-request timeout.
func New(apiKey, baseURL, currency string, timeout time.Duration) *Client {
	return &Client{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: currency,
		http:     &http.Client{Timeout: timeout},
	}
}

// checkAddressResponse mirrors the FaucetPay checkaddress payload
type checkAddressResponse struct {
	Status         int    `json:"status"`
	Message        string `json:"message"`
	PayoutUserHash string `json:"payout_user_hash"`
}

// sendResponse mirrors the FaucetPay send payload
type sendResponse struct {
	Status   int             `json:"status"`
	Message  string          `json:"message"`
	PayoutID json.RawMessage `json:"payout_id"`
	Balance  json.RawMessage `json:"balance"`
}

// CheckAddress asks FaucetPay whether address is a valid payout destination
// for the configured currency.
func (c *Client) CheckAddress(ctx context.Context, address string) (*CheckResult, error) {
	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("address", address)
	form.Set("currency", c.currency)

	var out checkAddressResponse
	if err := c.postForm(ctx, "/api/v1/checkaddress", form, &out); err != nil {
		return nil, err
	}

	switch {
	case out.Status == statusOK && out.Message == "OK":
		return &CheckResult{PayoutUserHash: out.PayoutUserHash}, nil
	case out.Status == statusAddressNotFound:
		return nil, ErrAddressNotFound
	default:
		return nil, &ProviderError{Status: out.Status, Message: out.Message}
	}
}

// Send pays amount (integer minor units) to address. A non-OK but parseable
// provider status is a RejectedError; a body this client cannot interpret is a
// ProviderError; a network failure is a TransportError.
func (c *Client) Send(ctx context.Context, address string, amount int64) (*SendResult, error) {
	form := url.Values{}
	form.Set("api_key", c.apiKey)
	form.Set("to", address)
	form.Set("amount", strconv.FormatInt(amount, 10))
	form.Set("currency", c.currency)

	var out sendResponse
	if err := c.postForm(ctx, "/api/v1/send", form, &out); err != nil {
		return nil, err
	}

	if out.Status != statusOK {
		return nil, &RejectedError{Status: out.Status, Reason: out.Message}
	}
	// A success status alone is not a success: without the OK message and a
	// payout id the outcome is ambiguous, never silently treated as sent.
	payoutID := rawString(out.PayoutID)
	if out.Message != "OK" || payoutID == "" {
		return nil, &AmbiguousResponseError{Message: out.Message}
	}
	return &SendResult{
		PayoutID:        payoutID,
		ProviderBalance: rawInt64(out.Balance),
	}, nil
}

// postForm executes one form-encoded POST and decodes the JSON body into dest.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return &ProviderError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer res.Body.Close()

	if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
		return &ProviderError{Message: "unparseable response: " + err.Error()}
	}
	return nil
}

// rawString tolerates FaucetPay returning either a JSON string or number.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

// rawInt64 tolerates FaucetPay returning either a JSON number or numeric string.
func rawInt64(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return v
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			return v
		}
	}
	return 0
}
