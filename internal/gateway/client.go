// Package gateway talks to the card-payment provider. Everything
// provider-specific (status strings, major-unit amounts, payload shape)
// is normalized here so the settlement core only ever sees a
// VerificationResult and the two error kinds below.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrInvalidReference: the provider reports the reference as unknown or
// malformed (400/404). Terminal; the payment should be marked failed.
var ErrInvalidReference = errors.New("gateway: unknown or malformed reference")

// ServiceError covers everything retryable: network failures, timeouts
// and provider 5xx responses.
type ServiceError struct {
	Op     string
	Status int
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gateway: %s: upstream status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// VerificationResult is the normalized view of one provider verification.
// Successful already folds in the provider's alternate success encodings;
// AmountPaid is in minor units.
type VerificationResult struct {
	Successful    bool
	GatewayStatus string
	TxRef         string
	AmountPaid    int64
	Currency      string
	Metadata      map[string]string
	RawPayload    json.RawMessage
}

type InitiateInput struct {
	TxRef         string
	UserID        string
	Amount        int64 // minor units
	Currency      string
	CustomerEmail string
	CustomerName  string
	RedirectURL   string
}

type InitiateResult struct {
	TxRef        string
	CheckoutLink string
}

type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	log       *slog.Logger
}

func New(baseURL, secretKey string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
		log:       log,
	}
}

// wire shapes of the provider API
type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type verifyData struct {
	ID                int64          `json:"id"`
	TxRef             string         `json:"tx_ref"`
	Status            string         `json:"status"`
	Amount            float64        `json:"amount"`
	ChargedAmount     float64        `json:"charged_amount"`
	Currency          string         `json:"currency"`
	ProcessorResponse string         `json:"processor_response"`
	Meta              map[string]any `json:"meta"`
}

type initiateData struct {
	Link string `json:"link"`
}

func (c *Client) Initiate(ctx context.Context, in InitiateInput) (InitiateResult, error) {
	body := map[string]any{
		"tx_ref":       in.TxRef,
		"amount":       minorToMajor(in.Amount),
		"currency":     in.Currency,
		"redirect_url": in.RedirectURL,
		"customer": map[string]string{
			"email": in.CustomerEmail,
			"name":  in.CustomerName,
		},
		"meta": map[string]string{"user_id": in.UserID},
	}
	raw, env, err := c.do(ctx, http.MethodPost, "/payments", body, "initiate")
	if err != nil {
		return InitiateResult{}, err
	}
	var d initiateData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return InitiateResult{}, &ServiceError{Op: "initiate", Err: fmt.Errorf("decode: %w (payload %d bytes)", err, len(raw))}
	}
	return InitiateResult{TxRef: in.TxRef, CheckoutLink: d.Link}, nil
}

func (c *Client) VerifyByID(ctx context.Context, id int64) (VerificationResult, error) {
	path := "/transactions/" + strconv.FormatInt(id, 10) + "/verify"
	return c.verify(ctx, path, "verify_by_id")
}

func (c *Client) VerifyByReference(ctx context.Context, ref string) (VerificationResult, error) {
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(ref)
	return c.verify(ctx, path, "verify_by_reference")
}

func (c *Client) verify(ctx context.Context, path, op string) (VerificationResult, error) {
	raw, env, err := c.do(ctx, http.MethodGet, path, nil, op)
	if err != nil {
		return VerificationResult{}, err
	}

	var d verifyData
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return VerificationResult{}, &ServiceError{Op: op, Err: fmt.Errorf("decode: %w", err)}
	}

	amount := d.ChargedAmount
	if amount == 0 {
		amount = d.Amount
	}

	res := VerificationResult{
		// Some charges report "Approved" from the processor instead of a
		// "successful" top-level status. Both mean paid.
		Successful:    d.Status == "successful" || d.ProcessorResponse == "Approved",
		GatewayStatus: d.Status,
		TxRef:         d.TxRef,
		AmountPaid:    majorToMinor(amount),
		Currency:      d.Currency,
		Metadata:      stringifyMeta(d.Meta),
		RawPayload:    raw,
	}
	return res, nil
}

// do performs one provider call and applies the error taxonomy: 4xx on a
// reference is terminal, 5xx and transport failures are retryable.
func (c *Client) do(ctx context.Context, method, path string, body any, op string) (json.RawMessage, apiEnvelope, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, apiEnvelope{}, err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, apiEnvelope{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apiEnvelope{}, &ServiceError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apiEnvelope{}, &ServiceError{Op: op, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		c.log.Warn("gateway rejected reference", "op", op, "status", resp.StatusCode)
		return nil, apiEnvelope{}, ErrInvalidReference
	case resp.StatusCode >= 500:
		return nil, apiEnvelope{}, &ServiceError{Op: op, Status: resp.StatusCode}
	case resp.StatusCode >= 400:
		// 401/403 and friends: misconfiguration, not a bad reference.
		return nil, apiEnvelope{}, &ServiceError{Op: op, Status: resp.StatusCode, Err: errors.New("unexpected client error")}
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apiEnvelope{}, &ServiceError{Op: op, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if env.Status == "error" {
		return nil, apiEnvelope{}, ErrInvalidReference
	}
	return raw, env, nil
}

// The provider quotes amounts in major units; the ledger works in minor
// units throughout.
func majorToMinor(f float64) int64 { return int64(math.Round(f * 100)) }
func minorToMajor(n int64) float64 { return float64(n) / 100 }

func stringifyMeta(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			b, _ := json.Marshal(v)
			out[k] = string(b)
		}
	}
	return out
}
