package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(srv.URL, "sk_test", 5*time.Second, log)
}

func TestVerifyByReferenceSuccessful(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.URL.Query().Get("tx_ref"); got != "FUND-1" {
			t.Errorf("tx_ref = %q", got)
		}
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {
				"id": 42,
				"tx_ref": "FUND-1",
				"status": "successful",
				"amount": 50,
				"charged_amount": 50.75,
				"currency": "NGN",
				"meta": {"user_id": "u1", "attempt": 2}
			}
		}`))
	})

	vr, err := c.VerifyByReference(context.Background(), "FUND-1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !vr.Successful {
		t.Fatalf("Successful = false, status %q", vr.GatewayStatus)
	}
	if vr.AmountPaid != 5075 {
		t.Fatalf("AmountPaid = %d, want 5075 (minor units of 50.75)", vr.AmountPaid)
	}
	if vr.Metadata["user_id"] != "u1" || vr.Metadata["attempt"] != "2" {
		t.Fatalf("Metadata = %v", vr.Metadata)
	}
	if len(vr.RawPayload) == 0 {
		t.Fatal("RawPayload empty")
	}
}

// Some charges report only the processor's "Approved" with a non-standard
// top-level status; both encodings must count as paid.
func TestVerifyApprovedProcessorResponse(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {
				"tx_ref": "FUND-2",
				"status": "completed",
				"amount": 10,
				"processor_response": "Approved",
				"currency": "NGN"
			}
		}`))
	})

	vr, err := c.VerifyByReference(context.Background(), "FUND-2")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !vr.Successful {
		t.Fatalf("Approved charge not treated as successful: %+v", vr)
	}
	if vr.AmountPaid != 1000 {
		t.Fatalf("AmountPaid = %d, want 1000 (falls back to amount)", vr.AmountPaid)
	}
}

func TestVerifyNotFoundIsInvalidReference(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such transaction", http.StatusNotFound)
	})

	_, err := c.VerifyByReference(context.Background(), "BOGUS")
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("got %v, want ErrInvalidReference", err)
	}
}

func TestVerifyErrorEnvelopeIsInvalidReference(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"No transaction was found for this id"}`))
	})

	_, err := c.VerifyByReference(context.Background(), "BOGUS")
	if !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("got %v, want ErrInvalidReference", err)
	}
}

func TestVerifyServerErrorIsRetryable(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	})

	_, err := c.VerifyByReference(context.Background(), "FUND-1")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("got %v, want ServiceError", err)
	}
	if svcErr.Status != http.StatusBadGateway {
		t.Fatalf("Status = %d, want 502", svcErr.Status)
	}
}

func TestVerifyNetworkErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(srv.URL, "sk_test", time.Second, log)

	_, err := c.VerifyByReference(context.Background(), "FUND-1")
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("got %v, want ServiceError", err)
	}
}

func TestVerifyByIDPath(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transactions/42/verify" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":42,"tx_ref":"FUND-1","status":"successful","amount":20,"currency":"NGN"}}`))
	})

	vr, err := c.VerifyByID(context.Background(), 42)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if vr.TxRef != "FUND-1" || vr.AmountPaid != 2000 {
		t.Fatalf("result = %+v", vr)
	}
}

func TestInitiateReturnsCheckoutLink(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payments" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"success","data":{"link":"https://checkout.example/abc"}}`))
	})

	res, err := c.Initiate(context.Background(), InitiateInput{
		TxRef:         "FUND-1",
		UserID:        "u1",
		Amount:        5000,
		Currency:      "NGN",
		CustomerEmail: "ada@example.com",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if res.CheckoutLink != "https://checkout.example/abc" {
		t.Fatalf("link = %q", res.CheckoutLink)
	}
}
