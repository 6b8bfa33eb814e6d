package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avialab/temtrack/review"
)

func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{
		BaseURL: srv.URL,
		Token:   "token-1",
		Actor:   "casey",
		Role:    "manager",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestGetReviewHistoryDecodesPayload(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/items/item-1/review-history" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Fatalf("authorization header = %q", got)
		}
		if got := r.Header.Get("X-Actor-Role"); got != "manager" {
			t.Fatalf("role header = %q", got)
		}
		json.NewEncoder(w).Encode(review.ReviewHistory{
			CurrentStatus:         review.StatusReviewed,
			PendingRevisionFields: []string{"severity"},
			Decisions: []review.ReviewDecision{
				{ID: "d1", Status: review.DecisionRevisionRequested},
			},
		})
	}))

	hist, err := c.GetReviewHistory(context.Background(), "item-1")
	if err != nil {
		t.Fatalf("GetReviewHistory: %v", err)
	}
	if hist.CurrentStatus != review.StatusReviewed {
		t.Fatalf("current status = %s", hist.CurrentStatus)
	}
	if len(hist.Decisions) != 1 || hist.Decisions[0].ID != "d1" {
		t.Fatalf("decisions = %+v", hist.Decisions)
	}
	if len(hist.PendingRevisionFields) != 1 || hist.PendingRevisionFields[0] != "severity" {
		t.Fatalf("pending fields = %v", hist.PendingRevisionFields)
	}
}

func TestNotFoundClassification(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"kind":"not_found","message":"labeling item not found"}}`))
	}))

	_, err := c.GetReviewHistory(context.Background(), "gone")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !review.IsNotFound(err) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestNotFoundFallsBackToStatusCode(t *testing.T) {
	// A 404 without a decodable envelope must still classify as not_found.
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))

	_, err := c.GetReviewHistory(context.Background(), "gone")
	if !review.IsNotFound(err) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestValidationErrorCarriesFieldDetail(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":{"kind":"validation","message":"invalid field feedbacks","fields":{"bogus":"not a reviewable field"}}}`))
	}))

	_, err := c.RejectItem(context.Background(), "item-1", review.RejectRequest{
		Status: review.DecisionRejectedFull,
	})
	var ae *review.APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if ae.Kind != review.KindValidation {
		t.Fatalf("kind = %s", ae.Kind)
	}
	if ae.Fields["bogus"] == "" {
		t.Fatalf("field detail lost: %+v", ae.Fields)
	}
}

func TestAuthorizationClassification(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := c.ApproveItem(context.Background(), "item-1", "")
	if review.KindOf(err) != review.KindAuthorization {
		t.Fatalf("kind = %s, want authorization", review.KindOf(err))
	}
}

func TestApproveSendsCommentAndDecodesDecision(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/items/item-1/approve" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["comment"] != "well classified" {
			t.Fatalf("comment = %q", body["comment"])
		}
		json.NewEncoder(w).Encode(review.ReviewDecision{ID: "d9", Status: review.DecisionApproved})
	}))

	dec, err := c.ApproveItem(context.Background(), "item-1", "well classified")
	if err != nil {
		t.Fatalf("ApproveItem: %v", err)
	}
	if dec.ID != "d9" || dec.Status != review.DecisionApproved {
		t.Fatalf("decision = %+v", dec)
	}
}

func TestSubmitItemNoBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	if err := c.SubmitItem(context.Background(), "item-1"); err != nil {
		t.Fatalf("SubmitItem: %v", err)
	}
}
