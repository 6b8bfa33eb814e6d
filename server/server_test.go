package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avialab/temtrack/audit"
	"github.com/avialab/temtrack/db"
	"github.com/avialab/temtrack/review"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	events []audit.Event
}

func (c *captureSink) Emit(_ context.Context, e audit.Event) error {
	c.events = append(c.events, e)
	return nil
}

func (c *captureSink) Close() error { return nil }

type testEnv struct {
	t    *testing.T
	http *httptest.Server
	sink *captureSink
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := db.DefaultConfig()
	cfg.DSN = ":memory:"
	cfg.SQLite.WAL = false
	gdb, err := db.Open(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))

	sink := &captureSink{}
	srv := New(NewStore(gdb), sink, nil)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return &testEnv{t: t, http: ts, sink: sink}
}

// do issues a request as the given actor and decodes the JSON response
// into out (when non-nil).
func (e *testEnv) do(method, path, actor, role string, body, out any) *http.Response {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.http.URL+path, &buf)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", actor)
	req.Header.Set("X-Actor-Role", role)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (e *testEnv) createDraft(t *testing.T) review.LabelingItem {
	t.Helper()
	var item review.LabelingItem
	resp := e.do(http.MethodPost, "/api/v1/items", "avery", "annotator", review.LabelingItem{
		Annotator: "avery",
		Fields:    map[string]string{"threat_type_l1": "adverse_weather"},
	}, &item)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, review.StatusDraft, item.Status)
	return item
}

type errEnvelope struct {
	Error struct {
		Kind    string            `json:"kind"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func TestReviewLifecycle(t *testing.T) {
	e := newTestEnv(t)
	item := e.createDraft(t)
	base := "/api/v1/items/" + item.ID

	// Draft -> submitted.
	resp := e.do(http.MethodPost, base+"/submit", "avery", "annotator", nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Submitted items are read-only for the annotator.
	resp = e.do(http.MethodPut, base, "avery", "annotator", map[string]any{
		"fields": map[string]string{"threat_type_l1": "terrain"},
	}, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Manager rejects with field feedback.
	var dec review.ReviewDecision
	resp = e.do(http.MethodPost, base+"/reject", "morgan", "manager", review.RejectRequest{
		Status:  review.DecisionRejectedPartial,
		Comment: "threat classification is off",
		FieldFeedbacks: []review.FieldFeedback{
			{FieldName: "threat_type_l1", FeedbackType: review.FeedbackPartial, Comment: "check taxonomy"},
		},
	}, &dec)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, review.DecisionRejectedPartial, dec.Status)
	assert.Equal(t, "morgan", dec.Reviewer)

	// History reflects the verdict and the pending revision fields.
	var hist review.ReviewHistory
	resp = e.do(http.MethodGet, base+"/review-history", "avery", "annotator", nil, &hist)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, review.StatusReviewed, hist.CurrentStatus)
	require.Len(t, hist.Decisions, 1)
	assert.Equal(t, []string{"threat_type_l1"}, hist.PendingRevisionFields)

	// Reviewed items are editable by the annotator again.
	resp = e.do(http.MethodPut, base, "avery", "annotator", map[string]any{
		"fields": map[string]string{"threat_type_l1": "terrain"},
	}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Resubmit clears revision tracking.
	var resubmitted review.LabelingItem
	resp = e.do(http.MethodPost, base+"/resubmit", "avery", "annotator", map[string]string{"comment": "fixed"}, &resubmitted)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, review.StatusSubmitted, resubmitted.Status)

	resp = e.do(http.MethodGet, base+"/review-history", "avery", "annotator", nil, &hist)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, hist.PendingRevisionFields)

	// Approve terminates the cycle.
	resp = e.do(http.MethodPost, base+"/approve", "morgan", "manager", map[string]string{"comment": "good"}, &dec)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, review.DecisionApproved, dec.Status)

	var final review.LabelingItem
	resp = e.do(http.MethodGet, base, "avery", "annotator", nil, &final)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, review.StatusApproved, final.Status)

	resp = e.do(http.MethodGet, base+"/review-history", "avery", "annotator", nil, &hist)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, hist.Decisions, 2)

	// Approved is terminal.
	resp = e.do(http.MethodPost, base+"/approve", "morgan", "manager", nil, nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// One audit event per workflow step.
	actions := make([]audit.Action, 0, len(e.sink.events))
	for _, ev := range e.sink.events {
		actions = append(actions, ev.Action)
	}
	assert.Equal(t, []audit.Action{
		audit.ActionSubmit,
		audit.ActionReject,
		audit.ActionResubmit,
		audit.ActionApprove,
	}, actions)
}

func TestReviewHistoryNotFoundEnvelope(t *testing.T) {
	e := newTestEnv(t)
	var env errEnvelope
	resp := e.do(http.MethodGet, "/api/v1/items/no-such-item/review-history", "avery", "annotator", nil, &env)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", env.Error.Kind)
}

func TestPermissionGates(t *testing.T) {
	e := newTestEnv(t)
	item := e.createDraft(t)
	base := "/api/v1/items/" + item.ID

	// Reviewers cannot create, submit, or resubmit.
	resp := e.do(http.MethodPost, "/api/v1/items", "morgan", "manager", review.LabelingItem{}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = e.do(http.MethodPost, base+"/submit", "morgan", "researcher", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Annotators cannot record verdicts, and an unknown role maps to
	// annotator.
	e.do(http.MethodPost, base+"/submit", "avery", "annotator", nil, nil)
	resp = e.do(http.MethodPost, base+"/approve", "avery", "annotator", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = e.do(http.MethodPost, base+"/approve", "sam", "superuser", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admin can do everything.
	var dec review.ReviewDecision
	resp = e.do(http.MethodPost, base+"/approve", "root", "admin", nil, &dec)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestInvalidTransitions(t *testing.T) {
	e := newTestEnv(t)
	item := e.createDraft(t)
	base := "/api/v1/items/" + item.ID

	// Draft items cannot be approved, rejected, or resubmitted.
	var env errEnvelope
	resp := e.do(http.MethodPost, base+"/approve", "morgan", "manager", nil, &env)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "validation", env.Error.Kind)

	resp = e.do(http.MethodPost, base+"/resubmit", "avery", "annotator", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Double submit conflicts.
	resp = e.do(http.MethodPost, base+"/submit", "avery", "annotator", nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.do(http.MethodPost, base+"/submit", "avery", "annotator", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestFeedbackValidation(t *testing.T) {
	e := newTestEnv(t)
	item := e.createDraft(t)
	base := "/api/v1/items/" + item.ID
	e.do(http.MethodPost, base+"/submit", "avery", "annotator", nil, nil)

	// Unknown field names are rejected with per-field detail.
	var env errEnvelope
	resp := e.do(http.MethodPost, base+"/reject", "morgan", "manager", review.RejectRequest{
		Status: review.DecisionRejectedFull,
		FieldFeedbacks: []review.FieldFeedback{
			{FieldName: "bogus_field", FeedbackType: review.FeedbackFull},
		},
	}, &env)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "validation", env.Error.Kind)
	assert.Contains(t, env.Error.Fields, "bogus_field")

	// A revision request needs at least one field feedback.
	resp = e.do(http.MethodPost, base+"/request-revision", "morgan", "manager", review.RevisionRequest{
		Comment: "please revise",
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// An invalid rejection status is rejected before touching the item.
	resp = e.do(http.MethodPost, base+"/reject", "morgan", "manager", map[string]string{
		"status": "approved",
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var got review.LabelingItem
	resp = e.do(http.MethodGet, base, "avery", "annotator", nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, review.StatusSubmitted, got.Status, "failed verdicts must not move the item")
}

func TestItemCRUDAndCatalogValidation(t *testing.T) {
	e := newTestEnv(t)

	// Unknown classification fields are rejected at creation.
	var env errEnvelope
	resp := e.do(http.MethodPost, "/api/v1/items", "avery", "annotator", review.LabelingItem{
		Fields: map[string]string{"not_a_field": "x"},
	}, &env)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, env.Error.Fields, "not_a_field")

	item := e.createDraft(t)

	var listed []review.LabelingItem
	resp = e.do(http.MethodGet, "/api/v1/items", "avery", "annotator", nil, &listed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, listed, 1)
	assert.Equal(t, item.ID, listed[0].ID)

	// Drafts are deletable by their annotator.
	resp = e.do(http.MethodDelete, "/api/v1/items/"+item.ID, "avery", "annotator", nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.do(http.MethodGet, "/api/v1/items/"+item.ID, "avery", "annotator", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProjectsAndEvents(t *testing.T) {
	e := newTestEnv(t)

	var project struct {
		ID string `json:"ID"`
	}
	resp := e.do(http.MethodPost, "/api/v1/projects", "root", "admin", map[string]string{
		"name": "LOSA 2026 Q1",
	}, &project)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, project.ID)

	resp = e.do(http.MethodPost, "/api/v1/events", "root", "admin", map[string]string{
		"project_id":    project.ID,
		"flight_number": "AV412",
		"description":   "unstable approach",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var events []json.RawMessage
	resp = e.do(http.MethodGet, fmt.Sprintf("/api/v1/events?project_id=%s", project.ID), "avery", "annotator", nil, &events)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, events, 1)

	// Missing project name is a validation error.
	resp = e.do(http.MethodPost, "/api/v1/projects", "root", "admin", map[string]string{}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}
