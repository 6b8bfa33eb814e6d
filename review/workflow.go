package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// API is the surface of the annotation service consumed by the review
// workflow. *client.HTTPClient implements it.
type API interface {
	GetReviewHistory(ctx context.Context, itemID string) (ReviewHistory, error)
	ApproveItem(ctx context.Context, itemID, comment string) (ReviewDecision, error)
	RejectItem(ctx context.Context, itemID string, req RejectRequest) (ReviewDecision, error)
	RequestRevision(ctx context.Context, itemID string, req RevisionRequest) (ReviewDecision, error)
	ResubmitItem(ctx context.Context, itemID, comment string) (LabelingItem, error)
	SubmitItem(ctx context.Context, itemID string) error
}

// RejectRequest carries a rejection verdict with its field-level feedback.
type RejectRequest struct {
	Status         DecisionStatus  `json:"status"`
	Comment        string          `json:"comment,omitempty"`
	FieldFeedbacks []FieldFeedback `json:"field_feedbacks,omitempty"`
}

// RevisionRequest carries a revision-request verdict.
type RevisionRequest struct {
	Comment        string          `json:"comment,omitempty"`
	FieldFeedbacks []FieldFeedback `json:"field_feedbacks,omitempty"`
}

// Workflow executes review operations against the annotation service and
// folds their results into the local store.
//
// Every operation sets the store's loading flag on entry and clears it on
// exit, errors included. Operations are not queued or serialized; the view
// layer disables triggers while loading is true.
type Workflow struct {
	store  *Store
	api    API
	notify Notifier
	log    *slog.Logger
}

func NewWorkflow(store *Store, api API, notify Notifier, log *slog.Logger) *Workflow {
	if store == nil {
		store = NewStore()
	}
	if notify == nil {
		notify = NopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Workflow{store: store, api: api, notify: notify, log: log}
}

// Store returns the state store the workflow folds into.
func (w *Workflow) Store() *Store { return w.store }

// FetchHistory loads the review trail for itemID into the store.
//
// A "not found" response is an expected condition (the item was deleted
// server-side): it is cached in the failed-item set, recorded as the
// store's last error, and neither notified nor returned. Any other failure
// notifies once and is returned. A result arriving after the selection
// moved to a different item is discarded.
func (w *Workflow) FetchHistory(ctx context.Context, itemID string) error {
	gen := w.store.gen
	w.store.setLoading(true)
	defer w.store.setLoading(false)

	hist, err := w.api.GetReviewHistory(ctx, itemID)
	if err != nil {
		if IsNotFound(err) {
			w.store.markFailed(itemID)
			w.store.recordError(err)
			w.log.Debug("review_history_missing", "item_id", itemID)
			return nil
		}
		w.store.recordError(err)
		w.notify.Error(notifyMessage(err))
		w.log.Warn("review_history_fetch_failed", "item_id", itemID, "error", err.Error())
		return fmt.Errorf("fetch review history: %w", err)
	}

	if gen != w.store.gen || itemID != w.store.itemID {
		w.log.Debug("review_history_stale", "item_id", itemID)
		return nil
	}
	w.store.applyHistory(itemID, hist)
	return nil
}

// Approve records an approval verdict for itemID and clears all pending
// review state on success.
func (w *Workflow) Approve(ctx context.Context, itemID, comment string) (ReviewDecision, error) {
	w.store.setLoading(true)
	defer w.store.setLoading(false)

	dec, err := w.api.ApproveItem(ctx, itemID, comment)
	if err != nil {
		w.store.recordError(err)
		w.notify.Error(notifyMessage(err))
		return ReviewDecision{}, fmt.Errorf("approve item: %w", err)
	}
	w.store.foldApproval(dec)
	w.log.Info("review_approved", "item_id", itemID, "decision_id", dec.ID)
	return dec, nil
}

// Reject records a partial or full rejection. On success the pending
// feedbacks are cleared and the revision fields are replaced with the ones
// the server echoed back.
func (w *Workflow) Reject(ctx context.Context, itemID string, req RejectRequest) (ReviewDecision, error) {
	if req.Status != DecisionRejectedPartial && req.Status != DecisionRejectedFull {
		return ReviewDecision{}, &APIError{
			Kind:    KindValidation,
			Message: fmt.Sprintf("invalid rejection status %q", req.Status),
		}
	}

	w.store.setLoading(true)
	defer w.store.setLoading(false)

	dec, err := w.api.RejectItem(ctx, itemID, req)
	if err != nil {
		w.store.recordError(err)
		w.notify.Error(notifyMessage(err))
		return ReviewDecision{}, fmt.Errorf("reject item: %w", err)
	}
	w.store.foldRevision(dec)
	w.log.Info("review_rejected", "item_id", itemID, "decision_id", dec.ID, "status", string(dec.Status), "fields", len(dec.FieldFeedbacks))
	return dec, nil
}

// RequestRevision records a revision-request verdict. Same folding
// contract as Reject.
func (w *Workflow) RequestRevision(ctx context.Context, itemID string, req RevisionRequest) (ReviewDecision, error) {
	w.store.setLoading(true)
	defer w.store.setLoading(false)

	dec, err := w.api.RequestRevision(ctx, itemID, req)
	if err != nil {
		w.store.recordError(err)
		w.notify.Error(notifyMessage(err))
		return ReviewDecision{}, fmt.Errorf("request revision: %w", err)
	}
	w.store.foldRevision(dec)
	w.log.Info("review_revision_requested", "item_id", itemID, "decision_id", dec.ID, "fields", len(dec.FieldFeedbacks))
	return dec, nil
}

// Resubmit sends the revised item back for review and clears revision
// tracking on success.
func (w *Workflow) Resubmit(ctx context.Context, itemID, comment string) (LabelingItem, error) {
	w.store.setLoading(true)
	defer w.store.setLoading(false)

	item, err := w.api.ResubmitItem(ctx, itemID, comment)
	if err != nil {
		w.store.recordError(err)
		w.notify.Error(notifyMessage(err))
		return LabelingItem{}, fmt.Errorf("resubmit item: %w", err)
	}
	w.store.foldResubmit()
	w.log.Info("review_resubmitted", "item_id", itemID, "status", string(item.Status))
	return item, nil
}

// notifyMessage maps a failure to the user-facing notification text per
// the error taxonomy: validation errors carry field detail, authorization
// errors read as permission denied, everything else gets a generic retry
// message.
func notifyMessage(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		switch ae.Kind {
		case KindValidation:
			if len(ae.Fields) > 0 {
				names := make([]string, 0, len(ae.Fields))
				for name := range ae.Fields {
					names = append(names, name)
				}
				sort.Strings(names)
				return "Validation failed: " + strings.Join(names, ", ")
			}
			if ae.Message != "" {
				return "Validation failed: " + ae.Message
			}
			return "Validation failed."
		case KindAuthorization:
			return "You do not have permission to perform this action."
		}
	}
	return "The operation failed. Please try again."
}
