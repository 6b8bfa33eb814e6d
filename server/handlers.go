package server

import (
	"net/http"
	"strings"

	"github.com/avialab/temtrack/audit"
	"github.com/avialab/temtrack/db/models"
	"github.com/avialab/temtrack/review"
)

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListProjects(r.Context())
	if err != nil {
		internal(w, s.log, "list_projects", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		invalid(w, "project name is required", nil)
		return
	}
	row, err := s.store.CreateProject(r.Context(), req.Name, req.Description)
	if err != nil {
		internal(w, s.log, "create_project", err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListEvents(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		internal(w, s.log, "list_events", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID    string `json:"project_id"`
		FlightNumber string `json:"flight_number"`
		OccurredOn   string `json:"occurred_on"`
		Description  string `json:"description"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		invalid(w, "project_id is required", nil)
		return
	}
	row, err := s.store.CreateEvent(r.Context(), models.FlightEvent{
		ProjectID:    req.ProjectID,
		FlightNumber: req.FlightNumber,
		OccurredOn:   req.OccurredOn,
		Description:  req.Description,
	})
	if err != nil {
		internal(w, s.log, "create_event", err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListItems(r.Context(), r.URL.Query().Get("project_id"))
	if err != nil {
		internal(w, s.log, "list_items", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	actor, role := actorFromRequest(r)
	if !review.ResolvePermissions(role, review.StatusDraft).CanAdd {
		forbidden(w, "role cannot create labeling items")
		return
	}
	var req review.LabelingItem
	if !decodeBody(w, r, &req) {
		return
	}
	if fieldErrs := validateItemFields(req.Fields); fieldErrs != nil {
		invalid(w, "invalid classification fields", fieldErrs)
		return
	}
	req.Status = review.StatusDraft
	if strings.TrimSpace(req.Annotator) == "" {
		req.Annotator = actor
	}
	item, err := s.store.CreateItem(r.Context(), req)
	if err != nil {
		internal(w, s.log, "create_item", err)
		return
	}
	s.log.Info("item_created", "item_id", item.ID, "annotator", item.Annotator)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, ok, err := s.store.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		internal(w, s.log, "get_item", err)
		return
	}
	if !ok {
		notFound(w, "labeling item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, role := actorFromRequest(r)

	item, ok, err := s.store.GetItem(r.Context(), id)
	if err != nil {
		internal(w, s.log, "get_item", err)
		return
	}
	if !ok {
		notFound(w, "labeling item")
		return
	}
	if !review.ResolvePermissions(role, item.Status).CanEdit {
		forbidden(w, "item is not editable for this role and status")
		return
	}

	var req struct {
		Fields map[string]string `json:"fields"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if fieldErrs := validateItemFields(req.Fields); fieldErrs != nil {
		invalid(w, "invalid classification fields", fieldErrs)
		return
	}
	updated, ok, err := s.store.UpdateItemFields(r.Context(), id, req.Fields)
	if err != nil {
		internal(w, s.log, "update_item", err)
		return
	}
	if !ok {
		notFound(w, "labeling item")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	_, role := actorFromRequest(r)

	item, ok, err := s.store.GetItem(r.Context(), id)
	if err != nil {
		internal(w, s.log, "get_item", err)
		return
	}
	if !ok {
		notFound(w, "labeling item")
		return
	}
	if !review.ResolvePermissions(role, item.Status).CanDelete {
		forbidden(w, "item is not deletable for this role and status")
		return
	}
	if _, err := s.store.DeleteItem(r.Context(), id); err != nil {
		internal(w, s.log, "delete_item", err)
		return
	}
	s.log.Info("item_deleted", "item_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReviewHistory(w http.ResponseWriter, r *http.Request) {
	hist, ok, err := s.store.History(r.Context(), r.PathValue("id"))
	if err != nil {
		internal(w, s.log, "review_history", err)
		return
	}
	if !ok {
		notFound(w, "labeling item")
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor, role := actorFromRequest(r)
	if role.IsReviewer() {
		forbidden(w, "reviewers cannot submit items")
		return
	}
	if !s.transition(w, r, id, review.StatusDraft, review.StatusSubmitted, "item is not a draft") {
		return
	}
	ev := audit.NewEvent(id, audit.ActionSubmit)
	ev.Actor, ev.Role = actor, string(role)
	s.emitAudit(r.Context(), ev)
	s.log.Info("item_submitted", "item_id", id, "actor", actor)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor, role := actorFromRequest(r)
	if !canReview(role) {
		forbidden(w, "only reviewers can approve items")
		return
	}
	var req struct {
		Comment string `json:"comment"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.transition(w, r, id, review.StatusSubmitted, review.StatusApproved, "item is not awaiting review") {
		return
	}

	dec, err := s.store.AppendDecision(r.Context(), review.ReviewDecision{
		ItemID:   id,
		Status:   review.DecisionApproved,
		Reviewer: actor,
		Comment:  req.Comment,
	})
	if err != nil {
		internal(w, s.log, "append_decision", err)
		return
	}

	ev := audit.NewEvent(id, audit.ActionApprove)
	ev.Actor, ev.Role = actor, string(role)
	ev.DecisionID, ev.DecisionStatus = dec.ID, string(dec.Status)
	s.emitAudit(r.Context(), ev)
	s.log.Info("item_approved", "item_id", id, "reviewer", actor)
	writeJSON(w, http.StatusOK, dec)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor, role := actorFromRequest(r)
	if !canReview(role) {
		forbidden(w, "only reviewers can reject items")
		return
	}
	var req review.RejectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status != review.DecisionRejectedPartial && req.Status != review.DecisionRejectedFull {
		invalid(w, "status must be rejected_partial or rejected_full", nil)
		return
	}
	s.recordVerdict(w, r, id, actor, role, audit.ActionReject, review.ReviewDecision{
		ItemID:         id,
		Status:         req.Status,
		Reviewer:       actor,
		Comment:        req.Comment,
		FieldFeedbacks: req.FieldFeedbacks,
	})
}

func (s *Server) handleRequestRevision(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor, role := actorFromRequest(r)
	if !canReview(role) {
		forbidden(w, "only reviewers can request revisions")
		return
	}
	var req review.RevisionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.FieldFeedbacks) == 0 {
		invalid(w, "a revision request needs at least one field feedback", nil)
		return
	}
	s.recordVerdict(w, r, id, actor, role, audit.ActionRequestRevision, review.ReviewDecision{
		ItemID:         id,
		Status:         review.DecisionRevisionRequested,
		Reviewer:       actor,
		Comment:        req.Comment,
		FieldFeedbacks: req.FieldFeedbacks,
	})
}

// recordVerdict is the shared tail of reject and request-revision: the
// item moves submitted -> reviewed and the decision is appended.
func (s *Server) recordVerdict(w http.ResponseWriter, r *http.Request, id, actor string, role review.Role, action audit.Action, dec review.ReviewDecision) {
	if fieldErrs := validateFeedbacks(dec.FieldFeedbacks); fieldErrs != nil {
		invalid(w, "invalid field feedbacks", fieldErrs)
		return
	}
	if !s.transition(w, r, id, review.StatusSubmitted, review.StatusReviewed, "item is not awaiting review") {
		return
	}
	saved, err := s.store.AppendDecision(r.Context(), dec)
	if err != nil {
		internal(w, s.log, "append_decision", err)
		return
	}

	ev := audit.NewEvent(id, action)
	ev.Actor, ev.Role = actor, string(role)
	ev.DecisionID, ev.DecisionStatus = saved.ID, string(saved.Status)
	ev.FieldCount = len(saved.FieldFeedbacks)
	s.emitAudit(r.Context(), ev)
	s.log.Info("item_reviewed", "item_id", id, "reviewer", actor, "status", string(saved.Status), "fields", len(saved.FieldFeedbacks))
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleResubmit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	actor, role := actorFromRequest(r)
	if role.IsReviewer() {
		forbidden(w, "reviewers cannot resubmit items")
		return
	}
	var req struct {
		Comment string `json:"comment"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.transition(w, r, id, review.StatusReviewed, review.StatusSubmitted, "item is not under revision") {
		return
	}

	item, ok, err := s.store.GetItem(r.Context(), id)
	if err != nil {
		internal(w, s.log, "get_item", err)
		return
	}
	if !ok {
		notFound(w, "labeling item")
		return
	}

	ev := audit.NewEvent(id, audit.ActionResubmit)
	ev.Actor, ev.Role = actor, string(role)
	s.emitAudit(r.Context(), ev)
	s.log.Info("item_resubmitted", "item_id", id, "actor", actor)
	writeJSON(w, http.StatusOK, item)
}

// transition moves the item through the status lattice, writing the
// appropriate error when the item is missing or not in the expected
// status. Returns true when the move happened.
func (s *Server) transition(w http.ResponseWriter, r *http.Request, id string, from, to review.ItemStatus, conflictMsg string) bool {
	moved, err := s.store.TransitionStatus(r.Context(), id, from, to)
	if err != nil {
		internal(w, s.log, "transition_status", err)
		return false
	}
	if moved {
		return true
	}
	// Distinguish a missing item from a status conflict.
	_, ok, err := s.store.GetItem(r.Context(), id)
	if err != nil {
		internal(w, s.log, "get_item", err)
		return false
	}
	if !ok {
		notFound(w, "labeling item")
		return false
	}
	invalid(w, conflictMsg, nil)
	return false
}

func canReview(role review.Role) bool {
	return role == review.RoleAdmin || role.IsReviewer()
}

// validateItemFields rejects classification values for unknown fields.
func validateItemFields(fields map[string]string) map[string]string {
	var errs map[string]string
	for name := range fields {
		if !review.IsReviewableField(name) {
			if errs == nil {
				errs = map[string]string{}
			}
			errs[name] = "not a reviewable field"
		}
	}
	return errs
}
