// Package review implements the annotation review workflow: the
// role/status permission matrix, the client-local review state store, and
// the approve/reject/revision/resubmit operations against the annotation
// service API.
package review

import (
	"strings"
	"time"
)

// Role is the closed set of user roles in the annotation workflow.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleResearcher Role = "researcher"
	RoleAnnotator  Role = "annotator"
)

// ParseRole maps an externally supplied role string onto the closed set,
// case-insensitively. Unrecognized or empty input maps to the
// least-privileged role.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin
	case "manager":
		return RoleManager
	case "researcher":
		return RoleResearcher
	case "annotator":
		return RoleAnnotator
	default:
		return RoleAnnotator
	}
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleResearcher, RoleAnnotator:
		return true
	}
	return false
}

// IsReviewer reports whether the role reviews annotations instead of
// producing them.
func (r Role) IsReviewer() bool {
	return r == RoleManager || r == RoleResearcher
}

// ItemStatus is the lifecycle state of a labeling item.
//
// Lattice: draft -> submitted -> {approved | reviewed};
// reviewed -> submitted again via resubmit. Approved is terminal.
type ItemStatus string

const (
	StatusDraft     ItemStatus = "draft"
	StatusSubmitted ItemStatus = "submitted"
	StatusReviewed  ItemStatus = "reviewed"
	StatusApproved  ItemStatus = "approved"
)

// ParseItemStatus maps a status string onto the closed set. The boolean is
// false for unrecognized input.
func ParseItemStatus(s string) (ItemStatus, bool) {
	st := ItemStatus(strings.ToLower(strings.TrimSpace(s)))
	if st.Valid() {
		return st, true
	}
	return "", false
}

func (s ItemStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusReviewed, StatusApproved:
		return true
	}
	return false
}

// CanTransition reports whether the item status lattice allows moving from
// s to next.
func (s ItemStatus) CanTransition(next ItemStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusSubmitted
	case StatusSubmitted:
		return next == StatusApproved || next == StatusReviewed
	case StatusReviewed:
		return next == StatusSubmitted
	default:
		return false
	}
}

// DecisionStatus is the verdict recorded by a review decision.
type DecisionStatus string

const (
	DecisionApproved          DecisionStatus = "approved"
	DecisionRejectedPartial   DecisionStatus = "rejected_partial"
	DecisionRejectedFull      DecisionStatus = "rejected_full"
	DecisionRevisionRequested DecisionStatus = "revision_requested"
)

func (d DecisionStatus) Valid() bool {
	switch d {
	case DecisionApproved, DecisionRejectedPartial, DecisionRejectedFull, DecisionRevisionRequested:
		return true
	}
	return false
}

// RequiresRevision reports whether the verdict sends the item back to the
// annotator with fields to fix.
func (d DecisionStatus) RequiresRevision() bool {
	switch d {
	case DecisionRejectedPartial, DecisionRejectedFull, DecisionRevisionRequested:
		return true
	}
	return false
}

// FeedbackType classifies reviewer feedback on a single field.
type FeedbackType string

const (
	FeedbackPartial  FeedbackType = "partial"
	FeedbackFull     FeedbackType = "full"
	FeedbackRevision FeedbackType = "revision"
)

func (f FeedbackType) Valid() bool {
	switch f {
	case FeedbackPartial, FeedbackFull, FeedbackRevision:
		return true
	}
	return false
}

// FieldFeedback is reviewer commentary attached to one reviewable field of
// a labeling item. It is owned by exactly one ReviewDecision.
type FieldFeedback struct {
	FieldName    string       `json:"field_name"`
	FeedbackType FeedbackType `json:"feedback_type"`
	Comment      string       `json:"comment,omitempty"`
}

// ReviewDecision is an immutable reviewer verdict. Once created it is never
// edited or deleted.
type ReviewDecision struct {
	ID             string          `json:"id"`
	ItemID         string          `json:"labeling_item"`
	Status         DecisionStatus  `json:"status"`
	Reviewer       string          `json:"reviewer"`
	Comment        string          `json:"comment,omitempty"`
	FieldFeedbacks []FieldFeedback `json:"field_feedbacks,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// FieldNames returns the reviewable field names flagged by the decision's
// feedbacks, in order, without duplicates.
func (d ReviewDecision) FieldNames() []string {
	if len(d.FieldFeedbacks) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(d.FieldFeedbacks))
	out := make([]string, 0, len(d.FieldFeedbacks))
	for _, fb := range d.FieldFeedbacks {
		if fb.FieldName == "" || seen[fb.FieldName] {
			continue
		}
		seen[fb.FieldName] = true
		out = append(out, fb.FieldName)
	}
	return out
}

// LabelingItem is one annotator's threat/error/UAS classification record
// for a flight event. Fields holds classification values keyed by
// reviewable field name.
type LabelingItem struct {
	ID        string            `json:"id"`
	ProjectID string            `json:"project_id,omitempty"`
	EventID   string            `json:"event_id,omitempty"`
	Annotator string            `json:"annotator,omitempty"`
	Status    ItemStatus        `json:"status"`
	Fields    map[string]string `json:"fields,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
	UpdatedAt time.Time         `json:"updated_at,omitempty"`
}

// ReviewHistory is the server's view of an item's review trail.
type ReviewHistory struct {
	Decisions             []ReviewDecision `json:"decisions"`
	CurrentStatus         ItemStatus       `json:"current_status"`
	PendingRevisionFields []string         `json:"pending_revision_fields"`
}
