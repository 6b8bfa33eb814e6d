package review

// Store holds the client-local review state for the currently selected
// labeling item: the decision trail, staged (unsent) field feedbacks, the
// fields flagged for revision, and the fields the annotator has marked
// resolved.
//
// The store is driven from a single goroutine, matching the event-driven
// UI runtime it backs. It is not safe for concurrent use.
type Store struct {
	itemID string

	// gen increments on every item switch. In-flight history fetches
	// capture it on entry and drop their result when it no longer matches.
	gen uint64

	decisions             []ReviewDecision
	pendingFeedbacks      []FieldFeedback
	pendingRevisionFields []string
	resolvedFields        map[string]struct{}

	// failedItemIDs caches items whose review history is known to be gone.
	// It deliberately survives item switches.
	failedItemIDs map[string]struct{}

	loading bool
	lastErr error
}

func NewStore() *Store {
	return &Store{
		resolvedFields: make(map[string]struct{}),
		failedItemIDs:  make(map[string]struct{}),
	}
}

// SelectItem switches the store to a different labeling item and drops all
// per-item state. Selecting the already-selected item is a no-op, and
// failedItemIDs is never cleared here.
func (s *Store) SelectItem(itemID string) {
	if itemID == s.itemID {
		return
	}
	s.itemID = itemID
	s.gen++
	s.decisions = nil
	s.pendingFeedbacks = nil
	s.pendingRevisionFields = nil
	s.resolvedFields = make(map[string]struct{})
	s.lastErr = nil
}

// SelectedItem returns the id of the currently selected item, or "".
func (s *Store) SelectedItem() string { return s.itemID }

// Loading reports whether a workflow operation is in flight. The view
// layer disables action triggers while this is true.
func (s *Store) Loading() bool { return s.loading }

// Err returns the error recorded by the most recent failed operation, or
// nil.
func (s *Store) Err() error { return s.lastErr }

// Decisions returns the ordered, append-only decision trail for the
// selected item.
func (s *Store) Decisions() []ReviewDecision {
	out := make([]ReviewDecision, len(s.decisions))
	copy(out, s.decisions)
	return out
}

// PendingFeedbacks returns the staged feedbacks in insertion order. There
// is at most one entry per field.
func (s *Store) PendingFeedbacks() []FieldFeedback {
	out := make([]FieldFeedback, len(s.pendingFeedbacks))
	copy(out, s.pendingFeedbacks)
	return out
}

// PendingRevisionFields returns the field names the latest decision
// flagged for revision.
func (s *Store) PendingRevisionFields() []string {
	out := make([]string, len(s.pendingRevisionFields))
	copy(out, s.pendingRevisionFields)
	return out
}

// IsFieldResolved reports whether the annotator has marked the field as
// addressed.
func (s *Store) IsFieldResolved(fieldName string) bool {
	_, ok := s.resolvedFields[fieldName]
	return ok
}

// HasFailed reports whether a history fetch for itemID previously came
// back "not found". Callers use this to suppress redundant refetches.
func (s *Store) HasFailed(itemID string) bool {
	_, ok := s.failedItemIDs[itemID]
	return ok
}

// UnresolvedFieldCount is the number of revision-flagged fields the
// annotator has not yet marked resolved. Derived on demand, never stored.
func (s *Store) UnresolvedFieldCount() int {
	n := 0
	for _, f := range s.pendingRevisionFields {
		if _, ok := s.resolvedFields[f]; !ok {
			n++
		}
	}
	return n
}

// HasUnresolvedRevisions reports whether any flagged field is still
// unaddressed.
func (s *Store) HasUnresolvedRevisions() bool {
	return s.UnresolvedFieldCount() > 0
}

// CanResubmit is true iff every revision-flagged field has been marked
// resolved. Vacuously true when nothing is flagged.
func (s *Store) CanResubmit() bool {
	return s.UnresolvedFieldCount() == 0
}

// AddPendingFeedback stages a feedback, replacing any staged entry for the
// same field.
func (s *Store) AddPendingFeedback(fb FieldFeedback) {
	for i, cur := range s.pendingFeedbacks {
		if cur.FieldName == fb.FieldName {
			s.pendingFeedbacks[i] = fb
			return
		}
	}
	s.pendingFeedbacks = append(s.pendingFeedbacks, fb)
}

// RemovePendingFeedback drops the staged entry for fieldName, if any.
func (s *Store) RemovePendingFeedback(fieldName string) {
	for i, cur := range s.pendingFeedbacks {
		if cur.FieldName == fieldName {
			s.pendingFeedbacks = append(s.pendingFeedbacks[:i], s.pendingFeedbacks[i+1:]...)
			return
		}
	}
}

// FeedbackUpdate is a partial update of a staged feedback. Nil fields are
// left unchanged.
type FeedbackUpdate struct {
	FeedbackType *FeedbackType
	Comment      *string
}

// UpdatePendingFeedback merges upd into the staged entry for fieldName.
// No-op when nothing is staged for that field.
func (s *Store) UpdatePendingFeedback(fieldName string, upd FeedbackUpdate) {
	for i := range s.pendingFeedbacks {
		if s.pendingFeedbacks[i].FieldName != fieldName {
			continue
		}
		if upd.FeedbackType != nil {
			s.pendingFeedbacks[i].FeedbackType = *upd.FeedbackType
		}
		if upd.Comment != nil {
			s.pendingFeedbacks[i].Comment = *upd.Comment
		}
		return
	}
}

// MarkFieldResolved records that the annotator addressed a flagged field.
// Fields not currently flagged for revision are ignored, keeping the
// resolved set a subset of the pending set.
func (s *Store) MarkFieldResolved(fieldName string) {
	for _, f := range s.pendingRevisionFields {
		if f == fieldName {
			s.resolvedFields[fieldName] = struct{}{}
			return
		}
	}
}

// UnmarkFieldResolved removes the resolved mark from a field.
func (s *Store) UnmarkFieldResolved(fieldName string) {
	delete(s.resolvedFields, fieldName)
}

func (s *Store) setLoading(v bool) { s.loading = v }

func (s *Store) recordError(err error) { s.lastErr = err }

func (s *Store) markFailed(itemID string) {
	s.failedItemIDs[itemID] = struct{}{}
}

// applyHistory replaces the decision trail and pending revision fields
// from the server payload and clears the item from the failed cache.
func (s *Store) applyHistory(itemID string, h ReviewHistory) {
	s.decisions = append([]ReviewDecision(nil), h.Decisions...)
	s.pendingRevisionFields = append([]string(nil), h.PendingRevisionFields...)
	delete(s.failedItemIDs, itemID)
	s.lastErr = nil
}

// foldApproval appends the approval decision and clears all pending state.
func (s *Store) foldApproval(d ReviewDecision) {
	s.decisions = append(s.decisions, d)
	s.pendingFeedbacks = nil
	s.pendingRevisionFields = nil
}

// foldRevision appends a reject or revision-request decision. The pending
// revision fields are taken from the returned decision so revision
// tracking reflects server truth, not the optimistic client state.
func (s *Store) foldRevision(d ReviewDecision) {
	s.decisions = append(s.decisions, d)
	s.pendingFeedbacks = nil
	s.pendingRevisionFields = d.FieldNames()
}

// foldResubmit clears revision tracking after a successful resubmission.
func (s *Store) foldResubmit() {
	s.pendingRevisionFields = nil
	s.resolvedFields = make(map[string]struct{})
}
