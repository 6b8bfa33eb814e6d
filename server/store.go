// Package server implements the annotation service REST API and its
// gorm-backed storage.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/avialab/temtrack/db/models"
	"github.com/avialab/temtrack/review"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Store persists projects, flight events, labeling items and their
// append-only review trail.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) GetItem(ctx context.Context, id string) (review.LabelingItem, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return review.LabelingItem{}, false, nil
	}
	var row models.LabelingItem
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return review.LabelingItem{}, false, nil
	}
	if err != nil {
		return review.LabelingItem{}, false, err
	}
	return itemToDomain(row), true, nil
}

func (s *Store) ListItems(ctx context.Context, projectID string) ([]review.LabelingItem, error) {
	q := s.DB.WithContext(ctx).Model(&models.LabelingItem{}).Order("created_at ASC")
	if strings.TrimSpace(projectID) != "" {
		q = q.Where("project_id = ?", projectID)
	}
	var rows []models.LabelingItem
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]review.LabelingItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, itemToDomain(r))
	}
	return out, nil
}

func (s *Store) CreateItem(ctx context.Context, item review.LabelingItem) (review.LabelingItem, error) {
	if strings.TrimSpace(item.ID) == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = review.StatusDraft
	}
	now := time.Now().Unix()
	row := itemFromDomain(item)
	row.CreatedAt = now
	row.UpdatedAt = now
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return review.LabelingItem{}, err
	}
	return itemToDomain(row), nil
}

// UpdateItemFields replaces the classification values of an item. The
// second return is false when the item does not exist.
func (s *Store) UpdateItemFields(ctx context.Context, id string, fields map[string]string) (review.LabelingItem, bool, error) {
	item, ok, err := s.GetItem(ctx, id)
	if err != nil || !ok {
		return review.LabelingItem{}, ok, err
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return review.LabelingItem{}, false, err
	}
	now := time.Now().Unix()
	if err := s.DB.WithContext(ctx).Model(&models.LabelingItem{}).
		Where("id = ?", id).
		Updates(map[string]any{"fields_json": string(b), "updated_at": now}).Error; err != nil {
		return review.LabelingItem{}, false, err
	}
	item.Fields = fields
	item.UpdatedAt = time.Unix(now, 0).UTC()
	return item, true, nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) (bool, error) {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.LabelingItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TransitionStatus moves an item from one status to another with an
// optimistic guard on the current status. It returns false when the item
// was not in the expected status (or does not exist).
func (s *Store) TransitionStatus(ctx context.Context, id string, from, to review.ItemStatus) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.LabelingItem{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": time.Now().Unix()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AppendDecision writes a decision and its field feedbacks in one
// transaction. Decisions are append-only; nothing ever updates them.
func (s *Store) AppendDecision(ctx context.Context, dec review.ReviewDecision) (review.ReviewDecision, error) {
	if strings.TrimSpace(dec.ID) == "" {
		dec.ID = uuid.NewString()
	}
	if dec.CreatedAt.IsZero() {
		dec.CreatedAt = time.Now().UTC()
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.ReviewDecision{
			ID:        dec.ID,
			ItemID:    dec.ItemID,
			Status:    string(dec.Status),
			Reviewer:  dec.Reviewer,
			Comment:   dec.Comment,
			CreatedAt: dec.CreatedAt.Unix(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, fb := range dec.FieldFeedbacks {
			fbRow := models.FieldFeedback{
				DecisionID:   dec.ID,
				FieldName:    fb.FieldName,
				FeedbackType: string(fb.FeedbackType),
				Comment:      fb.Comment,
			}
			if err := tx.Create(&fbRow).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return review.ReviewDecision{}, err
	}
	return dec, nil
}

// History assembles the review trail of an item: ordered decisions with
// their feedbacks, the current status, and the fields still pending
// revision. The second return is false when the item does not exist.
func (s *Store) History(ctx context.Context, itemID string) (review.ReviewHistory, bool, error) {
	item, ok, err := s.GetItem(ctx, itemID)
	if err != nil || !ok {
		return review.ReviewHistory{}, ok, err
	}

	var rows []models.ReviewDecision
	if err := s.DB.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at ASC, rowid ASC").
		Find(&rows).Error; err != nil {
		return review.ReviewHistory{}, false, err
	}

	decisions := make([]review.ReviewDecision, 0, len(rows))
	for _, r := range rows {
		var fbRows []models.FieldFeedback
		if err := s.DB.WithContext(ctx).
			Where("decision_id = ?", r.ID).
			Order("id ASC").
			Find(&fbRows).Error; err != nil {
			return review.ReviewHistory{}, false, err
		}
		dec := review.ReviewDecision{
			ID:        r.ID,
			ItemID:    r.ItemID,
			Status:    review.DecisionStatus(r.Status),
			Reviewer:  r.Reviewer,
			Comment:   r.Comment,
			CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
		}
		for _, fb := range fbRows {
			dec.FieldFeedbacks = append(dec.FieldFeedbacks, review.FieldFeedback{
				FieldName:    fb.FieldName,
				FeedbackType: review.FeedbackType(fb.FeedbackType),
				Comment:      fb.Comment,
			})
		}
		decisions = append(decisions, dec)
	}

	hist := review.ReviewHistory{
		Decisions:     decisions,
		CurrentStatus: item.Status,
	}
	// Revision tracking only applies while the item sits in reviewed:
	// once resubmitted or approved there is nothing left to fix.
	if item.Status == review.StatusReviewed && len(decisions) > 0 {
		latest := decisions[len(decisions)-1]
		if latest.Status.RequiresRevision() {
			hist.PendingRevisionFields = latest.FieldNames()
		}
	}
	return hist, true, nil
}

func (s *Store) CreateProject(ctx context.Context, name, description string) (models.Project, error) {
	now := time.Now().Unix()
	row := models.Project{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return models.Project{}, err
	}
	return row, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	var rows []models.Project
	if err := s.DB.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CreateEvent(ctx context.Context, ev models.FlightEvent) (models.FlightEvent, error) {
	if strings.TrimSpace(ev.ID) == "" {
		ev.ID = uuid.NewString()
	}
	now := time.Now().Unix()
	ev.CreatedAt = now
	ev.UpdatedAt = now
	if err := s.DB.WithContext(ctx).Create(&ev).Error; err != nil {
		return models.FlightEvent{}, err
	}
	return ev, nil
}

func (s *Store) ListEvents(ctx context.Context, projectID string) ([]models.FlightEvent, error) {
	q := s.DB.WithContext(ctx).Model(&models.FlightEvent{}).Order("created_at ASC")
	if strings.TrimSpace(projectID) != "" {
		q = q.Where("project_id = ?", projectID)
	}
	var rows []models.FlightEvent
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func itemToDomain(m models.LabelingItem) review.LabelingItem {
	item := review.LabelingItem{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		EventID:   m.EventID,
		Annotator: m.Annotator,
		Status:    review.ItemStatus(m.Status),
		CreatedAt: time.Unix(m.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(m.UpdatedAt, 0).UTC(),
	}
	if strings.TrimSpace(m.FieldsJSON) != "" {
		_ = json.Unmarshal([]byte(m.FieldsJSON), &item.Fields)
	}
	return item
}

func itemFromDomain(item review.LabelingItem) models.LabelingItem {
	row := models.LabelingItem{
		ID:        item.ID,
		ProjectID: item.ProjectID,
		EventID:   item.EventID,
		Annotator: item.Annotator,
		Status:    string(item.Status),
	}
	if len(item.Fields) > 0 {
		if b, err := json.Marshal(item.Fields); err == nil {
			row.FieldsJSON = string(b)
		}
	}
	return row
}
