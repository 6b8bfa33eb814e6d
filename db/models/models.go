// Package models holds the gorm schema of the annotation service.
package models

// Project groups flight events under one annotation campaign.
type Project struct {
	ID          string `gorm:"column:id;type:text;primaryKey"`
	Name        string `gorm:"column:name;type:text;not null"`
	Description string `gorm:"column:description;type:text"`
	CreatedAt   int64  `gorm:"column:created_at;not null"`
	UpdatedAt   int64  `gorm:"column:updated_at;not null"`
}

func (Project) TableName() string { return "projects" }

// FlightEvent is one safety event annotators classify.
type FlightEvent struct {
	ID           string `gorm:"column:id;type:text;primaryKey"`
	ProjectID    string `gorm:"column:project_id;type:text;not null;index:idx_events_project"`
	FlightNumber string `gorm:"column:flight_number;type:text"`
	OccurredOn   string `gorm:"column:occurred_on;type:text"`
	Description  string `gorm:"column:description;type:text"`
	CreatedAt    int64  `gorm:"column:created_at;not null"`
	UpdatedAt    int64  `gorm:"column:updated_at;not null"`
}

func (FlightEvent) TableName() string { return "flight_events" }

// LabelingItem is an annotator's classification record for a flight event.
// FieldsJSON holds the classification values keyed by reviewable field
// name.
type LabelingItem struct {
	ID         string `gorm:"column:id;type:text;primaryKey"`
	ProjectID  string `gorm:"column:project_id;type:text;index:idx_items_project"`
	EventID    string `gorm:"column:event_id;type:text;index:idx_items_event"`
	Annotator  string `gorm:"column:annotator;type:text;index:idx_items_annotator"`
	Status     string `gorm:"column:status;type:text;not null;index:idx_items_status"`
	FieldsJSON string `gorm:"column:fields_json;type:text"`
	CreatedAt  int64  `gorm:"column:created_at;not null"`
	UpdatedAt  int64  `gorm:"column:updated_at;not null"`
}

func (LabelingItem) TableName() string { return "labeling_items" }

// ReviewDecision is an immutable reviewer verdict. Rows are append-only;
// nothing updates or deletes them.
type ReviewDecision struct {
	ID        string `gorm:"column:id;type:text;primaryKey"`
	ItemID    string `gorm:"column:item_id;type:text;not null;index:idx_decisions_item"`
	Status    string `gorm:"column:status;type:text;not null"`
	Reviewer  string `gorm:"column:reviewer;type:text"`
	Comment   string `gorm:"column:comment;type:text"`
	CreatedAt int64  `gorm:"column:created_at;not null;index:idx_decisions_created"`
}

func (ReviewDecision) TableName() string { return "review_decisions" }

// FieldFeedback is one field-level remark owned by a review decision.
type FieldFeedback struct {
	ID           uint   `gorm:"column:id;primaryKey;autoIncrement"`
	DecisionID   string `gorm:"column:decision_id;type:text;not null;index:idx_feedbacks_decision"`
	FieldName    string `gorm:"column:field_name;type:text;not null"`
	FeedbackType string `gorm:"column:feedback_type;type:text;not null"`
	Comment      string `gorm:"column:comment;type:text"`
}

func (FieldFeedback) TableName() string { return "field_feedbacks" }
