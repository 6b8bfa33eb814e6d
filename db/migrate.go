package db

import (
	"fmt"

	"github.com/avialab/temtrack/db/models"
	"gorm.io/gorm"
)

func AutoMigrate(gdb *gorm.DB) error {
	if gdb == nil {
		return fmt.Errorf("nil gorm db")
	}
	return gdb.AutoMigrate(
		&models.Project{},
		&models.FlightEvent{},
		&models.LabelingItem{},
		&models.ReviewDecision{},
		&models.FieldFeedback{},
	)
}
