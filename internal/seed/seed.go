package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	jobdomain "github.com/makerbench/makerbench/internal/job/domain"
	"gorm.io/gorm"
)

var defaultStatuses = []jobdomain.JobStatus{
	{Name: "New", Description: "Accepted, not started", ColorCode: "#2d9cdb", SortOrder: 1},
	{Name: "In Progress", Description: "Work underway", ColorCode: "#f2994a", SortOrder: 2},
	{Name: "On Hold", Description: "Waiting on client or parts", ColorCode: "#bdbdbd", SortOrder: 3},
	{Name: "Completed", Description: "Work finished", ColorCode: "#27ae60", SortOrder: 4},
	{Name: "Delivered", Description: "Handed over to the client", ColorCode: "#219653", SortOrder: 5},
}

// EnsureJobStatuses seeds the workflow status vocabulary on startup. Existing
// statuses are left untouched so operators can rename or recolor them.
func EnsureJobStatuses(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, status := range defaultStatuses {
			var count int64
			err := tx.WithContext(ctx).
				Model(&jobdomain.JobStatus{}).
				Where("name = ?", status.Name).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			status.ID = node.Generate()
			if err := tx.WithContext(ctx).Create(&status).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
