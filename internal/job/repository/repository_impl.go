package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/job/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertStatus(ctx context.Context, db *gorm.DB, status *domain.JobStatus) error {
	return db.WithContext(ctx).Create(status).Error
}

func (r *repo) FindStatusByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.JobStatus, error) {
	var status domain.JobStatus
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&status).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

func (r *repo) FindStatusByName(ctx context.Context, db *gorm.DB, name string) (*domain.JobStatus, error) {
	var status domain.JobStatus
	err := db.WithContext(ctx).
		Where("name = ?", name).
		First(&status).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

func (r *repo) ListStatuses(ctx context.Context, db *gorm.DB) ([]*domain.JobStatus, error) {
	var statuses []*domain.JobStatus
	err := db.WithContext(ctx).
		Order("sort_order asc, name asc").
		Find(&statuses).Error
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, job *domain.Job) error {
	return db.WithContext(ctx).Create(job).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Job, error) {
	var job domain.Job
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *repo) FindByJobID(ctx context.Context, db *gorm.DB, jobID string) (*domain.Job, error) {
	var job domain.Job
	err := db.WithContext(ctx).
		Where("job_id = ?", jobID).
		First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListJobFilter) ([]*domain.Job, error) {
	var jobs []*domain.Job
	stmt := db.WithContext(ctx).Model(&domain.Job{})
	if filter.StatusID != 0 {
		stmt = stmt.Where("status_id = ?", filter.StatusID)
	}
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.Priority != "" {
		stmt = stmt.Where("priority = ?", filter.Priority)
	}
	err := stmt.
		Order("job_id desc").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, job *domain.Job) error {
	return db.WithContext(ctx).Save(job).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	for _, model := range []interface{}{
		&domain.JobMaterial{},
		&domain.JobMachine{},
		&domain.JobLabor{},
		&domain.JobFinancial{},
		&domain.JobActivityLog{},
	} {
		if err := db.WithContext(ctx).
			Where("job_id = ?", id).
			Delete(model).Error; err != nil {
			return err
		}
	}
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Job{}).Error
}

func (r *repo) InsertMaterial(ctx context.Context, db *gorm.DB, usage *domain.JobMaterial) error {
	return db.WithContext(ctx).Create(usage).Error
}

func (r *repo) FindMaterialByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.JobMaterial, error) {
	var usage domain.JobMaterial
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&usage).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &usage, nil
}

func (r *repo) ListMaterials(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]*domain.JobMaterial, error) {
	var usages []*domain.JobMaterial
	err := db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("date_used asc, id asc").
		Find(&usages).Error
	if err != nil {
		return nil, err
	}
	return usages, nil
}

func (r *repo) UpdateMaterial(ctx context.Context, db *gorm.DB, usage *domain.JobMaterial) error {
	return db.WithContext(ctx).Save(usage).Error
}

func (r *repo) DeleteMaterial(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.JobMaterial{}).Error
}

func (r *repo) InsertMachine(ctx context.Context, db *gorm.DB, usage *domain.JobMachine) error {
	return db.WithContext(ctx).Create(usage).Error
}

func (r *repo) FindMachineUsageByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.JobMachine, error) {
	var usage domain.JobMachine
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&usage).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &usage, nil
}

func (r *repo) FindActiveMachineUsage(ctx context.Context, db *gorm.DB, jobID, machineID snowflake.ID) (*domain.JobMachine, error) {
	var usage domain.JobMachine
	err := db.WithContext(ctx).
		Where("job_id = ? AND machine_id = ? AND is_active = ?", jobID, machineID, true).
		Order("start_time desc").
		First(&usage).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &usage, nil
}

func (r *repo) ListMachines(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]*domain.JobMachine, error) {
	var usages []*domain.JobMachine
	err := db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("start_time asc, id asc").
		Find(&usages).Error
	if err != nil {
		return nil, err
	}
	return usages, nil
}

func (r *repo) ListAllMachineUsages(ctx context.Context, db *gorm.DB) ([]*domain.JobMachine, error) {
	var usages []*domain.JobMachine
	err := db.WithContext(ctx).
		Order("start_time asc, id asc").
		Find(&usages).Error
	if err != nil {
		return nil, err
	}
	return usages, nil
}

func (r *repo) UpdateMachine(ctx context.Context, db *gorm.DB, usage *domain.JobMachine) error {
	return db.WithContext(ctx).Save(usage).Error
}

func (r *repo) DeleteMachine(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.JobMachine{}).Error
}

func (r *repo) InsertLabor(ctx context.Context, db *gorm.DB, labor *domain.JobLabor) error {
	return db.WithContext(ctx).Create(labor).Error
}

func (r *repo) FindLaborByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.JobLabor, error) {
	var labor domain.JobLabor
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&labor).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &labor, nil
}

func (r *repo) ListLabors(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]*domain.JobLabor, error) {
	var labors []*domain.JobLabor
	err := db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("work_date asc, id asc").
		Find(&labors).Error
	if err != nil {
		return nil, err
	}
	return labors, nil
}

func (r *repo) DeleteLabor(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.JobLabor{}).Error
}

func (r *repo) FindFinancial(ctx context.Context, db *gorm.DB, jobID snowflake.ID) (*domain.JobFinancial, error) {
	var financial domain.JobFinancial
	err := db.WithContext(ctx).
		Where("job_id = ?", jobID).
		First(&financial).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &financial, nil
}

func (r *repo) InsertFinancial(ctx context.Context, db *gorm.DB, financial *domain.JobFinancial) error {
	return db.WithContext(ctx).Create(financial).Error
}

func (r *repo) UpdateFinancial(ctx context.Context, db *gorm.DB, financial *domain.JobFinancial) error {
	return db.WithContext(ctx).Save(financial).Error
}

func (r *repo) InsertActivityLog(ctx context.Context, db *gorm.DB, entry *domain.JobActivityLog) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListActivityLogs(ctx context.Context, db *gorm.DB, jobID snowflake.ID) ([]*domain.JobActivityLog, error) {
	var entries []*domain.JobActivityLog
	err := db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) CountStaffReferences(ctx context.Context, db *gorm.DB, jobID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("staff_settings").
		Where("active_job_id = ? OR personal_job_id = ?", jobID, jobID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
