package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/apperr"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
)

type TechnicianRepository interface {
	Create(ctx context.Context, tech *model.TechnicianProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.TechnicianProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.TechnicianProfile, error)
	// List returns technicians with their skills; onlyWorking drops
	// off-duty and on-leave profiles.
	List(ctx context.Context, onlyWorking bool) ([]model.TechnicianProfile, error)
	// ClaimWorkload adds one job; with enforce it fails at capacity.
	ClaimWorkload(ctx context.Context, id uuid.UUID, enforce bool) error
	// ReleaseWorkload removes one job, floored at zero.
	ReleaseWorkload(ctx context.Context, id uuid.UUID) error
	// CompleteJob removes one job and counts it as completed.
	CompleteJob(ctx context.Context, id uuid.UUID) error
}

type GormTechnicianRepository struct {
	db *gorm.DB
}

func NewGormTechnicianRepository(db *gorm.DB) *GormTechnicianRepository {
	return &GormTechnicianRepository{db: db}
}

func (r *GormTechnicianRepository) Create(ctx context.Context, tech *model.TechnicianProfile) error {
	return r.db.WithContext(ctx).Create(tech).Error
}

func (r *GormTechnicianRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TechnicianProfile, error) {
	var t model.TechnicianProfile
	if err := r.db.WithContext(ctx).Preload("Skills").First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "technician", id)
	}
	return &t, nil
}

func (r *GormTechnicianRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.TechnicianProfile, error) {
	var t model.TechnicianProfile
	if err := r.db.WithContext(ctx).Preload("Skills").First(&t, "user_id = ?", userID).Error; err != nil {
		return nil, notFound(err, "technician", userID)
	}
	return &t, nil
}

func (r *GormTechnicianRepository) List(ctx context.Context, onlyWorking bool) ([]model.TechnicianProfile, error) {
	q := r.db.WithContext(ctx).Preload("Skills")
	if onlyWorking {
		q = q.Where("availability_status IN ?", []model.TechnicianAvailability{
			model.AvailabilityAvailable, model.AvailabilityBusy,
		})
	}

	var techs []model.TechnicianProfile
	if err := q.Order("display_name ASC").Find(&techs).Error; err != nil {
		return nil, err
	}
	return techs, nil
}

func (r *GormTechnicianRepository) ClaimWorkload(ctx context.Context, id uuid.UUID, enforce bool) error {
	q := r.db.WithContext(ctx).Model(&model.TechnicianProfile{}).Where("id = ?", id)
	if enforce {
		q = q.Where("workload_current < workload_capacity")
	}
	res := q.Update("workload_current", gorm.Expr("workload_current + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &apperr.ResourceUnavailableError{
			Resource: "technician",
			ID:       id.String(),
			Err:      apperr.ErrTechnicianUnavailable,
		}
	}
	return nil
}

func (r *GormTechnicianRepository) ReleaseWorkload(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.TechnicianProfile{}).
		Where("id = ? AND workload_current > 0", id).
		Update("workload_current", gorm.Expr("workload_current - 1")).Error
}

func (r *GormTechnicianRepository) CompleteJob(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.TechnicianProfile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"workload_current": gorm.Expr("CASE WHEN workload_current > 0 THEN workload_current - 1 ELSE 0 END"),
			"completed_jobs":   gorm.Expr("completed_jobs + 1"),
		}).Error
}
