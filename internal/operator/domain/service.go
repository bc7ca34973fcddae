package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

type CreateOperatorRequest struct {
	Username       string
	FullName       string
	Specialization string
	SkillLevel     SkillLevel
	HourlyRate     *decimal.Decimal
}

type UpdateOperatorRequest struct {
	ID             string
	FullName       *string
	Specialization *string
	SkillLevel     *SkillLevel
	HourlyRate     *decimal.Decimal
}

type GetOperatorRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateOperatorRequest) (Operator, error)
	GetByID(context.Context, GetOperatorRequest) (Operator, error)
	GetByUsername(ctx context.Context, username string) (Operator, error)
	List(context.Context) ([]Operator, error)
	Update(context.Context, UpdateOperatorRequest) (Operator, error)

	// EffectiveHourlyRate resolves the rate used when a labor row does not
	// carry one: the operator profile rate, else the configured default.
	EffectiveHourlyRate(ctx context.Context, username string) (decimal.Decimal, error)
}

var (
	ErrInvalidUsername  = errors.New("invalid_username")
	ErrInvalidSkill     = errors.New("invalid_skill_level")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("not_found")
	ErrDuplicateProfile = errors.New("duplicate_profile")
)
