package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/config"
	"github.com/makerbench/makerbench/internal/identifier"
	"github.com/makerbench/makerbench/internal/observability/metrics"
	"github.com/makerbench/makerbench/internal/operator/domain"
	"github.com/makerbench/makerbench/pkg/db"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const operatorPrefix = "OP-"

type Params struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Alloc   *identifier.Allocator
	Metrics *metrics.Metrics
	Repo    domain.Repository
}

type Service struct {
	cfg     config.Config
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	alloc   *identifier.Allocator
	metrics *metrics.Metrics
	repo    domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		cfg:     p.Config,
		db:      p.DB,
		log:     p.Log.Named("operator.service"),
		genID:   p.GenID,
		alloc:   p.Alloc,
		metrics: p.Metrics,
		repo:    p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOperatorRequest) (domain.Operator, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		return domain.Operator{}, domain.ErrInvalidUsername
	}

	skill := req.SkillLevel
	if skill == "" {
		skill = domain.SkillIntermediate
	}
	switch skill {
	case domain.SkillApprentice, domain.SkillIntermediate, domain.SkillExpert:
	default:
		return domain.Operator{}, domain.ErrInvalidSkill
	}

	var created domain.Operator
	attempts := s.cfg.IdentifierRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			operatorID, err := s.alloc.Next(ctx, tx, "operators", "operator_id", operatorPrefix)
			if err != nil {
				return err
			}
			created = domain.Operator{
				ID:             s.genID.Generate(),
				OperatorID:     operatorID,
				Username:       username,
				FullName:       strings.TrimSpace(req.FullName),
				Specialization: strings.TrimSpace(req.Specialization),
				SkillLevel:     skill,
				HourlyRate:     req.HourlyRate,
			}
			return s.repo.Insert(ctx, tx, &created)
		})
		if err == nil {
			return created, nil
		}
		if db.IsDuplicateKeyErr(err) {
			existing, findErr := s.repo.FindByUsername(ctx, s.db, username)
			if findErr == nil && existing != nil {
				return domain.Operator{}, domain.ErrDuplicateProfile
			}
			s.metrics.RecordIdentifierConflict("operator")
			s.log.Warn("operator id conflict, retrying", zap.Int("attempt", i+1))
			continue
		}
		return domain.Operator{}, err
	}
	return domain.Operator{}, identifier.ErrIdentifierConflict
}

func (s *Service) GetByID(ctx context.Context, req domain.GetOperatorRequest) (domain.Operator, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Operator{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Operator{}, err
	}
	if item == nil {
		return domain.Operator{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (domain.Operator, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return domain.Operator{}, domain.ErrInvalidUsername
	}

	item, err := s.repo.FindByUsername(ctx, s.db, username)
	if err != nil {
		return domain.Operator{}, err
	}
	if item == nil {
		return domain.Operator{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Operator, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}

	operators := make([]domain.Operator, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		operators = append(operators, *item)
	}
	return operators, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateOperatorRequest) (domain.Operator, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Operator{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Operator{}, err
	}
	if item == nil {
		return domain.Operator{}, domain.ErrNotFound
	}

	if req.FullName != nil {
		item.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Specialization != nil {
		item.Specialization = strings.TrimSpace(*req.Specialization)
	}
	if req.SkillLevel != nil {
		switch *req.SkillLevel {
		case domain.SkillApprentice, domain.SkillIntermediate, domain.SkillExpert:
			item.SkillLevel = *req.SkillLevel
		default:
			return domain.Operator{}, domain.ErrInvalidSkill
		}
	}
	if req.HourlyRate != nil {
		item.HourlyRate = req.HourlyRate
	}

	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.Operator{}, err
	}
	return *item, nil
}

func (s *Service) EffectiveHourlyRate(ctx context.Context, username string) (decimal.Decimal, error) {
	item, err := s.repo.FindByUsername(ctx, s.db, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return decimal.Zero, err
	}
	if item == nil || item.HourlyRate == nil {
		return s.cfg.DefaultLaborRate, nil
	}
	return *item.HourlyRate, nil
}
