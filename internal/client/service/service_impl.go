package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/client/domain"
	"github.com/makerbench/makerbench/internal/clock"
	"github.com/makerbench/makerbench/internal/config"
	"github.com/makerbench/makerbench/internal/identifier"
	"github.com/makerbench/makerbench/internal/observability/metrics"
	"github.com/makerbench/makerbench/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Alloc   *identifier.Allocator
	Metrics *metrics.Metrics
	Repo    domain.Repository
}

type Service struct {
	cfg     config.Config
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	alloc   *identifier.Allocator
	metrics *metrics.Metrics
	repo    domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		cfg:     p.Config,
		db:      p.DB,
		log:     p.Log.Named("client.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		alloc:   p.Alloc,
		metrics: p.Metrics,
		repo:    p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateClientRequest) (domain.Client, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}

	clientType := req.Type
	if clientType == "" {
		clientType = domain.TypeCompany
	}
	switch clientType {
	case domain.TypeCompany, domain.TypeIndividual:
	default:
		return domain.Client{}, domain.ErrInvalidType
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "CHF"
	}

	prefix := identifier.ClientPrefix(identifier.Year(s.clock.Now()))

	var created domain.Client
	attempts := s.cfg.IdentifierRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			clientID, err := s.alloc.Next(ctx, tx, "clients", "client_id", prefix)
			if err != nil {
				return err
			}
			now := s.clock.Now()
			created = domain.Client{
				ID:           s.genID.Generate(),
				ClientID:     clientID,
				Name:         name,
				Type:         clientType,
				Industry:     strings.TrimSpace(req.Industry),
				Status:       domain.StatusActive,
				PrimaryEmail: strings.TrimSpace(req.PrimaryEmail),
				PhoneNumber:  strings.TrimSpace(req.PhoneNumber),
				PaymentTerms: strings.TrimSpace(req.PaymentTerms),
				Currency:     currency,
				Notes:        strings.TrimSpace(req.Notes),
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			return s.repo.Insert(ctx, tx, &created)
		})
		if err == nil {
			return created, nil
		}
		if db.IsDuplicateKeyErr(err) {
			s.metrics.RecordIdentifierConflict("client")
			s.log.Warn("client id conflict, retrying",
				zap.String("prefix", prefix),
				zap.Int("attempt", i+1),
			)
			continue
		}
		return domain.Client{}, err
	}
	return domain.Client{}, identifier.ErrIdentifierConflict
}

func (s *Service) GetByID(ctx context.Context, req domain.GetClientRequest) (domain.Client, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Client{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByClientID(ctx context.Context, clientID string) (domain.Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return domain.Client{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByClientID(ctx, s.db, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListClientRequest) ([]domain.Client, error) {
	items, err := s.repo.List(ctx, s.db, domain.ListClientFilter{
		Status: req.Status,
		Type:   req.Type,
		Name:   strings.TrimSpace(req.Name),
	})
	if err != nil {
		return nil, err
	}

	clients := make([]domain.Client, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		clients = append(clients, *item)
	}
	return clients, nil
}

func (s *Service) SetStatus(ctx context.Context, id string, status domain.ClientStatus) (domain.Client, error) {
	switch status {
	case domain.StatusActive, domain.StatusInactive, domain.StatusArchived:
	default:
		return domain.Client{}, domain.ErrInvalidStatus
	}

	parsed, err := s.parseID(id)
	if err != nil {
		return domain.Client{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Client{}, err
	}
	if item == nil {
		return domain.Client{}, domain.ErrNotFound
	}

	item.Status = status
	item.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return domain.Client{}, err
	}
	return *item, nil
}

// Delete removes the client together with its contact persons. Jobs keep a
// nullable client reference, so history survives the removal.
func (s *Service) Delete(ctx context.Context, id string) error {
	parsed, err := s.parseID(id)
	if err != nil {
		return err
	}

	item, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return err
	}
	if item == nil {
		return domain.ErrNotFound
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.repo.Delete(ctx, tx, parsed)
	})
}

func (s *Service) AddContact(ctx context.Context, req domain.AddContactRequest) (domain.ContactPerson, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ContactPerson{}, domain.ErrInvalidName
	}

	clientID, err := s.parseID(req.ClientID)
	if err != nil {
		return domain.ContactPerson{}, err
	}

	client, err := s.repo.FindByID(ctx, s.db, clientID)
	if err != nil {
		return domain.ContactPerson{}, err
	}
	if client == nil {
		return domain.ContactPerson{}, domain.ErrNotFound
	}

	contact := domain.ContactPerson{
		ID:             s.genID.Generate(),
		ClientID:       clientID,
		Name:           name,
		Position:       strings.TrimSpace(req.Position),
		PrimaryContact: req.PrimaryContact,
		DirectEmail:    strings.TrimSpace(req.DirectEmail),
		Phone:          strings.TrimSpace(req.Phone),
		CreatedAt:      s.clock.Now(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Only one contact per client may be primary.
		if contact.PrimaryContact {
			if err := s.repo.ClearPrimaryContact(ctx, tx, clientID); err != nil {
				return err
			}
		}
		return s.repo.InsertContact(ctx, tx, &contact)
	})
	if err != nil {
		return domain.ContactPerson{}, err
	}
	return contact, nil
}

func (s *Service) Contacts(ctx context.Context, clientID string) ([]domain.ContactPerson, error) {
	parsed, err := s.parseID(clientID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListContacts(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}

	contacts := make([]domain.ContactPerson, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		contacts = append(contacts, *item)
	}
	return contacts, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
