package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/makerbench/makerbench/internal/client/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Create(client).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&client).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

func (r *repo) FindByClientID(ctx context.Context, db *gorm.DB, clientID string) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).
		Where("client_id = ?", clientID).
		First(&client).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListClientFilter) ([]*domain.Client, error) {
	var clients []*domain.Client
	stmt := db.WithContext(ctx).Model(&domain.Client{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	err := stmt.
		Order("client_id asc").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Save(client).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	if err := db.WithContext(ctx).
		Where("client_id = ?", id).
		Delete(&domain.ContactPerson{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Client{}).Error
}

func (r *repo) InsertContact(ctx context.Context, db *gorm.DB, contact *domain.ContactPerson) error {
	return db.WithContext(ctx).Create(contact).Error
}

func (r *repo) ListContacts(ctx context.Context, db *gorm.DB, clientID snowflake.ID) ([]*domain.ContactPerson, error) {
	var contacts []*domain.ContactPerson
	err := db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("primary_contact desc, name asc").
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *repo) ClearPrimaryContact(ctx context.Context, db *gorm.DB, clientID snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.ContactPerson{}).
		Where("client_id = ? AND primary_contact = ?", clientID, true).
		Update("primary_contact", false).Error
}
