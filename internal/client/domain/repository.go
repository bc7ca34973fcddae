package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Client, error)
	FindByClientID(ctx context.Context, db *gorm.DB, clientID string) (*Client, error)
	List(ctx context.Context, db *gorm.DB, filter ListClientFilter) ([]*Client, error)
	Update(ctx context.Context, db *gorm.DB, client *Client) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertContact(ctx context.Context, db *gorm.DB, contact *ContactPerson) error
	ListContacts(ctx context.Context, db *gorm.DB, clientID snowflake.ID) ([]*ContactPerson, error)
	ClearPrimaryContact(ctx context.Context, db *gorm.DB, clientID snowflake.ID) error
}
