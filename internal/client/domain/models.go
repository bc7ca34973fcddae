package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type ClientType string

const (
	TypeCompany    ClientType = "company"
	TypeIndividual ClientType = "individual"
)

type ClientStatus string

const (
	StatusActive   ClientStatus = "active"
	StatusInactive ClientStatus = "inactive"
	StatusArchived ClientStatus = "archived"
)

type Client struct {
	ID           snowflake.ID     `gorm:"primaryKey" json:"id"`
	ClientID     string           `gorm:"column:client_id;not null;uniqueIndex" json:"client_id"`
	Name         string           `gorm:"not null" json:"name"`
	Type         ClientType       `gorm:"not null;default:'company'" json:"type"`
	Industry     string           `gorm:"not null;default:''" json:"industry,omitempty"`
	Status       ClientStatus     `gorm:"not null;default:'active'" json:"status"`
	PrimaryEmail string           `gorm:"not null;default:''" json:"primary_email,omitempty"`
	PhoneNumber  string           `gorm:"not null;default:''" json:"phone_number,omitempty"`
	PaymentTerms string           `gorm:"not null;default:''" json:"payment_terms,omitempty"`
	Currency     string           `gorm:"not null;default:'CHF'" json:"currency"`
	DiscountRate *decimal.Decimal `gorm:"type:decimal(5,2)" json:"discount_rate,omitempty"`
	CreditLimit  *decimal.Decimal `gorm:"type:decimal(10,2)" json:"credit_limit,omitempty"`
	Notes        string           `gorm:"not null;default:''" json:"notes,omitempty"`
	CreatedAt    time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

type ContactPerson struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	ClientID       snowflake.ID `gorm:"column:client_id;not null;index" json:"client_id"`
	Name           string       `gorm:"not null" json:"name"`
	Position       string       `gorm:"not null;default:''" json:"position,omitempty"`
	PrimaryContact bool         `gorm:"not null;default:false" json:"primary_contact"`
	DirectEmail    string       `gorm:"not null;default:''" json:"direct_email,omitempty"`
	Phone          string       `gorm:"not null;default:''" json:"phone,omitempty"`
	Notes          string       `gorm:"not null;default:''" json:"notes,omitempty"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ContactPerson) TableName() string { return "contact_persons" }
