package domain

import (
	"context"
	"errors"
)

type CreateClientRequest struct {
	Name         string
	Type         ClientType
	Industry     string
	PrimaryEmail string
	PhoneNumber  string
	PaymentTerms string
	Currency     string
	Notes        string
}

type ListClientRequest struct {
	Status ClientStatus
	Type   ClientType
	Name   string
}

type ListClientFilter struct {
	Status ClientStatus
	Type   ClientType
	Name   string
}

type GetClientRequest struct {
	ID string
}

type AddContactRequest struct {
	ClientID       string
	Name           string
	Position       string
	PrimaryContact bool
	DirectEmail    string
	Phone          string
}

type Service interface {
	Create(context.Context, CreateClientRequest) (Client, error)
	GetByID(context.Context, GetClientRequest) (Client, error)
	GetByClientID(ctx context.Context, clientID string) (Client, error)
	List(context.Context, ListClientRequest) ([]Client, error)
	SetStatus(ctx context.Context, id string, status ClientStatus) (Client, error)
	Delete(ctx context.Context, id string) error

	AddContact(context.Context, AddContactRequest) (ContactPerson, error)
	Contacts(ctx context.Context, clientID string) ([]ContactPerson, error)
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidType   = errors.New("invalid_type")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
