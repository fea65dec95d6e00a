package shop

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Businesses exposes the storefront store
type Businesses interface {
	GetByID(ctx context.Context, id string) (*Business, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*Business, error)
	List(ctx context.Context) ([]*Business, error)
	Create(ctx context.Context, record *Business) (*Business, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Business) (*Business, error)
	Update(ctx context.Context, record *Business) (*Business, error)
}

// Products exposes the catalog store. Reads used by ownership checks load the
// business relation so the owning user resolves transitively.
type Products interface {
	GetWithOwner(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Create(ctx context.Context, record *Product) (*Product, error)
	Update(ctx context.Context, record *Product) (*Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	Businesses() Businesses
	Products() Products
}

type businesses struct {
	repository.Repository[*Business]
	db *bun.DB
}

func NewBusinessesRepository(db *bun.DB) Businesses {
	handlers := repository.ModelHandlers[*Business]{
		NewRecord: func() *Business { return &Business{} },
		GetID: func(record *Business) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Business, id uuid.UUID) {
			record.ID = id
		},
	}
	return &businesses{
		Repository: repository.NewRepository(db, handlers),
		db:         db,
	}
}

func (b *businesses) GetByID(ctx context.Context, id string) (*Business, error) {
	record := &Business{}
	err := b.db.NewSelect().Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id})
		}
		return nil, err
	}
	return record, nil
}

func (b *businesses) GetByOwner(ctx context.Context, ownerID uuid.UUID) (*Business, error) {
	record := &Business{}
	err := b.db.NewSelect().Model(record).
		Where("?TableAlias.owner_id = ?", ownerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"owner_id": ownerID.String()})
		}
		return nil, err
	}
	return record, nil
}

func (b *businesses) List(ctx context.Context) ([]*Business, error) {
	var records []*Business
	if err := b.db.NewSelect().Model(&records).Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

func (b *businesses) Create(ctx context.Context, record *Business) (*Business, error) {
	return b.CreateTx(ctx, b.db, record)
}

func (b *businesses) CreateTx(ctx context.Context, tx bun.IDB, record *Business) (*Business, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return b.Repository.CreateTx(ctx, tx, record)
}

func (b *businesses) Update(ctx context.Context, record *Business) (*Business, error) {
	return b.Repository.Update(ctx, record, repository.UpdateByID(record.ID.String()))
}

type products struct {
	repository.Repository[*Product]
	db *bun.DB
}

func NewProductsRepository(db *bun.DB) Products {
	handlers := repository.ModelHandlers[*Product]{
		NewRecord: func() *Product { return &Product{} },
		GetID: func(record *Product) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Product, id uuid.UUID) {
			record.ID = id
		},
	}
	return &products{
		Repository: repository.NewRepository(db, handlers),
		db:         db,
	}
}

func (p *products) GetWithOwner(ctx context.Context, id string) (*Product, error) {
	record := &Product{}
	err := p.db.NewSelect().Model(record).
		Relation("Business").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id})
		}
		return nil, err
	}
	return record, nil
}

func (p *products) List(ctx context.Context) ([]*Product, error) {
	var records []*Product
	if err := p.db.NewSelect().Model(&records).Relation("Business").Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}

func (p *products) Create(ctx context.Context, record *Product) (*Product, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.RefreshDiscount()
	return p.Repository.Create(ctx, record)
}

func (p *products) Update(ctx context.Context, record *Product) (*Product, error) {
	record.RefreshDiscount()
	return p.Repository.Update(ctx, record, repository.UpdateByID(record.ID.String()))
}

func (p *products) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := p.db.NewDelete().Model((*Product)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	return err
}

type mngr struct {
	db         *bun.DB
	users      Users
	businesses Businesses
	products   Products
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:         db,
		users:      NewUsersRepository(db),
		businesses: NewBusinessesRepository(db),
		products:   NewProductsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.businesses == nil {
		return errors.New("repository businesses should be initialized")
	}

	if m.products == nil {
		return errors.New("repository products should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Businesses() Businesses {
	return m.businesses
}

func (m mngr) Products() Products {
	return m.products
}
