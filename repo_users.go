package shop

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MarkVerifiedSQL flips the verified flag exactly once. The guard on
// is_verified makes the transition idempotent and race-safe: a second visit,
// or a concurrent one, matches zero rows instead of re-applying the write.
var MarkVerifiedSQL = `UPDATE "users" AS "usr"
SET
	"is_verified" = TRUE
WHERE
	"usr"."deleted_at" IS NULL
AND "usr"."is_verified" = FALSE
AND (
	"usr"."id" = ?
) RETURNING *;`

// Users narrows the generic repository to the operations the auth and
// verification flows actually perform. GetByIdentifier deliberately drops the
// criteria variadic so the store can double as the UserTracker collaborator.
type Users interface {
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)

	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	MarkVerified(ctx context.Context, id uuid.UUID) (bool, error)
	MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error)

	SetProfileImage(ctx context.Context, id uuid.UUID, objectKey string) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users       = (*users)(nil)
	_ UserTracker = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

// GetByIdentifier resolves a user by id, email, or username, trying the most
// specific column the identifier can stand for first.
func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	return a.getByIdentifierTx(ctx, a.db, identifier)
}

func (a *users) getByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &User{}
		err := tx.NewSelect().Model(record).
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) MarkVerified(ctx context.Context, id uuid.UUID) (bool, error) {
	return a.MarkVerifiedTx(ctx, a.db, id)
}

// MarkVerifiedTx reports whether the flag was flipped by this call. False
// with a nil error means the account was already verified.
func (a *users) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (bool, error) {
	res, err := a.Repository.RawTx(ctx, tx, MarkVerifiedSQL, id.String())
	if err != nil {
		return false, err
	}

	return len(res) > 0, nil
}

func (a *users) SetProfileImage(ctx context.Context, id uuid.UUID, objectKey string) error {
	_, err := a.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"profile_image" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, objectKey, id).Exec(ctx)

	return err
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, user)
}

func (a *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(user.ID.String()),
	}

	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	now := time.Now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.UpdateTx(ctx, tx, record, criteria...)

	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleMember
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}
