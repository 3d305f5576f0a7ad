package identity

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the durable store for the User aggregate. Reads are scoped to
// live rows; soft deleted users surface as record-not-found.
type Users interface {
	repository.Repository[*User]

	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	Patch(ctx context.Context, user *User) (*User, error)
	PatchTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)

	SoftDelete(ctx context.Context, user *User) error
	SoftDeleteTx(ctx context.Context, tx bun.IDB, user *User) error

	ListUsers(ctx context.Context, limit, offset int) ([]*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
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
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.GetByUsernameTx(ctx, a.db, username)
}

func (a *users) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", strings.TrimSpace(username)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isEmptyResult(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"username": username,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)

	record, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "username or email already taken").
				WithTextCode(TextCodeDuplicateIdentity).
				WithCode(goerrors.CodeConflict)
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Patch(ctx context.Context, user *User) (*User, error) {
	return a.PatchTx(ctx, a.db, user)
}

func (a *users) PatchTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	record, err := a.Repository.UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String()))
	if err != nil {
		if isConstraintViolation(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "username or email already taken").
				WithTextCode(TextCodeDuplicateIdentity).
				WithCode(goerrors.CodeConflict)
		}
		return nil, err
	}

	return record, nil
}

func (a *users) SoftDelete(ctx context.Context, user *User) error {
	return a.SoftDeleteTx(ctx, a.db, user)
}

func (a *users) SoftDeleteTx(ctx context.Context, tx bun.IDB, user *User) error {
	// The soft_delete tag turns this into UPDATE users SET deleted_at = now.
	res, err := tx.NewDelete().
		Model(user).
		WherePK().
		Exec(ctx)

	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": user.ID.String(),
			})
	}

	now := time.Now()
	user.DeletedAt = &now

	return nil
}

// ListUsers is a limit/offset page of live users. The name avoids the base
// repository's criteria-driven List so both stay callable.
func (a *users) ListUsers(ctx context.Context, limit, offset int) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}

func isEmptyResult(err error) bool {
	if err == nil {
		return false
	}
	return repository.IsRecordNotFound(err) ||
		strings.Contains(err.Error(), "no rows in result set")
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
