package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// UserService owns the cache-aside read path and the soft delete policy
// for users. It is the only component that writes to the user cache, so
// the invalidate-on-write rule lives in exactly one place.
type UserService struct {
	repo   RepositoryManager
	cache  UserCache
	logger Logger
}

var _ UserResolver = (*UserService)(nil)

// NewUserService creates a new UserService
func NewUserService(repo RepositoryManager, cache UserCache) *UserService {
	return &UserService{
		repo:   repo,
		cache:  cache,
		logger: defLogger{},
	}
}

func (s *UserService) WithLogger(logger Logger) *UserService {
	s.logger = logger
	return s
}

// GetByID resolves a user, cache first, store on miss. A cache hit is used
// directly without re-verifying against the store. Soft deleted users are
// indistinguishable from absent ones, whichever source produced them.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	cached, err := s.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user := cached
	if user == nil {
		user, err = s.repo.Users().GetByID(ctx, id.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil, ErrUserNotFound
			}
			return nil, wrapUnavailable(err, "user store read failed")
		}
	}

	if user.Deleted() {
		s.logger.Warn("attempt to fetch soft deleted user", "id", id.String())
		return nil, ErrUserNotFound
	}

	// Populate after the liveness check so deleted users are never cached.
	if cached == nil {
		if err := s.cache.Put(ctx, user); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// GetByUsername resolves a user by its alternate key. The cache is keyed
// by id only, so this always reads the store.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*User, error) {
	user, err := s.repo.Users().GetByUsername(ctx, username)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, wrapUnavailable(err, "user store read failed")
	}

	if user.Deleted() {
		s.logger.Warn("attempt to fetch soft deleted user", "username", username)
		return nil, ErrUserNotFound
	}

	return user, nil
}

// List returns a page of live users ordered by creation time.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]*User, error) {
	records, err := s.repo.Users().ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, wrapUnavailable(err, "user store read failed")
	}
	return records, nil
}

// Create validates and registers a new user, hashing the password before
// it touches the store. The fresh id cannot have a live cache entry, but
// invalidating anyway guards against a recycled identifier.
func (s *UserService) Create(ctx context.Context, data UserCreateData) (uuid.UUID, error) {
	if err := data.Validate(); err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid user data").
			WithCode(goerrors.CodeBadRequest)
	}

	hash, err := HashPassword(data.Password)
	if err != nil {
		return uuid.Nil, err
	}

	user := &User{
		Username:     data.Username,
		Email:        data.Email,
		PasswordHash: hash,
		FirstName:    data.FirstName,
		LastName:     data.LastName,
		Gender:       data.Gender,
		Company:      data.Company,
		JobTitle:     data.JobTitle,
		JoinDate:     data.JoinDate,
		DateOfBirth:  data.DateOfBirth,
	}

	user, err = s.repo.Users().Register(ctx, user)
	if err != nil {
		if IsDuplicateIdentity(err) {
			return uuid.Nil, err
		}
		return uuid.Nil, wrapUnavailable(err, "user store write failed")
	}

	if err := s.cache.Invalidate(ctx, user.ID); err != nil {
		return uuid.Nil, err
	}

	return user.ID, nil
}

// Patch applies the non-nil fields of data to a copy of user, writes it
// through the store, and then removes the cache entry. The entry is removed
// rather than updated so a concurrent reader can only repopulate from the
// store. user itself is never mutated, so a failed write cannot leave it
// diverged from the row.
func (s *UserService) Patch(ctx context.Context, user *User, data UserPatchData) (uuid.UUID, error) {
	if err := data.Validate(); err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid patch data").
			WithCode(goerrors.CodeBadRequest)
	}

	patched := *user
	if err := applyUserPatch(&patched, data); err != nil {
		return uuid.Nil, err
	}

	record, err := s.repo.Users().Patch(ctx, &patched)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return uuid.Nil, ErrUserNotFound
		}
		if IsDuplicateIdentity(err) {
			return uuid.Nil, err
		}
		return uuid.Nil, wrapUnavailable(err, "user store write failed")
	}

	if err := s.cache.Invalidate(ctx, record.ID); err != nil {
		return uuid.Nil, err
	}

	return record.ID, nil
}

// SoftDelete marks the user deleted in the store, then removes the cache
// entry. The row is never physically removed.
func (s *UserService) SoftDelete(ctx context.Context, user *User) (uuid.UUID, error) {
	if err := s.repo.Users().SoftDelete(ctx, user); err != nil {
		if repository.IsRecordNotFound(err) {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, wrapUnavailable(err, "user store write failed")
	}

	if err := s.cache.Invalidate(ctx, user.ID); err != nil {
		return uuid.Nil, err
	}

	return user.ID, nil
}

// applyUserPatch merges the explicit patch structure into user, field by
// field. Only non-nil fields apply; a password change re-hashes.
func applyUserPatch(user *User, data UserPatchData) error {
	if data.Username != nil {
		user.Username = *data.Username
	}
	if data.Email != nil {
		user.Email = *data.Email
	}
	if data.Password != nil {
		hash, err := HashPassword(*data.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}
	if data.FirstName != nil {
		user.FirstName = *data.FirstName
	}
	if data.LastName != nil {
		user.LastName = *data.LastName
	}
	if data.Gender != nil {
		user.Gender = *data.Gender
	}
	if data.Company != nil {
		user.Company = *data.Company
	}
	if data.JobTitle != nil {
		user.JobTitle = *data.JobTitle
	}
	if data.JoinDate != nil {
		user.JoinDate = data.JoinDate
	}
	if data.DateOfBirth != nil {
		user.DateOfBirth = data.DateOfBirth
	}

	now := time.Now()
	user.UpdatedAt = &now

	return nil
}
