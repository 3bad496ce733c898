package user

import (
	"context"

	"go.uber.org/zap"

	"github.com/khoahotran/user-directory/internal/application/service"
	"github.com/khoahotran/user-directory/internal/domain/user"
	"github.com/khoahotran/user-directory/pkg/logger"
)

type ListUsersUseCase struct {
	repo   user.Repository
	cache  service.UserListCache
	logger logger.Logger
}

// NewListUsersUseCase accepts a nil cache.
func NewListUsersUseCase(repo user.Repository, cache service.UserListCache, log logger.Logger) *ListUsersUseCase {
	return &ListUsersUseCase{repo: repo, cache: cache, logger: log}
}

type ListUsersOutput struct {
	Users []*user.User
}

func (uc *ListUsersUseCase) Execute(ctx context.Context) (*ListUsersOutput, error) {
	ctx, span := tracer.Start(ctx, "ListUsers")
	defer span.End()

	// gen is read before the store so a registration committed in between
	// bumps it and the write below lands under a dead generation.
	var gen int64
	fill := false
	if uc.cache != nil {
		users, g, ok, err := uc.cache.Get(ctx)
		switch {
		case err != nil:
			uc.logger.Warn("User list cache read failed, falling back to store", zap.Error(err))
		case ok:
			return &ListUsersOutput{Users: users}, nil
		default:
			gen, fill = g, true
		}
	}

	users, err := uc.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, asStorageError("failed to list users", err)
	}

	if fill {
		if err := uc.cache.Set(ctx, gen, users); err != nil {
			uc.logger.Warn("User list cache write failed", zap.Error(err))
		}
	}
	return &ListUsersOutput{Users: users}, nil
}
