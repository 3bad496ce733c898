package user

import (
	"context"

	"github.com/khoahotran/user-directory/internal/domain/user"
)

// UniquenessGuard is an advisory pre-check. Two concurrent registrations can
// both pass it; the repository's unique constraint is what actually decides.
type UniquenessGuard struct {
	repo user.Repository
}

func NewUniquenessGuard(repo user.Repository) *UniquenessGuard {
	return &UniquenessGuard{repo: repo}
}

func (g *UniquenessGuard) Exists(ctx context.Context, email string) (bool, error) {
	u, err := g.repo.FindByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	return u != nil, nil
}
