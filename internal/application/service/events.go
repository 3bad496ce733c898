package service

import (
	"context"

	"github.com/khoahotran/user-directory/internal/domain/user"
)

type UserEventPublisher interface {
	PublishUserRegistered(ctx context.Context, u *user.User) error
}
