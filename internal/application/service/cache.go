package service

import (
	"context"

	"github.com/khoahotran/user-directory/internal/domain/user"
)

// UserListCache holds the redacted user collection served by GET /users.
// Entries belong to a generation. Invalidate starts a new one, and a list
// stored under an older generation is never served.
type UserListCache interface {
	// Get reports ok=false on a miss. gen is the generation current at the
	// time of the call; a list read from the store afterwards is stored with
	// Set under that gen.
	Get(ctx context.Context) (users []*user.User, gen int64, ok bool, err error)
	Set(ctx context.Context, gen int64, users []*user.User) error
	Invalidate(ctx context.Context) error
}
