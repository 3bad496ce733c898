package service

import "context"

type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}
