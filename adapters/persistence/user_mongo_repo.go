package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/khoahotran/user-directory/internal/domain/user"
	"github.com/khoahotran/user-directory/pkg/apperror"
	"github.com/khoahotran/user-directory/pkg/logger"
)

type userDocument struct {
	ID           string    `bson:"_id"`
	FirstName    string    `bson:"first_name"`
	LastName     string    `bson:"last_name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	PhoneNumber  string    `bson:"phone_number"`
	AvatarURL    *string   `bson:"avatar_url,omitempty"`
	CreatedAt    time.Time `bson:"created_at"`
}

func toUserDocument(u *user.User) userDocument {
	return userDocument{
		ID:           u.ID.String(),
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		PhoneNumber:  u.PhoneNumber,
		AvatarURL:    u.AvatarURL,
		CreatedAt:    u.CreatedAt,
	}
}

func (d userDocument) toDomain() (*user.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", d.ID, err)
	}
	return &user.User{
		ID:           id,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		PhoneNumber:  d.PhoneNumber,
		AvatarURL:    d.AvatarURL,
		CreatedAt:    d.CreatedAt,
	}, nil
}

type mongoUserRepo struct {
	coll   *mongo.Collection
	logger logger.Logger
}

// NewMongoUserRepo ensures the unique index on email before returning;
// that index is what makes Create race-safe.
func NewMongoUserRepo(ctx context.Context, db *mongo.Database, collection string, log logger.Logger) (user.Repository, error) {
	coll := db.Collection(collection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_email_key"),
	})
	if err != nil {
		return nil, fmt.Errorf("ensure unique email index: %w", err)
	}
	return &mongoUserRepo{coll: coll, logger: log}, nil
}

func (r *mongoUserRepo) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, apperror.NewStorage("error when query user", err)
	}
	u, err := doc.toDomain()
	if err != nil {
		return nil, apperror.NewStorage("failed to decode user document", err)
	}
	return u, nil
}

func (r *mongoUserRepo) Create(ctx context.Context, draft *user.User) (*user.User, error) {
	if err := draft.Validate(); err != nil {
		return nil, apperror.NewStorage("refusing to persist invalid user", err)
	}

	created := *draft
	// BSON dates carry millisecond precision.
	created.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.coll.InsertOne(ctx, toUserDocument(&created)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("insert user %s: %w", draft.Email, user.ErrDuplicateKey)
		}
		return nil, apperror.NewStorage("failed to save user", err)
	}
	return &created, nil
}

func (r *mongoUserRepo) List(ctx context.Context) ([]*user.User, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, apperror.NewStorage("failed to query users", err)
	}
	defer cur.Close(ctx)

	users := make([]*user.User, 0)
	for cur.Next(ctx) {
		var doc userDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, apperror.NewStorage("failed to decode user document", err)
		}
		u, err := doc.toDomain()
		if err != nil {
			r.logger.Warn("Skipping user document with invalid id", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		users = append(users, u)
	}
	if err := cur.Err(); err != nil {
		return nil, apperror.NewStorage("error iterating user documents", err)
	}
	return users, nil
}
