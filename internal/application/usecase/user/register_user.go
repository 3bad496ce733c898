package user

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khoahotran/user-directory/internal/application/service"
	"github.com/khoahotran/user-directory/internal/domain/user"
	"github.com/khoahotran/user-directory/pkg/apperror"
	"github.com/khoahotran/user-directory/pkg/logger"
)

var tracer = otel.Tracer("user_usecase")

type RegistrationState string

const (
	StateCheckingUniqueness RegistrationState = "checking_uniqueness"
	StateUploadingAvatar    RegistrationState = "uploading_avatar"
	StateHashingPassword    RegistrationState = "hashing_password"
	StatePersisting         RegistrationState = "persisting"
	StateRejected           RegistrationState = "rejected"
	StateCompleted          RegistrationState = "completed"
	StateFailed             RegistrationState = "failed"
)

// StateOf maps the result of RegisterUserUseCase.Execute to its terminal state.
func StateOf(err error) RegistrationState {
	switch {
	case err == nil:
		return StateCompleted
	case errors.Is(err, apperror.ErrConflict):
		return StateRejected
	default:
		return StateFailed
	}
}

const avatarCleanupTimeout = 10 * time.Second

type RegisterUserUseCase struct {
	guard     *UniquenessGuard
	repo      user.Repository
	uploader  service.AvatarUploader
	hasher    service.PasswordHasher
	cache     service.UserListCache
	publisher service.UserEventPublisher
	logger    logger.Logger
}

// NewRegisterUserUseCase wires the registration pipeline. cache and publisher
// may be nil.
func NewRegisterUserUseCase(
	repo user.Repository,
	uploader service.AvatarUploader,
	hasher service.PasswordHasher,
	cache service.UserListCache,
	publisher service.UserEventPublisher,
	log logger.Logger,
) *RegisterUserUseCase {
	return &RegisterUserUseCase{
		guard:     NewUniquenessGuard(repo),
		repo:      repo,
		uploader:  uploader,
		hasher:    hasher,
		cache:     cache,
		publisher: publisher,
		logger:    log,
	}
}

type AvatarFile struct {
	Content  io.Reader
	Filename string
}

type RegisterUserInput struct {
	FirstName   string
	LastName    string
	Email       string
	Password    string
	PhoneNumber string
	// Avatar is nil when no image was attached.
	Avatar *AvatarFile
}

type RegisterUserOutput struct {
	User *user.User
}

func (uc *RegisterUserUseCase) Execute(ctx context.Context, input RegisterUserInput) (*RegisterUserOutput, error) {
	ctx, span := tracer.Start(ctx, "RegisterUser")
	defer span.End()

	email := user.NormalizeEmail(input.Email)
	l := uc.logger.With(zap.String("email", email), zap.Bool("has_avatar", input.Avatar != nil))

	if email == "" || input.Password == "" {
		return nil, uc.finish(span, l, apperror.NewInvalidInput("email and password are required", nil))
	}

	span.AddEvent(string(StateCheckingUniqueness))
	exists, err := uc.guard.Exists(ctx, email)
	if err != nil {
		return nil, uc.finish(span, l, asStorageError("uniqueness pre-check failed", err))
	}
	if exists {
		return nil, uc.finish(span, l, apperror.NewDuplicateEmail(email, nil))
	}

	draft := &user.User{
		ID:          uuid.New(),
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Email:       email,
		PhoneNumber: input.PhoneNumber,
	}
	publicID := draft.ID.String()

	// Upload and hashing are independent; the first failure cancels the other.
	var avatarURL, hash string
	g, gctx := errgroup.WithContext(ctx)
	if input.Avatar != nil {
		span.AddEvent(string(StateUploadingAvatar))
		g.Go(func() error {
			url, err := uc.uploader.Upload(gctx, input.Avatar.Content, publicID)
			if err != nil {
				return asUploadError(err)
			}
			if url == "" {
				return apperror.NewUpload("CDN returned an empty URL", nil)
			}
			avatarURL = url
			return nil
		})
	}
	span.AddEvent(string(StateHashingPassword))
	g.Go(func() error {
		h, err := uc.hasher.Hash(gctx, input.Password)
		if err != nil {
			return asHashError(err)
		}
		hash = h
		return nil
	})
	if err := g.Wait(); err != nil {
		// A cancelled upload may still have landed at the CDN.
		if input.Avatar != nil {
			uc.discardAvatar(l, publicID)
		}
		return nil, uc.finish(span, l, err)
	}

	draft.PasswordHash = hash
	if avatarURL != "" {
		draft.AvatarURL = &avatarURL
	}

	span.AddEvent(string(StatePersisting))
	created, err := uc.repo.Create(ctx, draft)
	if err != nil {
		if avatarURL != "" {
			uc.discardAvatar(l, publicID)
		}
		if errors.Is(err, user.ErrDuplicateKey) {
			return nil, uc.finish(span, l, apperror.NewDuplicateEmail(email, err))
		}
		return nil, uc.finish(span, l, asStorageError("failed to create user", err))
	}

	if uc.cache != nil {
		if err := uc.cache.Invalidate(ctx); err != nil {
			l.Warn("Failed to invalidate user list cache", zap.Error(err))
		}
	}

	if uc.publisher != nil {
		go func() {
			if err := uc.publisher.PublishUserRegistered(context.Background(), created); err != nil {
				uc.logger.Error("Failed to publish Kafka 'user.registered' event", err, zap.String("user_id", created.ID.String()))
			}
		}()
	}

	span.SetAttributes(attribute.String("user_id", created.ID.String()))
	uc.finish(span, l.With(zap.String("user_id", created.ID.String())), nil)
	return &RegisterUserOutput{User: created}, nil
}

func (uc *RegisterUserUseCase) finish(span trace.Span, l logger.Logger, err error) error {
	state := StateOf(err)
	span.SetAttributes(attribute.String("registration.state", string(state)))

	switch state {
	case StateCompleted:
		l.Info("User registered", zap.String("state", string(state)))
	case StateRejected:
		l.Info("Registration rejected", zap.String("state", string(state)))
	default:
		span.RecordError(err)
		if errors.Is(err, apperror.ErrInvalidInput) {
			l.Warn("Registration input rejected", zap.String("state", string(state)), zap.Error(err))
		} else {
			l.Error("Registration failed", err, zap.String("state", string(state)))
		}
	}
	return err
}

// discardAvatar removes an uploaded avatar whose user was never persisted.
func (uc *RegisterUserUseCase) discardAvatar(l logger.Logger, publicID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), avatarCleanupTimeout)
		defer cancel()
		if err := uc.uploader.Delete(ctx, publicID); err != nil {
			l.Warn("Failed to delete orphaned avatar", zap.String("public_id", publicID), zap.Error(err))
		}
	}()
}

func asUploadError(err error) error {
	if errors.Is(err, apperror.ErrUpload) {
		return err
	}
	return apperror.NewUpload("avatar upload failed", err)
}

func asHashError(err error) error {
	if errors.Is(err, apperror.ErrHash) {
		return err
	}
	return apperror.NewHash("password hashing failed", err)
}

func asStorageError(details string, err error) error {
	if errors.Is(err, apperror.ErrStorage) {
		return err
	}
	return apperror.NewStorage(details, err)
}
