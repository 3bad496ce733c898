package user

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/khoahotran/user-directory/internal/domain/user"
	"github.com/khoahotran/user-directory/pkg/apperror"
)

type memoryRepo struct {
	mu      sync.Mutex
	byEmail map[string]*user.User
	order   []*user.User

	findErr   error
	createErr error
	// hideFromFind makes FindByEmail miss, to open the check-then-act window.
	hideFromFind bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: map[string]*user.User{}}
}

func (r *memoryRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	if r.hideFromFind {
		return nil, nil
	}
	u, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *memoryRepo) Create(_ context.Context, draft *user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, ok := r.byEmail[draft.Email]; ok {
		return nil, user.ErrDuplicateKey
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	cp := *draft
	cp.CreatedAt = time.Now().UTC()
	r.byEmail[cp.Email] = &cp
	r.order = append(r.order, &cp)
	out := cp
	return &out, nil
}

func (r *memoryRepo) List(_ context.Context) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*user.User, len(r.order))
	copy(out, r.order)
	return out, nil
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

type fakeUploader struct {
	mu       sync.Mutex
	url      string
	err      error
	wait     bool
	calls    int
	received []byte
	deleted  []string
}

func (u *fakeUploader) Upload(ctx context.Context, file io.Reader, publicID string) (string, error) {
	u.mu.Lock()
	u.calls++
	u.mu.Unlock()

	if u.wait {
		<-ctx.Done()
		return "", apperror.NewUpload("upload aborted", ctx.Err())
	}
	b, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	u.received = b
	u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	return u.url + "/" + publicID, nil
}

func (u *fakeUploader) Delete(_ context.Context, publicID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleted = append(u.deleted, publicID)
	return nil
}

func (u *fakeUploader) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

func (u *fakeUploader) deletedIDs() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.deleted...)
}

type failingHasher struct {
	err error
}

func (h failingHasher) Hash(context.Context, string) (string, error) {
	return "", h.err
}

func (h failingHasher) Verify(string, string) bool {
	return false
}

type fakeCache struct {
	mu          sync.Mutex
	users       []*user.User
	warm        bool
	gen         int64
	storedGen   int64
	getErr      error
	invalidated int
	sets        int
}

func (c *fakeCache) Get(context.Context) ([]*user.User, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, 0, false, c.getErr
	}
	if !c.warm || c.storedGen != c.gen {
		return nil, c.gen, false, nil
	}
	return c.users, c.gen, true, nil
}

func (c *fakeCache) Set(_ context.Context, gen int64, users []*user.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = users
	c.storedGen = gen
	c.warm = true
	c.sets++
	return nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.warm = false
	c.users = nil
	c.invalidated++
	return nil
}

// listHookRepo runs afterList once, between reading the store and returning.
type listHookRepo struct {
	*memoryRepo
	afterList func()
}

func (r *listHookRepo) List(ctx context.Context) ([]*user.User, error) {
	users, err := r.memoryRepo.List(ctx)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return users, err
}

type chanPublisher struct {
	published chan *user.User
	err       error
}

func newChanPublisher() *chanPublisher {
	return &chanPublisher{published: make(chan *user.User, 8)}
}

func (p *chanPublisher) PublishUserRegistered(_ context.Context, u *user.User) error {
	p.published <- u
	return p.err
}

var errBoom = errors.New("boom")
