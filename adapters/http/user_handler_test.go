package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	userUC "github.com/khoahotran/user-directory/internal/application/usecase/user"
	"github.com/khoahotran/user-directory/internal/domain/user"
	"github.com/khoahotran/user-directory/pkg/apperror"
	"github.com/khoahotran/user-directory/pkg/logger"
	"github.com/khoahotran/user-directory/pkg/password"
)

type stubRepo struct {
	mu        sync.Mutex
	users     []*user.User
	createErr error
}

func (r *stubRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (r *stubRepo) Create(_ context.Context, draft *user.User) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.users {
		if u.Email == draft.Email {
			return nil, user.ErrDuplicateKey
		}
	}
	cp := *draft
	cp.CreatedAt = time.Now().UTC()
	r.users = append(r.users, &cp)
	return &cp, nil
}

func (r *stubRepo) List(context.Context) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*user.User(nil), r.users...), nil
}

func (r *stubRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

type stubUploader struct {
	err      error
	received []byte
}

func (u *stubUploader) Upload(_ context.Context, file io.Reader, publicID string) (string, error) {
	b, _ := io.ReadAll(file)
	u.received = b
	if u.err != nil {
		return "", u.err
	}
	return "https://res.cloudinary.com/demo/image/upload/avatars/" + publicID, nil
}

func (u *stubUploader) Delete(context.Context, string) error { return nil }

type UserHandlerTestSuite struct {
	suite.Suite
	router   *gin.Engine
	repo     *stubRepo
	uploader *stubUploader
}

func TestUserHandler(t *testing.T) {
	suite.Run(t, new(UserHandlerTestSuite))
}

func (s *UserHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	log := logger.NewNopLogger()

	s.repo = &stubRepo{}
	s.uploader = &stubUploader{}
	hasher := password.NewBcryptHasher(bcrypt.MinCost)

	registerUC := userUC.NewRegisterUserUseCase(s.repo, s.uploader, hasher, nil, nil, log)
	listUC := userUC.NewListUsersUseCase(s.repo, nil, log)
	handler := NewUserHandler(registerUC, listUC, log)

	s.router = NewRouter(RouterConfig{Env: "test", CORSOrigins: []string{"*"}}, handler, log)
}

func (s *UserHandlerTestSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *UserHandlerTestSuite) postJSON(body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/users/create", bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *UserHandlerTestSuite) postMultipart(fields map[string]string, fileField, filename string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, filename)
		s.Require().NoError(err)
		_, _ = fw.Write(content)
	}
	s.Require().NoError(w.Close())

	req := httptest.NewRequest(http.MethodPost, "/users/create", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(req)
}

func assertRedacted(t *testing.T, body string) {
	t.Helper()
	assert.NotContains(t, body, "secret")
	assert.NotContains(t, body, "$2a$")
	assert.NotContains(t, strings.ToLower(body), "password")
}

func (s *UserHandlerTestSuite) Test_Create_JSON_ThenDuplicate() {
	rr := s.postJSON(gin.H{"email": "a@x.com", "password": "secret", "firstName": "Ada"})
	s.Equal(http.StatusCreated, rr.Code)
	assertRedacted(s.T(), rr.Body.String())

	var dto map[string]any
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &dto))
	s.Equal("a@x.com", dto["email"])
	s.Equal("Ada", dto["firstName"])
	s.NotContains(dto, "avatarUrl")

	rr = s.postJSON(gin.H{"email": "a@x.com", "password": "other"})
	s.Equal(http.StatusConflict, rr.Code)
	s.Contains(rr.Body.String(), "Sorry, an account with this email already exists.")
	s.Equal(1, s.repo.count())
}

func (s *UserHandlerTestSuite) Test_Create_URLEncoded() {
	form := url.Values{"email": {"form@x.com"}, "password": {"secret"}, "phoneNumber": {"555"}}
	req := httptest.NewRequest(http.MethodPost, "/users/create", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr := s.do(req)
	s.Equal(http.StatusCreated, rr.Code)
	s.Contains(rr.Body.String(), `"phoneNumber":"555"`)
}

func (s *UserHandlerTestSuite) Test_Create_MultipartWithAvatar() {
	rr := s.postMultipart(map[string]string{"email": "pic@x.com", "password": "secret"}, "avatar", "me.png", []byte("png-bytes"))
	s.Equal(http.StatusCreated, rr.Code)
	assertRedacted(s.T(), rr.Body.String())

	var dto UserDTO
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &dto))
	s.Require().NotNil(dto.AvatarURL)
	s.Equal("https://res.cloudinary.com/demo/image/upload/avatars/"+dto.ID, *dto.AvatarURL)
	s.Equal([]byte("png-bytes"), s.uploader.received)
}

func (s *UserHandlerTestSuite) Test_Create_MultipartAnyFileField() {
	rr := s.postMultipart(map[string]string{"email": "any@x.com", "password": "secret"}, "photo", "me.jpg", []byte("jpg"))
	s.Equal(http.StatusCreated, rr.Code)
	s.Contains(rr.Body.String(), "avatarUrl")
}

func (s *UserHandlerTestSuite) Test_Create_MultipartWithoutFile() {
	rr := s.postMultipart(map[string]string{"email": "nofile@x.com", "password": "secret"}, "", "", nil)
	s.Equal(http.StatusCreated, rr.Code)
	s.NotContains(rr.Body.String(), "avatarUrl")
	s.Nil(s.uploader.received)
}

func (s *UserHandlerTestSuite) Test_Create_UploadFailure() {
	s.uploader.err = errors.New("cloudinary api_secret=shh rejected")

	rr := s.postMultipart(map[string]string{"email": "fail@x.com", "password": "secret"}, "avatar", "me.png", []byte("png"))
	s.Equal(http.StatusInternalServerError, rr.Code)
	s.NotContains(rr.Body.String(), "shh")
	s.NotContains(rr.Body.String(), "cloudinary")
	s.Equal(0, s.repo.count())
}

func (s *UserHandlerTestSuite) Test_Create_StorageFailureHidesDetail() {
	s.repo.createErr = apperror.NewStorage("failed to save user", errors.New("dial postgres://admin:pw@db:5432 refused"))

	rr := s.postJSON(gin.H{"email": "a@x.com", "password": "secret"})
	s.Equal(http.StatusInternalServerError, rr.Code)
	s.NotContains(rr.Body.String(), "postgres://")

	var body map[string]string
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Equal("internal server error", body["error"])
	s.Equal("An internal server error occurred", body["message"])
}

func (s *UserHandlerTestSuite) Test_Create_MissingFields() {
	rr := s.postJSON(gin.H{"email": "a@x.com"})
	s.Equal(http.StatusBadRequest, rr.Code)

	var body struct {
		Details map[string]string `json:"details"`
	}
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &body))
	s.Equal("is required", body.Details["password"])
	s.Equal(0, s.repo.count())
}

func (s *UserHandlerTestSuite) Test_List_IsRedacted() {
	s.Require().Equal(http.StatusCreated, s.postJSON(gin.H{"email": "a@x.com", "password": "secret"}).Code)
	s.Require().Equal(http.StatusCreated, s.postJSON(gin.H{"email": "b@x.com", "password": "secret"}).Code)

	rr := s.do(httptest.NewRequest(http.MethodGet, "/users", nil))
	s.Equal(http.StatusOK, rr.Code)
	assertRedacted(s.T(), rr.Body.String())

	var dtos []UserDTO
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &dtos))
	s.Len(dtos, 2)
}

func (s *UserHandlerTestSuite) Test_List_Empty() {
	rr := s.do(httptest.NewRequest(http.MethodGet, "/users", nil))
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`[]`, rr.Body.String())
}

func (s *UserHandlerTestSuite) Test_Home_And_Health() {
	rr := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Header().Get("Content-Type"), "text/html")
	s.Contains(rr.Body.String(), "<h1>")

	rr = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"status":"UP"}`, rr.Body.String())
}

func (s *UserHandlerTestSuite) Test_RequestIDEchoed() {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderRequestID, "req-123")

	rr := s.do(req)
	s.Equal("req-123", rr.Header().Get(HeaderRequestID))

	rr = s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	s.NotEmpty(rr.Header().Get(HeaderRequestID))
}

func TestErrorMiddleware_UnknownError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorMiddleware(logger.NewNopLogger()))
	r.GET("/boom", func(c *gin.Context) {
		c.Error(errors.New("raw driver failure"))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "raw driver failure")
}
