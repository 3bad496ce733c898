package http

import (
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	userUC "github.com/khoahotran/user-directory/internal/application/usecase/user"
	"github.com/khoahotran/user-directory/pkg/apperror"
	"github.com/khoahotran/user-directory/pkg/logger"
	"github.com/khoahotran/user-directory/pkg/validation"
)

const avatarFormField = "avatar"

type UserHandler struct {
	registerUserUC *userUC.RegisterUserUseCase
	listUsersUC    *userUC.ListUsersUseCase
	logger         logger.Logger
}

func NewUserHandler(
	registerUC *userUC.RegisterUserUseCase,
	listUC *userUC.ListUsersUseCase,
	log logger.Logger,
) *UserHandler {
	return &UserHandler{
		registerUserUC: registerUC,
		listUsersUC:    listUC,
		logger:         log,
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	output, err := h.listUsersUC.Execute(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, ToUserDTOs(output.Users))
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBind(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":   apperror.ErrInvalidInput.Error(),
			"message": "Invalid input provided",
			"details": validation.ToDetails(err),
		})
		return
	}

	fileHeader, err := avatarFromRequest(c)
	if err != nil {
		c.Error(apperror.NewInvalidInput("could not read multipart form", err))
		return
	}

	input := userUC.RegisterUserInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	}

	if fileHeader != nil {
		file, err := fileHeader.Open()
		if err != nil {
			c.Error(apperror.NewInternal("failed to open avatar file", err))
			return
		}
		defer file.Close()
		input.Avatar = &userUC.AvatarFile{Content: file, Filename: fileHeader.Filename}
	}

	output, err := h.registerUserUC.Execute(c.Request.Context(), input)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, ToUserDTO(output.User))
}

// avatarFromRequest prefers the "avatar" field and otherwise takes the first
// attached file. Empty parts sent by forms with no file selected are ignored.
func avatarFromRequest(c *gin.Context) (*multipart.FileHeader, error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}

	if fh := firstNonEmpty(form.File[avatarFormField]); fh != nil {
		return fh, nil
	}

	fields := make([]string, 0, len(form.File))
	for field := range form.File {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		if fh := firstNonEmpty(form.File[field]); fh != nil {
			return fh, nil
		}
	}
	return nil, nil
}

func firstNonEmpty(headers []*multipart.FileHeader) *multipart.FileHeader {
	for _, fh := range headers {
		if fh.Size > 0 || fh.Filename != "" {
			return fh
		}
	}
	return nil
}
