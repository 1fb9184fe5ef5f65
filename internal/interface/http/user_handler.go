package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	userapp "github.com/oksasatya/go-user-lifecycle/internal/application"
	"github.com/oksasatya/go-user-lifecycle/internal/domain/apperror"
	"github.com/oksasatya/go-user-lifecycle/internal/domain/entity"
	"github.com/oksasatya/go-user-lifecycle/internal/domain/storage"
	"github.com/oksasatya/go-user-lifecycle/pkg/helpers"
	"github.com/oksasatya/go-user-lifecycle/pkg/response"
	"github.com/oksasatya/go-user-lifecycle/pkg/validation"
)

// multipart overhead allowed on top of the photo itself
const formOverheadBytes = 1 << 20

// UserService is what the handler needs from the user lifecycle.
type UserService interface {
	List(ctx context.Context, offset, limit int) (*userapp.UserPage, error)
	Get(ctx context.Context, id string) (*entity.User, error)
	Create(ctx context.Context, in userapp.CreateUserInput, photo *storage.PhotoUpload) (string, error)
	Update(ctx context.Context, id, confirmationSecret string, in userapp.UpdateUserInput, photo *storage.PhotoUpload) error
	Delete(ctx context.Context, id string) (*userapp.DeleteResult, error)
	Search(ctx context.Context, q string, size int) ([]userapp.SearchHit, error)
}

type UserHandler struct {
	Svc            UserService
	Logger         *logrus.Logger
	TmpDir         string
	MaxUploadBytes int64
}

func NewUserHandler(svc UserService, logger *logrus.Logger, tmpDir string, maxUploadBytes int64) *UserHandler {
	if logger == nil {
		logger = helpers.NewDiscardLogger()
	}
	return &UserHandler{Svc: svc, Logger: logger, TmpDir: tmpDir, MaxUploadBytes: maxUploadBytes}
}

type listQuery struct {
	From  int `form:"from,default=0" binding:"gte=0"`
	Limit int `form:"limit,default=20" binding:"gte=1,lte=100"`
}

type searchQuery struct {
	Q    string `form:"q" binding:"required"`
	Size int    `form:"size,default=10" binding:"gte=1,lte=50"`
}

type createUserRequest struct {
	FirstName string `json:"first_name" form:"first_name" binding:"omitempty,person_name"`
	LastName  string `json:"last_name" form:"last_name" binding:"omitempty,person_name"`
	Email     string `json:"email" form:"email" binding:"required"`
	Password  string `json:"password" form:"password" binding:"required,pwd"`
	IsAdmin   bool   `json:"is_admin" form:"is_admin"`
	Folder    string `json:"-" form:"folder"`
}

type updateUserRequest struct {
	FirstName       *string `json:"first_name" form:"first_name" binding:"omitempty,person_name"`
	LastName        *string `json:"last_name" form:"last_name" binding:"omitempty,person_name"`
	Email           *string `json:"email" form:"email"`
	Password        *string `json:"password" form:"password" binding:"omitempty,pwd"`
	IsAdmin         *bool   `json:"is_admin" form:"is_admin"`
	IsUser          *bool   `json:"is_user" form:"is_user"`
	ConfirmPassword string  `json:"confirm_password" form:"confirm_password" binding:"required"`
	Folder          string  `json:"-" form:"folder"`
}

// userResponse is the public view of a user. It never carries the password hash.
type userResponse struct {
	ID        string           `json:"id"`
	FirstName string           `json:"first_name"`
	LastName  string           `json:"last_name"`
	Email     string           `json:"email"`
	IsAdmin   bool             `json:"is_admin"`
	IsUser    bool             `json:"is_user"`
	Photo     *entity.PhotoRef `json:"photo"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func toUserResponse(u *entity.User) userResponse {
	out := userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		IsUser:    u.IsUser,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if !u.Photo.IsZero() {
		p := u.Photo
		out.Photo = &p
	}
	return out
}

func (h *UserHandler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	page, err := h.Svc.List(c.Request.Context(), q.From, q.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	users := make([]userResponse, 0, len(page.Users))
	for i := range page.Users {
		users = append(users, toUserResponse(&page.Users[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"users": users, "total": page.Total}, "users", gin.H{"from": q.From, "limit": q.Limit})
}

func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, toUserResponse(u), "user", nil)
}

func (h *UserHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	hits, err := h.Svc.Search(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", gin.H{"q": q.Q, "size": q.Size})
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !h.bind(c, &req) {
		return
	}
	photo, cleanup, ok := h.photoFrom(c, req.Folder)
	if !ok {
		return
	}
	defer cleanup()

	id, err := h.Svc.Create(c.Request.Context(), userapp.CreateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		IsAdmin:   req.IsAdmin,
	}, photo)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"id": id}, "User created", nil)
}

func (h *UserHandler) Update(c *gin.Context) {
	id := c.Param("id")
	var req updateUserRequest
	if !h.bind(c, &req) {
		return
	}
	photo, cleanup, ok := h.photoFrom(c, req.Folder)
	if !ok {
		return
	}
	defer cleanup()

	err := h.Svc.Update(c.Request.Context(), id, req.ConfirmPassword, userapp.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		IsAdmin:   req.IsAdmin,
		IsUser:    req.IsUser,
	}, photo)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id}, "User updated", nil)
}

// Delete answers 204. When the photo could not be removed the user is still
// deleted and the problem is reported in a Warning header.
func (h *UserHandler) Delete(c *gin.Context) {
	res, err := h.Svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	for _, w := range res.Warnings {
		c.Writer.Header().Add("Warning", `199 - "`+strings.ReplaceAll(w, `"`, `'`)+`"`)
	}
	c.Status(http.StatusNoContent)
}

func isMultipart(c *gin.Context) bool {
	return c.ContentType() == binding.MIMEMultipartPOSTForm
}

// bind reads a JSON or multipart body into req and answers 400 on failure.
func (h *UserHandler) bind(c *gin.Context, req any) bool {
	var err error
	if isMultipart(c) {
		if h.MaxUploadBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes+formOverheadBytes)
		}
		err = c.ShouldBindWith(req, binding.FormMultipart)
	} else {
		err = c.ShouldBindJSON(req)
	}
	if err == nil {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		response.Error[any](c, http.StatusRequestEntityTooLarge, "request body too large", nil)
		return false
	}
	response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
	return false
}

// photoFrom spools the optional "photo" part to a temp file. The returned
// cleanup must run once the request is done with the photo.
func (h *UserHandler) photoFrom(c *gin.Context, folder string) (*storage.PhotoUpload, func(), bool) {
	noop := func() {}
	if !isMultipart(c) {
		return nil, noop, true
	}
	fh, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, true
	}
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid photo", nil)
		return nil, noop, false
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		response.Error[any](c, http.StatusRequestEntityTooLarge, "photo is too large", nil)
		return nil, noop, false
	}

	tmp, err := helpers.SpoolUpload(fh, h.TmpDir)
	if err != nil {
		h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("spool upload failed")
		response.Error[any](c, http.StatusInternalServerError, "could not read photo", nil)
		return nil, noop, false
	}
	return &storage.PhotoUpload{
		Reader:      tmp.Reader(),
		Filename:    tmp.Filename,
		ContentType: tmp.ContentType,
		Folder:      strings.Trim(strings.TrimSpace(folder), "/"),
	}, tmp.Cleanup, true
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindUpload:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *UserHandler) fail(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := statusFor(kind)
	msg := apperror.MessageOf(err)
	entry := h.Logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"kind":       kind.String(),
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}
	response.Error[any](c, status, msg, gin.H{"kind": kind.String()})
}
