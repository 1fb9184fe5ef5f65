package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userapp "github.com/oksasatya/go-user-lifecycle/internal/application"
	"github.com/oksasatya/go-user-lifecycle/internal/domain/apperror"
	"github.com/oksasatya/go-user-lifecycle/internal/domain/entity"
	"github.com/oksasatya/go-user-lifecycle/internal/domain/storage"
	"github.com/oksasatya/go-user-lifecycle/pkg/validation"
)

type fakeService struct {
	err error

	user     *entity.User
	page     *userapp.UserPage
	deleted  *userapp.DeleteResult
	hits     []userapp.SearchHit
	listArgs [2]int

	created   userapp.CreateUserInput
	updated   userapp.UpdateUserInput
	secret    string
	photo     *storage.PhotoUpload
	photoBody string
	photoPath string
}

func (f *fakeService) List(_ context.Context, offset, limit int) (*userapp.UserPage, error) {
	f.listArgs = [2]int{offset, limit}
	return f.page, f.err
}

func (f *fakeService) Get(context.Context, string) (*entity.User, error) { return f.user, f.err }

func (f *fakeService) record(photo *storage.PhotoUpload) {
	f.photo = photo
	if photo == nil {
		return
	}
	if file, ok := photo.Reader.(*os.File); ok {
		f.photoPath = file.Name()
	}
	b, _ := io.ReadAll(photo.Reader)
	f.photoBody = string(b)
}

func (f *fakeService) Create(_ context.Context, in userapp.CreateUserInput, photo *storage.PhotoUpload) (string, error) {
	f.created = in
	f.record(photo)
	return "new-id", f.err
}

func (f *fakeService) Update(_ context.Context, _ string, secret string, in userapp.UpdateUserInput, photo *storage.PhotoUpload) error {
	f.updated, f.secret = in, secret
	f.record(photo)
	return f.err
}

func (f *fakeService) Delete(context.Context, string) (*userapp.DeleteResult, error) {
	return f.deleted, f.err
}

func (f *fakeService) Search(context.Context, string, int) ([]userapp.SearchHit, error) {
	return f.hits, f.err
}

func newRouter(t *testing.T, svc UserService) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()
	dir := t.TempDir()
	h := NewUserHandler(svc, nil, dir, 1<<10)

	r := gin.New()
	api := r.Group("/api")
	api.GET("/users", h.List)
	api.GET("/users/search", h.Search)
	api.GET("/users/:id", h.Get)
	api.POST("/users", h.Create)
	api.PUT("/users/:id", h.Update)
	api.DELETE("/users/:id", h.Delete)
	return r, dir
}

func multipartBody(t *testing.T, fields map[string]string, photo []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if photo != nil {
		fw, err := mw.CreateFormFile("photo", "me.png")
		require.NoError(t, err)
		_, err = fw.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func do(r http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp upload left behind")
}

func TestCreate_MultipartSpoolsAndCleansUp(t *testing.T) {
	svc := &fakeService{}
	r, dir := newRouter(t, svc)

	body, ct := multipartBody(t, map[string]string{"email": "a@x.com", "password": "p", "is_admin": "true", "folder": "/avatars/"}, []byte("pixels"))
	w := do(r, http.MethodPost, "/api/users", body, ct)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"id":"new-id"`)
	assert.True(t, svc.created.IsAdmin)
	require.NotNil(t, svc.photo)
	assert.Equal(t, "pixels", svc.photoBody)
	assert.Equal(t, "avatars", svc.photo.Folder)
	assert.Equal(t, "me.png", svc.photo.Filename)
	require.NotEmpty(t, svc.photoPath)
	_, err := os.Stat(svc.photoPath)
	assert.True(t, os.IsNotExist(err))
	assertDirEmpty(t, dir)
}

func TestCreate_FailureStillCleansUp(t *testing.T) {
	svc := &fakeService{err: apperror.WithOp("create user", "", apperror.Upload("photo upload failed", nil))}
	r, dir := newRouter(t, svc)

	body, ct := multipartBody(t, map[string]string{"email": "a@x.com", "password": "p"}, []byte("pixels"))
	w := do(r, http.MethodPost, "/api/users", body, ct)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "photo upload failed")
	assertDirEmpty(t, dir)
}

func TestCreate_JSONWithoutPhoto(t *testing.T) {
	svc := &fakeService{}
	r, _ := newRouter(t, svc)

	w := do(r, http.MethodPost, "/api/users", strings.NewReader(`{"email":"a@x.com","password":"p","first_name":"Ada"}`), "application/json")

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, svc.photo)
	assert.Equal(t, "Ada", svc.created.FirstName)
}

func TestCreate_MissingFieldsAndOversizePhoto(t *testing.T) {
	r, _ := newRouter(t, &fakeService{})

	w := do(r, http.MethodPost, "/api/users", strings.NewReader(`{"email":"a@x.com"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"password":"is required"`)

	body, ct := multipartBody(t, map[string]string{"email": "a@x.com", "password": "p"}, bytes.Repeat([]byte("x"), 2<<10))
	w = do(r, http.MethodPost, "/api/users", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperror.Validation("nothing to update"), http.StatusBadRequest},
		{apperror.Unauthorized("Your password is incorrect"), http.StatusUnauthorized},
		{apperror.NotFound("user not found"), http.StatusNotFound},
		{apperror.Conflict("email already registered", nil), http.StatusConflict},
		{apperror.Upload("photo upload failed", nil), http.StatusBadGateway},
		{apperror.Store("database error", nil), http.StatusInternalServerError},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &fakeService{err: apperror.WithOp("update user", "u1", tc.err)}
		r, _ := newRouter(t, svc)
		w := do(r, http.MethodPut, "/api/users/u1", strings.NewReader(`{"confirm_password":"x","first_name":"A"}`), "application/json")
		assert.Equal(t, tc.want, w.Code, tc.err.Error())

		var env struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
		assert.False(t, env.Success)
		assert.Equal(t, apperror.MessageOf(tc.err), env.Message)
	}
}

func TestUpdate_PassesSecretAndPartialFields(t *testing.T) {
	svc := &fakeService{}
	r, dir := newRouter(t, svc)

	body, ct := multipartBody(t, map[string]string{"confirm_password": "old", "last_name": "L"}, []byte("new"))
	w := do(r, http.MethodPut, "/api/users/u1", body, ct)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "old", svc.secret)
	require.NotNil(t, svc.updated.LastName)
	assert.Equal(t, "L", *svc.updated.LastName)
	assert.Nil(t, svc.updated.FirstName)
	assert.Nil(t, svc.updated.IsAdmin)
	assert.Equal(t, "new", svc.photoBody)
	assertDirEmpty(t, dir)

	w = do(r, http.MethodPut, "/api/users/u1", strings.NewReader(`{"first_name":"A"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDelete_NoContentAndWarning(t *testing.T) {
	svc := &fakeService{deleted: &userapp.DeleteResult{}}
	r, _ := newRouter(t, svc)

	w := do(r, http.MethodDelete, "/api/users/u1", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Header().Get("Warning"))

	svc.deleted = &userapp.DeleteResult{Warnings: []string{`photo cleanup failed: "denied"`}}
	w = do(r, http.MethodDelete, "/api/users/u1", nil, "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, `199 - "photo cleanup failed: 'denied'"`, w.Header().Get("Warning"))
	assert.Empty(t, w.Body.String())
}

func TestGet_NeverSerializesPasswordHash(t *testing.T) {
	now := time.Now()
	svc := &fakeService{user: &entity.User{ID: "u1", Email: "a@x.com", PasswordHash: "$2a$10$secret", IsUser: true, State: true,
		Photo: entity.PhotoRef{AssetID: "users/a.png", Locator: "https://cdn/users/a.png"}, CreatedAt: now, UpdatedAt: now}}
	r, _ := newRouter(t, svc)

	w := do(r, http.MethodGet, "/api/users/u1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	assert.NotContains(t, strings.ToLower(w.Body.String()), "password")
	assert.Contains(t, w.Body.String(), `"photo":{"asset_id":"users/a.png","url":"https://cdn/users/a.png"}`)
}

func TestList_DefaultsAndBounds(t *testing.T) {
	svc := &fakeService{page: &userapp.UserPage{Users: []entity.User{{ID: "u1", PasswordHash: "h"}}, Total: 1}}
	r, _ := newRouter(t, svc)

	w := do(r, http.MethodGet, "/api/users", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]int{0, 20}, svc.listArgs)
	assert.Contains(t, w.Body.String(), `"total":1`)
	assert.Contains(t, w.Body.String(), `"photo":null`)

	for _, q := range []string{"?from=-1", "?limit=0", "?limit=101", "?limit=abc"} {
		w = do(r, http.MethodGet, "/api/users"+q, nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestSearch(t *testing.T) {
	svc := &fakeService{hits: []userapp.SearchHit{{ID: "u1", Email: "a@x.com"}}}
	r, _ := newRouter(t, svc)

	w := do(r, http.MethodGet, "/api/users/search?q=ada", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"a@x.com"`)

	w = do(r, http.MethodGet, "/api/users/search", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
