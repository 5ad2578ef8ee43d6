package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/meetroom-backend/internal/domain"
	"github.com/xela07ax/meetroom-backend/internal/infra"
	"github.com/xela07ax/meetroom-backend/internal/infra/auth"
	"github.com/xela07ax/meetroom-backend/internal/service"
	"go.uber.org/zap"
)

// handlerRepo — минимальный UserProvider для проверки HTTP-маппинга.
type handlerRepo struct {
	user *domain.User
}

func (r *handlerRepo) GetUserByUsername(_ context.Context, username string, isAdmin bool) (*domain.User, error) {
	if r.user != nil && r.user.Username == username && r.user.IsAdmin == isAdmin {
		cp := *r.user
		return &cp, nil
	}
	return nil, nil
}

func (r *handlerRepo) GetUserByID(_ context.Context, id int64, isAdmin bool) (*domain.User, error) {
	if r.user != nil && r.user.ID == id && r.user.IsAdmin == isAdmin {
		cp := *r.user
		return &cp, nil
	}
	return nil, nil
}

func (r *handlerRepo) GetUserDetail(_ context.Context, id int64) (*domain.User, error) {
	if r.user != nil && r.user.ID == id {
		cp := *r.user
		return &cp, nil
	}
	return nil, nil
}

func (r *handlerRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	return r.user != nil && r.user.Username == username, nil
}

func (r *handlerRepo) CreateUser(_ context.Context, u *domain.User) error {
	u.ID = 1
	cp := *u
	r.user = &cp
	return nil
}

func (r *handlerRepo) UpdatePassword(_ context.Context, _ int64, hash string) error {
	r.user.PasswordHash = hash
	return nil
}

func (r *handlerRepo) UpdateUser(_ context.Context, _ int64, nickName, headPic string) error {
	r.user.NickName, r.user.HeadPic = nickName, headPic
	return nil
}

func (r *handlerRepo) FreezeUser(_ context.Context, _ int64) error {
	r.user.IsFrozen = true
	return nil
}

func (r *handlerRepo) ListUsers(_ context.Context, pageNo, pageSize int, _ domain.UserFilter) (*domain.UserPage, error) {
	return &domain.UserPage{PageNo: pageNo, PageSize: pageSize}, nil
}

type nilStore struct{ data map[string]string }

func (s *nilStore) Set(_ context.Context, key, code string, _ time.Duration) error {
	s.data[key] = code
	return nil
}

func (s *nilStore) Get(_ context.Context, key string) (string, error) {
	return s.data[key], nil
}

func newUserHandler(t *testing.T) (*UserHandler, *handlerRepo, *nilStore) {
	t.Helper()
	repo := &handlerRepo{}
	codes := &nilStore{data: map[string]string{}}
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour, 24*time.Hour)
	hasher := auth.NewPasswordHasher(4)
	svc := service.NewUserService(repo, tokens, hasher, codes, zap.NewNop())
	return NewUserHandler(svc, NewMetrics(nil), zap.NewNop()), repo, codes
}

func seedHandlerUser(t *testing.T, repo *handlerRepo) {
	t.Helper()
	hash, err := auth.NewPasswordHasher(4).Hash("s3cret99")
	require.NoError(t, err)
	repo.user = &domain.User{
		ID: 1, Username: "bob", PasswordHash: hash,
		Roles: []string{"member"}, Permissions: []string{"room.book"},
	}
}

func TestLoginEndpoint_Success(t *testing.T) {
	t.Parallel()

	h, repo, _ := newUserHandler(t)
	seedHandlerUser(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/user/login",
		strings.NewReader(`{"username":"bob","password":"s3cret99"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, resp.UserInfo)
	assert.Equal(t, int64(1), resp.UserInfo.UserID)
	assert.Equal(t, "bob", resp.UserInfo.Username)
}

func TestLoginEndpoint_InvalidCredentials(t *testing.T) {
	t.Parallel()

	h, repo, _ := newUserHandler(t)
	seedHandlerUser(t, repo)

	req := httptest.NewRequest(http.MethodPost, "/user/login",
		strings.NewReader(`{"username":"bob","password":"nope"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterEndpoint_CaptchaExpiredMapsTo400(t *testing.T) {
	t.Parallel()

	h, _, _ := newUserHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/user/register",
		strings.NewReader(`{"username":"alice","nickName":"A","password":"hunter22","email":"a@b.com","captcha":"123456"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "captcha has expired")
}

func TestRegisterEndpoint_ShortPasswordRejected(t *testing.T) {
	t.Parallel()

	h, _, _ := newUserHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/user/register",
		strings.NewReader(`{"username":"alice","nickName":"A","password":"abc","email":"a@b.com","captcha":"123456"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshEndpoint_RoundTrip(t *testing.T) {
	t.Parallel()

	h, repo, codes := newUserHandler(t)
	codes.data[infra.CaptchaRegister.Key("a@b.com")] = "123456"

	// Регистрация через хендлер, затем логин и обмен
	reg := httptest.NewRequest(http.MethodPost, "/user/register",
		strings.NewReader(`{"username":"alice","nickName":"A","password":"hunter22","email":"a@b.com","captcha":"123456"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, reg)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.user)

	login := httptest.NewRequest(http.MethodPost, "/user/login",
		strings.NewReader(`{"username":"alice","password":"hunter22"}`))
	rec = httptest.NewRecorder()
	h.Login(rec, login)
	require.Equal(t, http.StatusOK, rec.Code)

	var pair domain.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&pair))

	refresh := httptest.NewRequest(http.MethodGet,
		"/user/refresh?refreshToken="+pair.RefreshToken, nil)
	rec = httptest.NewRecorder()
	h.Refresh(rec, refresh)
	require.Equal(t, http.StatusOK, rec.Code)

	var newPair domain.TokenPair
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&newPair))
	assert.NotEmpty(t, newPair.AccessToken)
}

func TestRefreshEndpoint_MissingToken(t *testing.T) {
	t.Parallel()

	h, _, _ := newUserHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/user/refresh", nil)
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInfoEndpoint_UsesPrincipal(t *testing.T) {
	t.Parallel()

	h, repo, _ := newUserHandler(t)
	seedHandlerUser(t, repo)

	req := httptest.NewRequest(http.MethodGet, "/user/info", nil)
	req = req.WithContext(auth.WithPrincipal(req.Context(),
		&domain.Principal{UserID: 1, Username: "bob"}))
	rec := httptest.NewRecorder()
	h.Info(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var u domain.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&u))
	assert.Equal(t, "bob", u.Username)
	assert.Empty(t, u.PasswordHash)
}
