package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/meetroom-backend/internal/domain"
	"github.com/xela07ax/meetroom-backend/internal/infra"
	"github.com/xela07ax/meetroom-backend/internal/infra/auth"
	"go.uber.org/zap"
)

type fakeRepo struct {
	users     map[int64]*domain.User
	nextID    int64
	createErr error
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[int64]*domain.User{}, nextID: 1}
}

func (f *fakeRepo) GetUserByUsername(_ context.Context, username string, isAdmin bool) (*domain.User, error) {
	for _, u := range f.users {
		if u.Username == username && u.IsAdmin == isAdmin {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetUserByID(_ context.Context, id int64, isAdmin bool) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok || u.IsAdmin != isAdmin {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) GetUserDetail(_ context.Context, id int64) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	for _, u := range f.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) CreateUser(_ context.Context, u *domain.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	u.ID = f.nextID
	f.nextID++
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return errors.New("not found")
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeRepo) UpdateUser(_ context.Context, id int64, nickName, headPic string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return errors.New("not found")
	}
	u.NickName, u.HeadPic = nickName, headPic
	return nil
}

func (f *fakeRepo) FreezeUser(_ context.Context, id int64) error {
	u, ok := f.users[id]
	if !ok {
		return errors.New("not found")
	}
	u.IsFrozen = true
	return nil
}

func (f *fakeRepo) ListUsers(_ context.Context, pageNo, pageSize int, _ domain.UserFilter) (*domain.UserPage, error) {
	page := &domain.UserPage{PageNo: pageNo, PageSize: pageSize}
	for _, u := range f.users {
		page.Users = append(page.Users, *u)
	}
	page.TotalCount = int64(len(page.Users))
	return page, nil
}

type memStore struct {
	data map[string]string
}

func (m *memStore) Set(_ context.Context, key, code string, _ time.Duration) error {
	m.data[key] = code
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	return m.data[key], nil
}

func newService(t *testing.T) (*UserService, *fakeRepo, *memStore) {
	t.Helper()
	repo := newFakeRepo()
	codes := &memStore{data: map[string]string{}}
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour, 24*time.Hour)
	hasher := auth.NewPasswordHasher(4)
	svc := NewUserService(repo, tokens, hasher, codes, zap.NewNop())
	return svc, repo, codes
}

func registerReq() *domain.RegisterRequest {
	return &domain.RegisterRequest{
		Username: "alice",
		NickName: "Alice",
		Password: "hunter22",
		Email:    "alice@b.com",
		Captcha:  "123456",
	}
}

func TestRegister_Success(t *testing.T) {
	t.Parallel()

	svc, repo, codes := newService(t)
	codes.data[infra.CaptchaRegister.Key("alice@b.com")] = "123456"

	require.NoError(t, svc.Register(context.Background(), registerReq()))

	stored, err := repo.GetUserByUsername(context.Background(), "alice", false)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "alice@b.com", stored.Email)
	// Пароль лежит в виде проверяемого хеша, не плейнтекстом
	assert.NotEqual(t, "hunter22", stored.PasswordHash)
	assert.True(t, auth.NewPasswordHasher(4).Compare(stored.PasswordHash, "hunter22"))
}

func TestRegister_CaptchaExpired(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	err := svc.Register(context.Background(), registerReq())
	require.ErrorIs(t, err, domain.ErrCaptchaExpired)
}

func TestRegister_CaptchaMismatch(t *testing.T) {
	t.Parallel()

	svc, _, codes := newService(t)
	codes.data[infra.CaptchaRegister.Key("alice@b.com")] = "654321"

	err := svc.Register(context.Background(), registerReq())
	require.ErrorIs(t, err, domain.ErrCaptchaMismatch)
}

func TestRegister_UsernameTaken(t *testing.T) {
	t.Parallel()

	svc, repo, codes := newService(t)
	codes.data[infra.CaptchaRegister.Key("alice@b.com")] = "123456"
	repo.users[1] = &domain.User{ID: 1, Username: "alice"}

	err := svc.Register(context.Background(), registerReq())
	require.ErrorIs(t, err, domain.ErrUsernameTaken)
}

func TestRegister_PersistenceFailureIsTyped(t *testing.T) {
	t.Parallel()

	svc, repo, codes := newService(t)
	codes.data[infra.CaptchaRegister.Key("alice@b.com")] = "123456"
	repo.createErr = errors.New("disk on fire")

	err := svc.Register(context.Background(), registerReq())
	require.Error(t, err)

	var pErr *domain.PersistenceError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, "register", pErr.Op)
}

func seedUser(t *testing.T, repo *fakeRepo, username, password string, isAdmin bool) *domain.User {
	t.Helper()
	hash, err := auth.NewPasswordHasher(4).Hash(password)
	require.NoError(t, err)
	u := &domain.User{
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		Roles:        []string{"member"},
		Permissions:  []string{"room.book"},
	}
	require.NoError(t, repo.CreateUser(context.Background(), u))
	return repo.users[u.ID]
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newService(t)
	seeded := seedUser(t, repo, "bob", "s3cret99", false)

	user, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "bob", Password: "s3cret99",
	}, false)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, user.ID)
	assert.Equal(t, []string{"member"}, user.Roles)
	assert.Equal(t, []string{"room.book"}, user.Permissions)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newService(t)
	seedUser(t, repo, "bob", "s3cret99", false)

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "bob", Password: "wrong",
	}, false)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogin_UnknownUser(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "ghost", Password: "whatever",
	}, false)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogin_AdminScope(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newService(t)
	seedUser(t, repo, "bob", "s3cret99", false)

	// Обычный пользователь не логинится через админский вход
	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "bob", Password: "s3cret99",
	}, true)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLogin_FrozenAccount(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newService(t)
	u := seedUser(t, repo, "bob", "s3cret99", false)
	u.IsFrozen = true

	_, err := svc.Login(context.Background(), &domain.LoginRequest{
		Username: "bob", Password: "s3cret99",
	}, false)
	require.ErrorIs(t, err, domain.ErrAccountFrozen)
}

func TestRefresh_ReloadsCurrentAuthz(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newService(t)
	u := seedUser(t, repo, "bob", "s3cret99", false)

	pair, err := svc.IssueTokenPair(u)
	require.NoError(t, err)

	// Права меняются после выпуска refresh-токена
	repo.users[u.ID].Permissions = []string{"room.book", "user.manage"}

	newPair, err := svc.Refresh(context.Background(), pair.RefreshToken, false)
	require.NoError(t, err)
	require.NotEmpty(t, newPair.AccessToken)
	require.NotEmpty(t, newPair.RefreshToken)

	// Новый access-токен несет актуальные права из базы
	verifier := auth.NewTokenService([]byte("test-secret"), time.Hour, 24*time.Hour)
	claims, err := verifier.VerifyAccess(newPair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"room.book", "user.manage"}, claims.Permissions)
}

func TestRefresh_InvalidToken(t *testing.T) {
	t.Parallel()

	svc, _, _ := newService(t)
	_, err := svc.Refresh(context.Background(), "garbage", false)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newService(t)
	u := seedUser(t, repo, "bob", "s3cret99", false)

	pair, err := svc.IssueTokenPair(u)
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), pair.AccessToken, false)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestRefresh_DeletedUser(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newService(t)
	u := seedUser(t, repo, "bob", "s3cret99", false)

	pair, err := svc.IssueTokenPair(u)
	require.NoError(t, err)

	delete(repo.users, u.ID)
	_, err = svc.Refresh(context.Background(), pair.RefreshToken, false)
	require.ErrorIs(t, err, domain.ErrSessionExpired)
}

func TestUpdatePassword_CaptchaGate(t *testing.T) {
	t.Parallel()

	svc, repo, codes := newService(t)
	u := seedUser(t, repo, "bob", "oldpass99", false)
	repo.users[u.ID].Email = "bob@b.com"

	req := &domain.UpdatePasswordRequest{
		Password: "newpass99", Email: "bob@b.com", Captcha: "111222",
	}

	// Без кода — отказ, пароль не тронут
	err := svc.UpdatePassword(context.Background(), u.ID, req)
	require.ErrorIs(t, err, domain.ErrCaptchaExpired)

	codes.data[infra.CaptchaUpdatePassword.Key("bob@b.com")] = "111222"
	require.NoError(t, svc.UpdatePassword(context.Background(), u.ID, req))
	assert.True(t, auth.NewPasswordHasher(4).Compare(repo.users[u.ID].PasswordHash, "newpass99"))
}

func TestUpdateProfile_CaptchaGate(t *testing.T) {
	t.Parallel()

	svc, repo, codes := newService(t)
	u := seedUser(t, repo, "bob", "s3cret99", false)

	req := &domain.UpdateUserRequest{
		NickName: "Bobby", HeadPic: "pic.png", Email: "bob@b.com", Captcha: "999000",
	}

	codes.data[infra.CaptchaUpdateUser.Key("bob@b.com")] = "000999"
	err := svc.UpdateProfile(context.Background(), u.ID, req)
	require.ErrorIs(t, err, domain.ErrCaptchaMismatch)

	codes.data[infra.CaptchaUpdateUser.Key("bob@b.com")] = "999000"
	require.NoError(t, svc.UpdateProfile(context.Background(), u.ID, req))
	assert.Equal(t, "Bobby", repo.users[u.ID].NickName)
	assert.Equal(t, "pic.png", repo.users[u.ID].HeadPic)
}

func TestInfo_StripsPasswordHash(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newService(t)
	u := seedUser(t, repo, "bob", "s3cret99", false)

	info, err := svc.Info(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, info.PasswordHash)
	assert.Equal(t, "bob", info.Username)
}

func TestFreeze(t *testing.T) {
	t.Parallel()

	svc, repo, _ := newService(t)
	u := seedUser(t, repo, "bob", "s3cret99", false)

	require.NoError(t, svc.Freeze(context.Background(), u.ID))
	assert.True(t, repo.users[u.ID].IsFrozen)
}
