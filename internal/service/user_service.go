package service

import (
	"context"
	"fmt"

	"github.com/xela07ax/meetroom-backend/internal/captcha"
	"github.com/xela07ax/meetroom-backend/internal/domain"
	"github.com/xela07ax/meetroom-backend/internal/infra"
	"go.uber.org/zap"
)

// UserProvider — то, что сервису нужно от хранилища пользователей.
type UserProvider interface {
	GetUserByUsername(ctx context.Context, username string, isAdmin bool) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64, isAdmin bool) (*domain.User, error)
	GetUserDetail(ctx context.Context, id int64) (*domain.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	CreateUser(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateUser(ctx context.Context, id int64, nickName, headPic string) error
	FreezeUser(ctx context.Context, id int64) error
	ListUsers(ctx context.Context, pageNo, pageSize int, f domain.UserFilter) (*domain.UserPage, error)
}

// TokenIssuer отделяет политику подписи (TTL, секрет) от проверки кредов.
type TokenIssuer interface {
	IssueAccessToken(user *domain.User) (string, error)
	IssueRefreshToken(userID int64) (string, error)
	VerifyRefresh(tokenStr string) (*domain.RefreshClaims, error)
}

// Hasher — односторонний хеш пароля.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Compare(hash, plaintext string) bool
}

// UserService — поток аутентификации: регистрация, логин, refresh-обмен
// и капча-гейтед мутации профиля.
type UserService struct {
	repo   UserProvider
	tokens TokenIssuer
	hasher Hasher
	codes  captcha.CodeStore
	logger *zap.Logger
}

func NewUserService(repo UserProvider, tokens TokenIssuer, hasher Hasher, codes captcha.CodeStore, logger *zap.Logger) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		hasher: hasher,
		codes:  codes,
		logger: logger.Named("user-service"),
	}
}

// checkCaptcha сверяет присланный код с живым кодом из кэша.
// Чтение и сравнение, без атомарного удаления: код живет до своего TTL.
func (s *UserService) checkCaptcha(ctx context.Context, purpose infra.CaptchaPurpose, address, supplied string) error {
	stored, err := s.codes.Get(ctx, purpose.Key(address))
	if err != nil {
		return fmt.Errorf("captcha lookup failed: %w", err)
	}
	if stored == "" {
		return domain.ErrCaptchaExpired
	}
	if stored != supplied {
		return domain.ErrCaptchaMismatch
	}
	return nil
}

// Register: капча → уникальность имени → хеш → запись.
// Отказ записи не глотается в строку, а отдается типизированным.
func (s *UserService) Register(ctx context.Context, req *domain.RegisterRequest) error {
	if err := s.checkCaptcha(ctx, infra.CaptchaRegister, req.Email, req.Captcha); err != nil {
		return err
	}

	exists, err := s.repo.UsernameExists(ctx, req.Username)
	if err != nil {
		return err
	}
	if exists {
		return domain.ErrUsernameTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return err
	}

	user := &domain.User{
		Username:     req.Username,
		PasswordHash: hash,
		Email:        req.Email,
		NickName:     req.NickName,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		s.logger.Error("user registration persistence failed",
			zap.String("username", req.Username), zap.Error(err))
		return &domain.PersistenceError{Op: "register", Cause: err}
	}

	s.logger.Info("user registered", zap.Int64("user_id", user.ID),
		zap.String("username", user.Username))
	return nil
}

// Login проверяет креды и возвращает запись. Выпуск токенов — отдельная
// забота вызывающего (IssueTokenPair), не смешанная с проверкой кредов.
func (s *UserService) Login(ctx context.Context, req *domain.LoginRequest, isAdmin bool) (*domain.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username, isAdmin)
	if err != nil {
		return nil, err
	}
	// Не уточняем, что именно неверно (логин или пароль)
	if user == nil || !s.hasher.Compare(user.PasswordHash, req.Password) {
		return nil, domain.ErrInvalidCredentials
	}
	if user.IsFrozen {
		return nil, domain.ErrAccountFrozen
	}
	return user, nil
}

// IssueTokenPair выпускает access+refresh для записи пользователя.
func (s *UserService) IssueTokenPair(user *domain.User) (domain.TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh обменивает живой refresh-токен на новую пару. Пользователь
// перечитывается из базы, так что смена ролей/прав вступает в силу сразу,
// не дожидаясь истечения старого access-токена. Старый refresh-токен
// не отзывается и живет до собственного expiry.
func (s *UserService) Refresh(ctx context.Context, refreshToken string, isAdmin bool) (domain.TokenPair, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return domain.TokenPair{}, domain.ErrSessionExpired
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID, isAdmin)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if user == nil {
		return domain.TokenPair{}, domain.ErrSessionExpired
	}

	return s.IssueTokenPair(user)
}

// Info — детали профиля для аутентифицированного пользователя.
func (s *UserService) Info(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.repo.GetUserDetail(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrSessionExpired
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdatePassword — смена пароля, гейтится кодом на почту владельца.
func (s *UserService) UpdatePassword(ctx context.Context, userID int64, req *domain.UpdatePasswordRequest) error {
	if err := s.checkCaptcha(ctx, infra.CaptchaUpdatePassword, req.Email, req.Captcha); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		s.logger.Error("password update persistence failed",
			zap.Int64("user_id", userID), zap.Error(err))
		return &domain.PersistenceError{Op: "update_password", Cause: err}
	}
	return nil
}

// UpdateProfile — смена ника/аватарки, тоже под кодом.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *domain.UpdateUserRequest) error {
	if err := s.checkCaptcha(ctx, infra.CaptchaUpdateUser, req.Email, req.Captcha); err != nil {
		return err
	}

	if err := s.repo.UpdateUser(ctx, userID, req.NickName, req.HeadPic); err != nil {
		s.logger.Error("profile update persistence failed",
			zap.Int64("user_id", userID), zap.Error(err))
		return &domain.PersistenceError{Op: "update_user", Cause: err}
	}
	return nil
}

// Freeze блокирует аккаунт. Доступно только держателям user.manage.
func (s *UserService) Freeze(ctx context.Context, userID int64) error {
	if err := s.repo.FreezeUser(ctx, userID); err != nil {
		return &domain.PersistenceError{Op: "freeze", Cause: err}
	}
	return nil
}

// List — страничный листинг с фильтрами.
func (s *UserService) List(ctx context.Context, pageNo, pageSize int, f domain.UserFilter) (*domain.UserPage, error) {
	if pageNo < 1 {
		pageNo = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	return s.repo.ListUsers(ctx, pageNo, pageSize, f)
}
