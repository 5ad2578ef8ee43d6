package domain

import "github.com/golang-jwt/jwt/v5"

// Маркеры вида токена. Refresh-токен сам по себе не дает доступа к API,
// поэтому вид зашит в claims и проверяется при верификации.
const (
	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// AccessClaims — полный набор утверждений access-токена.
type AccessClaims struct {
	UserID      int64    `json:"userId"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	Kind        string   `json:"kind"`
	jwt.RegisteredClaims
}

// RefreshClaims несет только идентификатор: роли и права при обмене
// перечитываются из базы, а не доверяются старому токену.
type RefreshClaims struct {
	UserID int64  `json:"userId"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

// Principal строит транзитную личность запроса из проверенных claims.
func (c *AccessClaims) Principal() *Principal {
	return &Principal{
		UserID:      c.UserID,
		Username:    c.Username,
		Roles:       c.Roles,
		Permissions: c.Permissions,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	NickName string `json:"nickName"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Captcha  string `json:"captcha"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdatePasswordRequest struct {
	Password string `json:"password"`
	Email    string `json:"email"`
	Captcha  string `json:"captcha"`
}

type UpdateUserRequest struct {
	NickName string `json:"nickName"`
	HeadPic  string `json:"headPic"`
	Email    string `json:"email"`
	Captcha  string `json:"captcha"`
}

// TokenPair — итог логина и refresh-обмена.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse — пара токенов плюс открытая часть профиля.
type LoginResponse struct {
	UserInfo *Principal `json:"userInfo"`
	TokenPair
}
