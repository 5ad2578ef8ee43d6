package domain

import "time"

// User — запись пользователя в Postgres. Источник правды для аутентификации
// и для наполнения claims токена.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Никогда не отправляем на фронт
	Email        string    `json:"email"`
	NickName     string    `json:"nickName"`
	HeadPic      string    `json:"headPic"`
	PhoneNumber  string    `json:"phoneNumber"`
	IsFrozen     bool      `json:"isFrozen"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createTime"`
	UpdatedAt    time.Time `json:"updateTime"`

	// Роли и права подтягиваются отдельными JOIN-запросами
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Principal — проверенная личность запроса. Живет только в context.Context
// между Guard-middleware и хендлером, никуда не персистится.
type Principal struct {
	UserID      int64    `json:"userId"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// HasPermissions проверяет, что права Principal — надмножество требуемых.
func (p *Principal) HasPermissions(required []string) bool {
	if len(required) == 0 {
		return true
	}
	owned := make(map[string]struct{}, len(p.Permissions))
	for _, perm := range p.Permissions {
		owned[perm] = struct{}{}
	}
	for _, perm := range required {
		if _, ok := owned[perm]; !ok {
			return false
		}
	}
	return true
}

// UserPage — страница выдачи для GET /user/list.
type UserPage struct {
	Users      []User `json:"users"`
	TotalCount int64  `json:"totalCount"`
	PageNo     int    `json:"pageNo"`
	PageSize   int    `json:"pageSize"`
}

// UserFilter — фильтры листинга (подстрочный поиск).
type UserFilter struct {
	Username string
	NickName string
	Email    string
}
