package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xela07ax/meetroom-backend/internal/domain"
	"github.com/xela07ax/meetroom-backend/internal/infra"
)

// UserRepo — хранилище пользователей и их ролей/прав поверх pgx pool.
type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(ctx context.Context, cfg infra.DatabaseConfig) (*UserRepo, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: invalid connection url: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	return &UserRepo{pool: pool}, nil
}

// Ping проверяет доступность базы при старте
func (r *UserRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *UserRepo) Close() {
	r.pool.Close()
}

const userColumns = `id, username, password_hash, email, nick_name, head_pic,
	phone_number, is_frozen, is_admin, created_at, updated_at`

// GetUserByUsername ищет пользователя в нужном скоупе (админ/не админ).
// Возвращает nil, nil если записи нет.
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string, isAdmin bool) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1 AND is_admin = $2`
	return r.queryUser(ctx, query, username, isAdmin)
}

// GetUserByID перечитывает запись по id — так refresh всегда видит
// актуальные роли и права, а не то, что лежало в старом токене.
func (r *UserRepo) GetUserByID(ctx context.Context, id int64, isAdmin bool) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_admin = $2`
	return r.queryUser(ctx, query, id, isAdmin)
}

func (r *UserRepo) queryUser(ctx context.Context, query string, args ...any) (*domain.User, error) {
	u := &domain.User{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.NickName, &u.HeadPic,
		&u.PhoneNumber, &u.IsFrozen, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: user lookup failed: %w", err)
	}

	if err := r.loadAuthz(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// loadAuthz подтягивает роли и права через связки user_roles/role_permissions.
func (r *UserRepo) loadAuthz(ctx context.Context, u *domain.User) error {
	rows, err := r.pool.Query(ctx, `
		SELECT r.name FROM roles r
		JOIN user_roles ur ON ur.role_id = r.id
		WHERE ur.user_id = $1
		ORDER BY r.name`, u.ID)
	if err != nil {
		return fmt.Errorf("postgres: roles lookup failed: %w", err)
	}
	u.Roles, err = collectStrings(rows)
	if err != nil {
		return err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT DISTINCT p.code FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN user_roles ur ON ur.role_id = rp.role_id
		WHERE ur.user_id = $1
		ORDER BY p.code`, u.ID)
	if err != nil {
		return fmt.Errorf("postgres: permissions lookup failed: %w", err)
	}
	u.Permissions, err = collectStrings(rows)
	return err
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("postgres: scan failed: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetUserDetail читает запись по id без учета скоупа — для GET /user/info.
func (r *UserRepo) GetUserDetail(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.queryUser(ctx, query, id)
}

// UsernameExists — проверка уникальности при регистрации (в любом скоупе).
func (r *UserRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: username check failed: %w", err)
	}
	return exists, nil
}

// CreateUser вставляет новую запись и проставляет сгенерированный id.
func (r *UserRepo) CreateUser(ctx context.Context, u *domain.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, email, nick_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id`,
		u.Username, u.PasswordHash, u.Email, u.NickName,
	).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("postgres: failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: user %d not found", id)
	}
	return nil
}

func (r *UserRepo) UpdateUser(ctx context.Context, id int64, nickName, headPic string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET nick_name = $1, head_pic = $2, updated_at = NOW() WHERE id = $3`,
		nickName, headPic, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to update user: %w", err)
	}
	return nil
}

// FreezeUser блокирует аккаунт (заморозка, не удаление).
func (r *UserRepo) FreezeUser(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_frozen = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to freeze user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: user %d not found", id)
	}
	return nil
}

// ListUsers — страничная выборка с подстрочными фильтрами.
func (r *UserRepo) ListUsers(ctx context.Context, pageNo, pageSize int, f domain.UserFilter) (*domain.UserPage, error) {
	where := ` WHERE username LIKE '%' || $1 || '%'
		AND nick_name LIKE '%' || $2 || '%'
		AND email LIKE '%' || $3 || '%'`

	page := &domain.UserPage{PageNo: pageNo, PageSize: pageSize}
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where,
		f.Username, f.NickName, f.Email).Scan(&page.TotalCount)
	if err != nil {
		return nil, fmt.Errorf("postgres: user count failed: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY id LIMIT $4 OFFSET $5`,
		f.Username, f.NickName, f.Email, pageSize, (pageNo-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("postgres: user listing failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var u domain.User
		if err := rows.Scan(
			&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.NickName, &u.HeadPic,
			&u.PhoneNumber, &u.IsFrozen, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan failed: %w", err)
		}
		u.PasswordHash = ""
		page.Users = append(page.Users, u)
	}
	return page, rows.Err()
}
