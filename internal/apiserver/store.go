package apiserver

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserRecord はデータベースに永続化されたユーザーレコード。
// パスワードハッシュはJSONにシリアライズしない。
type UserRecord struct {
	// ID はユーザーレコードの一意識別子（UUID）。
	ID string `json:"id"`
	// Username はログイン用ユーザー名。重複不可。
	Username string `json:"username"`
	// PasswordHash はbcryptでハッシュ化されたパスワード。
	PasswordHash string `json:"-"`
	// Email はメールアドレス。重複不可。
	Email string `json:"email"`
	// FirstName は名。
	FirstName string `json:"firstName"`
	// LastName は姓。
	LastName string `json:"lastName"`
	// CreatedAt は作成日時。
	CreatedAt string `json:"createdAt"`
	// UpdatedAt は更新日時。
	UpdatedAt string `json:"updatedAt"`
}

// CreateUserParams はユーザーレコード作成時の入力。
type CreateUserParams struct {
	// Username はログイン用ユーザー名。
	Username string
	// Password は平文パスワード。保存前にハッシュ化される。
	Password string
	// Email はメールアドレス。
	Email string
	// FirstName は名。
	FirstName string
	// LastName は姓。
	LastName string
}

// UserStore はユーザーレコードのCRUD操作を提供するデータアクセス層。
type UserStore struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewUserStore は新しいユーザーストアを生成する。
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// userColumns はSELECT句で取得するカラムの並び。scanUserと同期すること。
const userColumns = "id, username, password_hash, email, first_name, last_name, created_at, updated_at"

// scanUser は1行分のユーザーレコードを読み取る。
func scanUser(row interface{ Scan(dest ...any) error }) (*UserRecord, error) {
	var u UserRecord
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.FirstName, &u.LastName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create は新しいユーザーレコードを作成する。
// パスワードはbcryptでハッシュ化してから保存する。
func (s *UserStore) Create(ctx context.Context, params CreateUserParams) (*UserRecord, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}

	id := uuid.New().String()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, email, first_name, last_name) VALUES (?, ?, ?, ?, ?, ?)",
		id, params.Username, string(hash), params.Email, params.FirstName, params.LastName,
	); err != nil {
		return nil, fmt.Errorf("ユーザーレコードの作成に失敗: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID は指定されたIDのユーザーレコードを取得する。
// 存在しない場合はsql.ErrNoRowsを返す。
func (s *UserStore) GetByID(ctx context.Context, id string) (*UserRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// List はすべてのユーザーレコードを作成日時順に取得する。
func (s *UserStore) List(ctx context.Context) ([]*UserRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("ユーザーレコードの一覧取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	users := []*UserRecord{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("ユーザーレコードの読み取りに失敗: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Update は指定されたIDのユーザーレコードの氏名とメールアドレスを更新する。
// 存在しない場合はsql.ErrNoRowsを返す。
func (s *UserStore) Update(ctx context.Context, id, email, firstName, lastName string) (*UserRecord, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET email = ?, first_name = ?, last_name = ?, updated_at = datetime('now') WHERE id = ?",
		email, firstName, lastName, id,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザーレコードの更新に失敗: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("更新結果の取得に失敗: %w", err)
	}
	if affected == 0 {
		return nil, sql.ErrNoRows
	}
	return s.GetByID(ctx, id)
}

// Delete は指定されたIDのユーザーレコードを削除する。
// 存在しない場合はsql.ErrNoRowsを返す。
func (s *UserStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("ユーザーレコードの削除に失敗: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の取得に失敗: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsByUsername は指定されたユーザー名のレコードが存在するかを返す。
func (s *UserStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count); err != nil {
		return false, fmt.Errorf("ユーザー名の重複確認に失敗: %w", err)
	}
	return count > 0, nil
}

// ExistsByEmail は指定されたメールアドレスのレコードが存在するかを返す。
func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ?", email).Scan(&count); err != nil {
		return false, fmt.Errorf("メールアドレスの重複確認に失敗: %w", err)
	}
	return count > 0, nil
}
