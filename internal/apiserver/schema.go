package apiserver

import (
	"database/sql"
	"fmt"
)

// スキーマ定義。永続化するユーザーレコードを保持する。
const schema = `
CREATE TABLE IF NOT EXISTS users (
    -- ユーザーレコードの一意識別子
    id TEXT PRIMARY KEY,
    -- ログイン用ユーザー名（重複不可）
    username TEXT NOT NULL,
    -- bcryptでハッシュ化されたパスワード
    password_hash TEXT NOT NULL,
    -- メールアドレス（重複不可）
    email TEXT NOT NULL,
    -- 名
    first_name TEXT NOT NULL DEFAULT '',
    -- 姓
    last_name TEXT NOT NULL DEFAULT '',
    -- 作成日時
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    -- 更新日時
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username
    ON users(username);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
    ON users(email);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
