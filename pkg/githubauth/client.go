package githubauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultBaseURL はGitHub APIのデフォルトベースURL。
const DefaultBaseURL = "https://api.github.com"

// userAgent はGitHub APIが必須とするUser-Agentヘッダーの値。
const userAgent = "ghgate"

// User はGitHub APIから取得した正規化済みのユーザー情報。
// 1リクエストの間だけ有効で、リクエスト間で共有・キャッシュしない。
type User struct {
	// Login はGitHubのユーザー名（ハンドル）。必須フィールド。
	Login string `json:"login"`
	// Name は表示名。未設定の場合は空文字列。
	Name string `json:"name"`
	// Email は公開メールアドレス。未設定の場合は空文字列。
	Email string `json:"email"`
	// AvatarURL はアバター画像のURL。未設定の場合は空文字列。
	AvatarURL string `json:"avatar_url"`
}

// TokenValidator はBearerトークンを検証してユーザー情報に変換する。
// 認証ミドルウェアが依存するインターフェース。
type TokenValidator interface {
	// ValidateToken はトークンを検証する。検証できない場合はエラーを返す。
	ValidateToken(ctx context.Context, token string) (*User, error)
}

// Client はGitHubのユーザー情報エンドポイントへ問い合わせるHTTPクライアント。
// トークンごとに毎回問い合わせを行い、結果をキャッシュしない。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// baseURL は接続先GitHub APIのベースURL。
	baseURL string
}

// NewClient は新しいGitHubトークン検証クライアントを生成する。
// baseURLには接続先のベースURL（例: "https://api.github.com"）を、
// timeoutにはプロバイダ呼び出し全体の上限時間を指定する。
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
	}
}

// ValidateToken はBearerトークンをGitHubの /user エンドポイントで検証する。
// 検証に成功した場合は正規化済みのユーザー情報を返す。
// 非200応答、通信エラー、タイムアウト、不正なボディはすべてエラーとして返し、
// 呼び出し側はエラーの種類を区別せず匿名として扱う。
func (c *Client) ValidateToken(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("プロバイダへのリクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("プロバイダへのリクエスト送信に失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("プロバイダがトークンを拒否: status=%d", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("プロバイダ応答のデシリアライズに失敗: %w", err)
	}
	if user.Login == "" {
		return nil, fmt.Errorf("プロバイダ応答にloginフィールドが含まれていない")
	}
	return &user, nil
}
