package githubauth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestClientValidateToken はトークン検証クライアントを検証する。
func TestClientValidateToken(t *testing.T) {
	t.Parallel()

	t.Run("有効なトークンの場合にユーザー情報を返すこと", func(t *testing.T) {
		t.Parallel()

		provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer valid-token" {
				t.Errorf("Authorization = %q, want %q", got, "Bearer valid-token")
			}
			if got := r.Header.Get("Accept"); got != "application/vnd.github.v3+json" {
				t.Errorf("Accept = %q, want %q", got, "application/vnd.github.v3+json")
			}
			if got := r.Header.Get("User-Agent"); got == "" {
				t.Error("User-Agentヘッダーが設定されていない")
			}
			if r.URL.Path != "/user" {
				t.Errorf("パス = %q, want %q", r.URL.Path, "/user")
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"login":"alice","name":"Alice Example","email":"alice@example.com","avatar_url":"https://example.com/alice.png"}`))
		}))
		t.Cleanup(provider.Close)

		client := NewClient(provider.URL, 5*time.Second)
		user, err := client.ValidateToken(context.Background(), "valid-token")
		if err != nil {
			t.Fatalf("ValidateToken()でエラーが発生: %v", err)
		}
		if user.Login != "alice" {
			t.Errorf("Login = %q, want %q", user.Login, "alice")
		}
		if user.Name != "Alice Example" {
			t.Errorf("Name = %q, want %q", user.Name, "Alice Example")
		}
		if user.Email != "alice@example.com" {
			t.Errorf("Email = %q, want %q", user.Email, "alice@example.com")
		}
		if user.AvatarURL != "https://example.com/alice.png" {
			t.Errorf("AvatarURL = %q, want %q", user.AvatarURL, "https://example.com/alice.png")
		}
	})

	t.Run("任意フィールドが無い場合も検証に成功すること", func(t *testing.T) {
		t.Parallel()

		provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"login":"bob"}`))
		}))
		t.Cleanup(provider.Close)

		client := NewClient(provider.URL, 5*time.Second)
		user, err := client.ValidateToken(context.Background(), "token")
		if err != nil {
			t.Fatalf("ValidateToken()でエラーが発生: %v", err)
		}
		if user.Login != "bob" {
			t.Errorf("Login = %q, want %q", user.Login, "bob")
		}
		if user.Name != "" || user.Email != "" || user.AvatarURL != "" {
			t.Errorf("任意フィールドが空になっていない: %+v", user)
		}
	})

	t.Run("loginフィールドが無い場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"name":"No Login"}`))
		}))
		t.Cleanup(provider.Close)

		client := NewClient(provider.URL, 5*time.Second)
		if _, err := client.ValidateToken(context.Background(), "token"); err == nil {
			t.Error("エラーが返されなかった")
		}
	})

	t.Run("プロバイダが401を返した場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
		}))
		t.Cleanup(provider.Close)

		client := NewClient(provider.URL, 5*time.Second)
		if _, err := client.ValidateToken(context.Background(), "expired-token"); err == nil {
			t.Error("エラーが返されなかった")
		}
	})

	t.Run("プロバイダが500を返した場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(provider.Close)

		client := NewClient(provider.URL, 5*time.Second)
		if _, err := client.ValidateToken(context.Background(), "token"); err == nil {
			t.Error("エラーが返されなかった")
		}
	})

	t.Run("不正なJSONボディの場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{login: broken`))
		}))
		t.Cleanup(provider.Close)

		client := NewClient(provider.URL, 5*time.Second)
		if _, err := client.ValidateToken(context.Background(), "token"); err == nil {
			t.Error("エラーが返されなかった")
		}
	})

	t.Run("タイムアウトした場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"login":"slow"}`))
		}))
		t.Cleanup(provider.Close)

		client := NewClient(provider.URL, 20*time.Millisecond)
		if _, err := client.ValidateToken(context.Background(), "token"); err == nil {
			t.Error("エラーが返されなかった")
		}
	})

	t.Run("コンテキストがキャンセルされた場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"login":"slow"}`))
		}))
		t.Cleanup(provider.Close)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := NewClient(provider.URL, 5*time.Second)
		if _, err := client.ValidateToken(ctx, "token"); err == nil {
			t.Error("エラーが返されなかった")
		}
	})

	t.Run("プロバイダに到達できない場合はエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		client := NewClient("http://127.0.0.1:1", 1*time.Second)
		if _, err := client.ValidateToken(context.Background(), "token"); err == nil {
			t.Error("エラーが返されなかった")
		}
	})
}
