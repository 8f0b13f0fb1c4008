package middleware

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ghgate/pkg/githubauth"
)

// contextKeyPrincipal はGinコンテキストに認証済みプリンシパルを格納するためのキー。
const contextKeyPrincipal = "principal"

// Principal は1リクエストの間だけ有効な認証結果。
// TokenAuthミドルウェアが一度だけ設定し、以降は読み取り専用として扱う。
type Principal struct {
	// User はプロバイダで解決されたユーザー情報。
	User *githubauth.User
	// Authorities はロールポリシーが付与したロールの一覧。
	Authorities []string
	// Authenticated は認証に成功したかどうか。
	Authenticated bool
}

// HasAuthority は指定されたロールを保持しているかを返す。
func (p *Principal) HasAuthority(authority string) bool {
	for _, a := range p.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// TokenAuth はBearerトークンを検証するGinミドルウェアを返す。
// Authorizationヘッダーが無い、形式が不正、または検証に失敗した場合は
// リクエストを失敗させず匿名のまま後続処理に進める。
// 検証に成功した場合のみ、ロールポリシーで導出したロールとともに
// プリンシパルをコンテキストへ設定する。認可判断は行わない。
func TokenAuth(validator githubauth.TokenValidator, policy *githubauth.RolePolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Next()
			return
		}

		user, err := validateToken(c.Request.Context(), validator, token)
		if err != nil {
			// トークンの値はログに出力しない
			log.Printf("トークン検証に失敗したため匿名として処理を継続: %v", err)
			c.Next()
			return
		}

		c.Set(contextKeyPrincipal, &Principal{
			User:          user,
			Authorities:   policy.Derive(user.Login),
			Authenticated: true,
		})
		c.Next()
	}
}

// validateToken はプロバイダ呼び出し中のpanicをエラーに変換して検証を実行する。
// プロバイダ起因の予期しない異常でリクエストパイプラインを中断させない。
func validateToken(ctx context.Context, validator githubauth.TokenValidator, token string) (user *githubauth.User, err error) {
	defer func() {
		if r := recover(); r != nil {
			user = nil
			err = fmt.Errorf("トークン検証中にpanicが発生: %v", r)
		}
	}()
	return validator.ValidateToken(ctx, token)
}

// extractBearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// スキーム名は大文字小文字を区別せず、区切りは半角スペース1つのみを許容する。
// ヘッダーが無い、スキームが異なる、トークンが空の場合は空文字列を返す。
func extractBearerToken(header string) string {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	if token == "" || strings.HasPrefix(token, " ") {
		return ""
	}
	return token
}

// CurrentPrincipal はGinコンテキストから認証済みプリンシパルを取得する。
// TokenAuthミドルウェアが設定していない（匿名の）場合はnilを返す。
func CurrentPrincipal(c *gin.Context) *Principal {
	v, ok := c.Get(contextKeyPrincipal)
	if !ok {
		return nil
	}
	p, ok := v.(*Principal)
	if !ok {
		return nil
	}
	return p
}
