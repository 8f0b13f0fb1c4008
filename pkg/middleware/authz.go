package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Access は経路に要求されるアクセス条件の種類。
type Access int

const (
	// AccessPublic は認証不要で誰でもアクセスできることを表す。
	AccessPublic Access = iota
	// AccessAuthenticated は認証済みであれば誰でもアクセスできることを表す。
	AccessAuthenticated
	// AccessRole は指定されたロールの保持を要求することを表す。
	AccessRole
)

// Rule はパスパターンとアクセス条件の組。
// パターンは完全一致、または末尾が "/**" の前方一致を指定できる。
type Rule struct {
	// Pattern は照合するパスパターン（例: "/api/admin/**"）。
	Pattern string
	// Access は要求するアクセス条件。
	Access Access
	// Role はAccessRoleの場合に要求するロール名。
	Role string
}

// Authorize はルールテーブルに基づいてアクセス制御を行うGinミドルウェアを返す。
// ルールは先頭から順に照合し、最初にパスへ一致したものを適用する。
// どのルールにも一致しないパスは認証必須として扱う（フェイルクローズ）。
// 拒否時は固定のJSONボディで401または403を返し、以降の処理を中断する。
// 未認証の拒否は常に401とし、ロール不足の403より優先する。
func Authorize(rules []Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		access := AccessAuthenticated
		role := ""
		for _, rule := range rules {
			if matchPath(rule.Pattern, c.Request.URL.Path) {
				access = rule.Access
				role = rule.Role
				break
			}
		}

		if access == AccessPublic {
			c.Next()
			return
		}

		principal := CurrentPrincipal(c)
		if principal == nil || !principal.Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "Valid token required",
			})
			return
		}

		if access == AccessRole && !principal.HasAuthority(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": "Insufficient permissions",
			})
			return
		}

		c.Next()
	}
}

// matchPath はパスがパターンに一致するかを判定する。
// 末尾が "/**" のパターンは、その接頭辞自身および配下のすべてのパスに一致する。
func matchPath(pattern, path string) bool {
	if prefix, found := strings.CutSuffix(pattern, "/**"); found {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
	return path == pattern
}
