package apiserver

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/nao1215/ghgate/pkg/githubauth"
	"github.com/nao1215/ghgate/pkg/middleware"
)

// Server はAPIサーバーのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// store はユーザーレコードのデータアクセス層。
	store *UserStore
	// db はSQLiteデータベース接続。
	db *sql.DB
	// validator はBearerトークンの検証クライアント。
	validator githubauth.TokenValidator
	// policy はロール付与ポリシー。
	policy *githubauth.RolePolicy
}

// NewServer は新しいAPIサーバーを生成する。
// SQLiteデータベースの初期化、GitHubクライアントと
// ロールポリシーの構築、ルーティングの設定を行う。
func NewServer(port string) (*Server, error) {
	dbPath := getEnvOr("DB_PATH", "/data/apiserver.db")
	sqlDB, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	timeoutSec, err := strconv.Atoi(getEnvOr("GITHUB_TIMEOUT", "10"))
	if err != nil || timeoutSec <= 0 {
		return nil, fmt.Errorf("GITHUB_TIMEOUTの値が不正: %q", os.Getenv("GITHUB_TIMEOUT"))
	}

	router := gin.New()
	router.Use(gin.Logger())

	s := &Server{
		router:    router,
		port:      port,
		store:     NewUserStore(sqlDB),
		db:        sqlDB,
		validator: githubauth.NewClient(getEnvOr("GITHUB_API_URL", githubauth.DefaultBaseURL), time.Duration(timeoutSec)*time.Second),
		policy:    githubauth.NewRolePolicy(parseAdminUsers(os.Getenv("ADMIN_USERS"))),
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// accessRules はパスパターンごとのアクセス条件を定義する。
// 先頭から順に照合されるため、より具体的なパターンを先に並べること。
// どのルールにも一致しないパスは認証必須として扱われる。
func accessRules() []middleware.Rule {
	return []middleware.Rule{
		{Pattern: "/api/public/**", Access: middleware.AccessPublic},
		{Pattern: "/api/auth/login-info", Access: middleware.AccessPublic},
		{Pattern: "/api/auth/**", Access: middleware.AccessAuthenticated},
		{Pattern: "/api/user/**", Access: middleware.AccessRole, Role: githubauth.RoleUser},
		{Pattern: "/api/users/**", Access: middleware.AccessRole, Role: githubauth.RoleAdmin},
		{Pattern: "/api/admin/**", Access: middleware.AccessRole, Role: githubauth.RoleAdmin},
	}
}

// setupRoutes はミドルウェアチェーンとAPIルーティングを設定する。
// 認証ミドルウェアは認可ミドルウェアより先に適用し、
// ハンドラ実行前にプリンシパルの解決と認可判断を完了させる。
func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.TokenAuth(s.validator, s.policy))
	s.router.Use(middleware.Authorize(accessRules()))

	api := s.router.Group("/api")
	{
		// 公開エンドポイント（認証不要）
		api.GET("/public/health", s.handlePublicHealth())

		auth := api.Group("/auth")
		{
			// トークンの取得手順の案内（認証不要）
			auth.GET("/login-info", s.handleLoginInfo())
			// 現在の認証状態の確認
			auth.GET("/user", s.handleCurrentUser())
		}

		user := api.Group("/user")
		{
			// 認証済みユーザーのプロフィール
			user.GET("/profile", s.handleUserProfile())
			// 認証済みユーザー向けのサンプルデータ
			user.GET("/data", s.handleUserData())
		}

		users := api.Group("/users")
		{
			// ユーザーレコードのCRUD（管理者のみ）
			users.GET("", s.handleListUsers())
			users.GET("/:id", s.handleGetUser())
			users.POST("", s.handleCreateUser())
			users.PUT("/:id", s.handleUpdateUser())
			users.DELETE("/:id", s.handleDeleteUser())
		}

		admin := api.Group("/admin")
		{
			// 管理者向けエンドポイント
			admin.GET("/users", s.handleAdminUsers())
			admin.POST("/settings", s.handleAdminSettings())
		}
	}
}

// handlePublicHealth は公開ヘルスチェックのハンドラを返す。
func (s *Server) handlePublicHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "UP",
			"message": "Public endpoint is accessible",
		})
	}
}

// handleLoginInfo はトークン取得手順を案内するハンドラを返す。
func (s *Server) handleLoginInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Token-based authentication required",
			"instructions": gin.H{
				"step1":   "Get your GitHub Personal Access Token from: https://github.com/settings/tokens",
				"step2":   "Include the token in Authorization header: Bearer <your-token>",
				"step3":   "Make API calls to protected endpoints with the token",
				"example": `curl -H "Authorization: Bearer <your-token>" http://localhost:8080/api/auth/user`,
			},
			"scopes_required": "No specific scopes required for basic authentication, but 'user:email' for email access",
		})
	}
}

// handleCurrentUser は現在の認証状態を返すハンドラを返す。
func (s *Server) handleCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := middleware.CurrentPrincipal(c)
		if principal == nil {
			c.JSON(http.StatusOK, gin.H{"authenticated": false})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"authenticated": true,
			"username":      principal.User.Login,
			"name":          principal.User.Name,
			"email":         principal.User.Email,
			"avatar":        principal.User.AvatarURL,
			"authorities":   principal.Authorities,
		})
	}
}

// handleUserProfile は認証済みユーザーのプロフィールを返すハンドラを返す。
func (s *Server) handleUserProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := middleware.CurrentPrincipal(c)

		c.JSON(http.StatusOK, gin.H{
			"username":      principal.User.Login,
			"name":          principal.User.Name,
			"email":         principal.User.Email,
			"avatarUrl":     principal.User.AvatarURL,
			"authorities":   principal.Authorities,
			"provider":      "GitHub",
			"authenticated": true,
		})
	}
}

// handleUserData は認証済みユーザー向けのサンプルデータを返すハンドラを返す。
func (s *Server) handleUserData() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := middleware.CurrentPrincipal(c)

		c.JSON(http.StatusOK, gin.H{
			"message":        fmt.Sprintf("Hello %s!", principal.User.Login),
			"githubUsername": principal.User.Login,
			"displayName":    principal.User.Name,
			"email":          principal.User.Email,
			"authorities":    principal.Authorities,
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
			"authProvider":   "GitHub Token",
		})
	}
}

// handleAdminUsers は永続化済みユーザーの概要を返す管理者向けハンドラを返す。
func (s *Server) handleAdminUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := middleware.CurrentPrincipal(c)

		records, err := s.store.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー一覧の取得に失敗しました"})
			return
		}

		usernames := make([]string, 0, len(records))
		for _, r := range records {
			usernames = append(usernames, r.Username)
		}

		c.JSON(http.StatusOK, gin.H{
			"users":            usernames,
			"total":            len(usernames),
			"message":          "Admin endpoint accessed successfully",
			"accessedBy":       principal.User.Login,
			"adminAuthorities": principal.Authorities,
			"timestamp":        time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// handleAdminSettings は設定更新を受け付ける管理者向けハンドラを返す。
func (s *Server) handleAdminSettings() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := middleware.CurrentPrincipal(c)

		var settings map[string]any
		if err := c.ShouldBindJSON(&settings); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "Settings updated successfully",
			"updatedBy":     principal.User.Login,
			"settingsCount": len(settings),
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
			"authProvider":  "GitHub Token",
		})
	}
}

// createUserRequest はユーザーレコード作成リクエストのJSON構造。
type createUserRequest struct {
	// Username はログイン用ユーザー名。
	Username string `json:"username" binding:"required"`
	// Password は平文パスワード。
	Password string `json:"password" binding:"required"`
	// Email はメールアドレス。
	Email string `json:"email" binding:"required"`
	// FirstName は名。
	FirstName string `json:"firstName"`
	// LastName は姓。
	LastName string `json:"lastName"`
}

// updateUserRequest はユーザーレコード更新リクエストのJSON構造。
type updateUserRequest struct {
	// Email はメールアドレス。
	Email string `json:"email" binding:"required"`
	// FirstName は名。
	FirstName string `json:"firstName"`
	// LastName は姓。
	LastName string `json:"lastName"`
}

// handleListUsers はユーザーレコード一覧を返すハンドラを返す。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.store.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー一覧の取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, users)
	}
}

// handleGetUser は指定されたIDのユーザーレコードを返すハンドラを返す。
func (s *Server) handleGetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.store.GetByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// handleCreateUser はユーザーレコードを作成するハンドラを返す。
// ユーザー名とメールアドレスの重複を確認してから作成する。
func (s *Server) handleCreateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
			return
		}

		ctx := c.Request.Context()
		if taken, err := s.store.ExistsByUsername(ctx, req.Username); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザー名の確認に失敗しました"})
			return
		} else if taken {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username is already taken!"})
			return
		}
		if used, err := s.store.ExistsByEmail(ctx, req.Email); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "メールアドレスの確認に失敗しました"})
			return
		} else if used {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email is already in use!"})
			return
		}

		user, err := s.store.Create(ctx, CreateUserParams{
			Username:  req.Username,
			Password:  req.Password,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの作成に失敗しました"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "User created successfully",
			"user":    user,
		})
	}
}

// handleUpdateUser はユーザーレコードを更新するハンドラを返す。
func (s *Server) handleUpdateUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストボディが不正です"})
			return
		}

		user, err := s.store.Update(c.Request.Context(), c.Param("id"), req.Email, req.FirstName, req.LastName)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの更新に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "User updated successfully",
			"user":    user,
		})
	}
}

// handleDeleteUser はユーザーレコードを削除するハンドラを返す。
func (s *Server) handleDeleteUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := s.store.Delete(c.Request.Context(), c.Param("id"))
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ユーザーの削除に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
	}
}

// parseAdminUsers はカンマ区切りの管理者ユーザー名リストをパースする。
// 前後の空白は除去し、空の要素は無視する。
func parseAdminUsers(value string) []string {
	var admins []string
	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			admins = append(admins, name)
		}
	}
	return admins
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
