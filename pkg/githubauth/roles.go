package githubauth

const (
	// RoleUser は認証に成功したすべてのユーザーに付与される基本ロール。
	RoleUser = "ROLE_USER"
	// RoleAdmin は管理者リストに登録されたユーザーにのみ付与されるロール。
	RoleAdmin = "ROLE_ADMIN"
)

// RolePolicy はユーザー名からロール集合を導出するポリシー。
// 管理者リストは起動時に固定され、以後変更されない。
type RolePolicy struct {
	// admins は管理者として扱うGitHubユーザー名の集合。
	admins map[string]struct{}
}

// NewRolePolicy は新しいロール付与ポリシーを生成する。
// adminLoginsには管理者ロールを付与するGitHubユーザー名を指定する。
// 照合は大文字小文字を区別する完全一致で行う。
func NewRolePolicy(adminLogins []string) *RolePolicy {
	admins := make(map[string]struct{}, len(adminLogins))
	for _, login := range adminLogins {
		admins[login] = struct{}{}
	}
	return &RolePolicy{admins: admins}
}

// Derive はユーザー名に対して付与するロールの一覧を返す。
// 基本ロールは常に含まれ、管理者リストに登録されている場合のみ
// 管理者ロールが追加される。
func (p *RolePolicy) Derive(login string) []string {
	roles := []string{RoleUser}
	if _, ok := p.admins[login]; ok {
		roles = append(roles, RoleAdmin)
	}
	return roles
}
