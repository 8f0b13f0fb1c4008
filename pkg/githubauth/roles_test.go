package githubauth

import (
	"slices"
	"testing"
)

// TestRolePolicyDerive はロール付与ポリシーを検証する。
func TestRolePolicyDerive(t *testing.T) {
	t.Parallel()

	t.Run("一般ユーザーには基本ロールのみ付与されること", func(t *testing.T) {
		t.Parallel()

		policy := NewRolePolicy([]string{"boss"})
		roles := policy.Derive("alice")

		if !slices.Equal(roles, []string{RoleUser}) {
			t.Errorf("roles = %v, want %v", roles, []string{RoleUser})
		}
	})

	t.Run("管理者リストのユーザーには基本ロールと管理者ロールが付与されること", func(t *testing.T) {
		t.Parallel()

		policy := NewRolePolicy([]string{"boss", "root"})
		roles := policy.Derive("boss")

		if !slices.Contains(roles, RoleUser) {
			t.Errorf("基本ロールが含まれていない: %v", roles)
		}
		if !slices.Contains(roles, RoleAdmin) {
			t.Errorf("管理者ロールが含まれていない: %v", roles)
		}
	})

	t.Run("照合は大文字小文字を区別すること", func(t *testing.T) {
		t.Parallel()

		policy := NewRolePolicy([]string{"Boss"})
		roles := policy.Derive("boss")

		if slices.Contains(roles, RoleAdmin) {
			t.Errorf("大文字小文字が異なるのに管理者ロールが付与された: %v", roles)
		}
	})

	t.Run("管理者リストが空でも基本ロールは付与されること", func(t *testing.T) {
		t.Parallel()

		policy := NewRolePolicy(nil)
		roles := policy.Derive("anyone")

		if !slices.Equal(roles, []string{RoleUser}) {
			t.Errorf("roles = %v, want %v", roles, []string{RoleUser})
		}
	})
}
