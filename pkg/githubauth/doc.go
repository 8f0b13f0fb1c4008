// Package githubauth はGitHubをアイデンティティプロバイダとして利用する
// トークン検証クライアントとロール付与ポリシーを提供する。
//
// クライアントはBearerトークンをGitHubのユーザー情報エンドポイントに
// 問い合わせて正規化されたユーザー情報に変換する。ポリシーは解決済みの
// ユーザーに対して付与するロール集合を決定する。
package githubauth
