// Package apiserver はGitHubトークン認証付きREST APIサーバーの内部実装を提供する。
//
// すべてのリクエストは認証ミドルウェアと認可ミドルウェアを通過してから
// ハンドラに到達する。認証はリクエストごとにGitHubへトークンを問い合わせて
// 行い、セッションやトークンの発行は行わない（リライングパーティとしてのみ
// 動作する）。認可はパスパターンごとのルールテーブルで判定する。
// 永続化するのはユーザーレコードのCRUDのみで、認証状態は一切保存しない。
package apiserver
