// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// Bearerトークンによる認証、ルールテーブルに基づく認可、
// パニックリカバリ、CORS設定のミドルウェアを含む。
// 認証と認可は分離されており、認証ミドルウェアはプリンシパルの
// 解決のみを行い、アクセスの許可・拒否は認可ミドルウェアが決定する。
package middleware
