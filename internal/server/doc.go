// Package server は、HTTPサーバーとAPIエンドポイントを管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// 画像の配信、タイムラプスジョブAPIの提供を担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - 最新画像・画像一覧・画像ダウンロードの配信
//   - タイムラプスジョブの投入とステータス照会API
//   - グレースフルシャットダウン
//
// 仕様:
//   - gin-gonic/gin を使用
//   - エラーレスポンスは {error, message, timestamp} 形式
//   - シグナル (SIGINT/SIGTERM) で停止
package server
