// Package fetcher は、リモートURLからの定期画像取得を管理します。
//
// このパッケージは、取得ループの実行、リトライとバックオフ、
// 取得成功時のストア保存と保持ポリシー適用を担当します。
//
// 責務:
//   - 設定された間隔（またはcron式）での画像取得
//   - ネットワーク失敗時の指数バックオフ付きリトライ
//   - 取得成功時のアトミック保存・latest更新・ローテーション
//
// 仕様:
//   - 1サイクルは直列に実行され、取得が重なることはない
//   - サイクルの失敗でループは終了しない（プロセス停止まで動き続ける）
//   - リクエスト毎にタイムアウトを適用
package fetcher
