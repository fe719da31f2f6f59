// Package store は、取得した画像のディスク保存を管理します。
//
// このパッケージは、タイムスタンプ名の画像ファイルの保存、
// 最新画像ポインタの更新、保持ポリシーによる削除を担当します。
//
// 責務:
//   - 画像ファイルのアトミックな書き込み（一時ファイル + rename）
//   - 最新画像を指す latest ポインタの管理
//   - タイムスタンプ順のファイル一覧と日付範囲フィルタ
//   - 保持ポリシー（最大件数・最大日数）によるローテーション
//
// 仕様:
//   - ファイル名は UTC の YYYYMMDD_HHMMSS 形式（辞書順 = 時刻順）
//   - 書き込み・削除は rename/unlink によりアトミック
//   - latest はシンボリックリンク（非対応FSではコピーで代替）
//   - 最新ファイルはポリシーに関わらず削除されない
package store
