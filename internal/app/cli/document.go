package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/support-rag/internal/core/ingestion"
)

// DocumentProcessAction はドキュメント取り込みコマンドのアクション
func DocumentProcessAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("取り込むファイルを1つ以上指定してください")
	}

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	slog.Info("ドキュメント取り込み処理を開始", "files", len(paths))

	// ファイルの読み込み
	files := make([]ingestion.UploadFile, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("ファイルの読み込みに失敗 (%s): %w", path, err)
		}
		files = append(files, ingestion.UploadFile{
			Name: filepath.Base(path),
			Data: data,
		})
	}

	// 取り込み処理を実行
	result, err := appCtx.Container.IngestionService.ProcessFiles(ctx, files)
	if err != nil {
		slog.Error("ドキュメント取り込み処理に失敗しました", "error", err)
		return err
	}

	// 結果出力
	renderBatchResult(result)

	slog.Info("ドキュメント取り込み処理が完了しました",
		"processed", result.Processed,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"totalChunks", result.TotalChunks,
	)
	return nil
}

// DocumentListAction はドキュメント一覧を表示するコマンドのアクション
func DocumentListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	docs, err := appCtx.Container.IngestionService.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("ドキュメント一覧の取得に失敗: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("登録済みドキュメントはありません")
		return nil
	}

	renderDocumentsTable(docs)
	return nil
}

// renderBatchResult はファイルごとの処理結果をテーブル形式で表示する
func renderBatchResult(result *ingestion.BatchResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("File", "Status", "Chunks", "Error")

	for _, file := range result.Files {
		table.Append(
			file.Name,
			string(file.Status),
			fmt.Sprintf("%d", file.ChunkCount),
			file.Error,
		)
	}

	table.Render()

	fmt.Printf("\n処理: %d件 / スキップ: %d件 / 失敗: %d件 / 合計チャンク数: %d\n",
		result.Processed, result.Skipped, result.Failed, result.TotalChunks)
}

// renderDocumentsTable はドキュメント一覧をテーブル形式で表示する
func renderDocumentsTable(docs []*ingestion.Document) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Type", "Chunks", "Uploaded At")

	for _, doc := range docs {
		table.Append(
			doc.Name,
			doc.FileType,
			fmt.Sprintf("%d", doc.ChunkCount),
			doc.UploadedAt.Format("2006-01-02 15:04"),
		)
	}

	table.Render()
}
