package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jinford/claim-rag/internal/core/claim"
)

// SeedImagesAction は画像ディレクトリから請求を一括投入するコマンドのアクション
func SeedImagesAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	dir := cmd.String("dir")
	if dir == "" {
		dir = appCtx.Config.Seed.DatasetDir
	}

	seeder := appCtx.Container.Seeder
	if cmd.IsSet("abort-on-error") {
		seeder = appCtx.Container.NewSeeder(!cmd.Bool("abort-on-error"))
	}

	report, err := seeder.SeedDirectory(ctx, dir)
	if report != nil {
		fmt.Printf("✓ 一括投入: 処理 %d件 / スキップ %d件 / 失敗 %d件\n", report.Processed, report.Skipped, len(report.Failed))
		for _, f := range report.Failed {
			fmt.Printf("  - %s: %v\n", f.ImagePath, f.Err)
		}
	}
	if err != nil {
		return fmt.Errorf("一括投入に失敗: %w", err)
	}

	return nil
}

// SeedDatasetAction は評価済みの静的データセット（JSON 配列）を投入するコマンドのアクション
func SeedDatasetAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	records, err := claim.LoadDataset(cmd.String("file"))
	if err != nil {
		return fmt.Errorf("データセットの読み込みに失敗: %w", err)
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	report, err := appCtx.Container.DatasetImporter.Import(ctx, records)
	if report != nil {
		fmt.Printf("✓ データセット投入: 処理 %d件 / スキップ %d件 / 失敗 %d件\n", report.Processed, report.Skipped, len(report.Failed))
		for _, f := range report.Failed {
			fmt.Printf("  - %s: %v\n", f.ImagePath, f.Err)
		}
	}
	if err != nil {
		return fmt.Errorf("データセット投入に失敗: %w", err)
	}

	return nil
}

// SeedEmbeddingsAction は埋め込み未生成の請求に埋め込みを付与するコマンドのアクション
func SeedEmbeddingsAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	report, err := appCtx.Container.Backfiller.Backfill(ctx)
	if err != nil {
		return fmt.Errorf("埋め込みの付与に失敗: %w", err)
	}

	fmt.Printf("✓ 埋め込みの付与: 更新 %d件 / 失敗 %d件\n", report.Updated, report.Failed)
	return nil
}
