package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	commands "github.com/jinford/claim-rag/internal/interface/cli"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "環境変数ファイルパス",
		Value: ".env",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "claim-rag",
		Usage: "車両損傷画像の評価・類似請求検索・修理費見積を行う請求受付サービス",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "サーバ関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "HTTPサーバを起動",
						Flags: []cli.Flag{
							envFlag(),
							&cli.IntFlag{
								Name:  "port",
								Usage: "HTTPポート（省略時は環境変数 PORT またはデフォルトの9090）",
							},
						},
						Action: commands.ServerStartAction,
					},
				},
			},
			{
				Name:  "seed",
				Usage: "請求ストアの初期投入コマンド",
				Commands: []*cli.Command{
					{
						Name:  "images",
						Usage: "画像ディレクトリを評価して請求を投入",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:  "dir",
								Usage: "画像ディレクトリ（省略時は環境変数 SEED_DATASET_DIR）",
							},
							&cli.BoolFlag{
								Name:  "abort-on-error",
								Usage: "画像の処理に失敗した時点で中断する",
							},
						},
						Action: commands.SeedImagesAction,
					},
					{
						Name:  "dataset",
						Usage: "評価済みの静的データセット（JSON 配列）を投入",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "file",
								Usage:    "データセットファイルパス",
								Required: true,
							},
						},
						Action: commands.SeedDatasetAction,
					},
					{
						Name:   "embeddings",
						Usage:  "埋め込みが未生成の請求に埋め込みを付与",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.SeedEmbeddingsAction,
					},
				},
			},
			{
				Name:  "claim",
				Usage: "請求関連コマンド",
				Commands: []*cli.Command{
					{
						Name:  "assess",
						Usage: "画像1枚を評価して結果をJSONで出力",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{
								Name:     "image",
								Usage:    "画像ファイルパス",
								Required: true,
							},
						},
						Action: commands.ClaimAssessAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
