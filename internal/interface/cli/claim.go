package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jinford/claim-rag/internal/core/claim"
	"github.com/jinford/claim-rag/internal/core/imagecodec"
)

// ClaimAssessAction は画像1枚をオンライン取り込みと同じ流れで処理し、結果をJSONで出力する
func ClaimAssessAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	imagePath := cmd.String("image")

	image, err := imagecodec.EncodeFile(imagePath)
	if err != nil {
		return err
	}

	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	result, err := appCtx.Container.Pipeline.CreateClaim(ctx, claim.CreateParams{Image: image})
	if err != nil {
		return fmt.Errorf("画像の評価に失敗: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("結果の出力に失敗: %w", err)
	}

	return nil
}
