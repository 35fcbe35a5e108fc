package database

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

const dimensionPlaceholder = "{{EMBEDDING_DIMENSION}}"

// Schema は埋め込み次元を反映したスキーマDDLを返します
func Schema(dimension int) (string, error) {
	if dimension <= 0 {
		return "", fmt.Errorf("embedding dimension must be positive: %d", dimension)
	}
	return strings.ReplaceAll(schemaSQL, dimensionPlaceholder, strconv.Itoa(dimension)), nil
}

// Migrate はスキーマを適用します。すべて IF NOT EXISTS なので何度実行してもよい
func (db *Database) Migrate(ctx context.Context, dimension int) error {
	ddl, err := Schema(dimension)
	if err != nil {
		return err
	}

	// 引数なしの Exec は simple protocol になるので複数文をまとめて送れる
	if _, err := db.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
