package postgres

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"github.com/jinford/claim-rag/internal/platform/database"
)

// testDimension はテスト用の埋め込み次元
const testDimension = 3

// testDB は TestMain で起動した pgvector コンテナへの接続。起動できなかった場合は nil
var testDB *database.Database

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	cleanup, err := startPostgres()
	if err != nil {
		log.Printf("PostgreSQL コンテナを起動できないため統合テストをスキップします: %v", err)
	}

	code := m.Run()
	if cleanup != nil {
		cleanup()
	}
	os.Exit(code)
}

func startPostgres() (func(), error) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, err
	}
	if err := pool.Client.Ping(); err != nil {
		return nil, err
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "pgvector/pgvector",
		Tag:        "pg16",
		Env: []string{
			"POSTGRES_USER=claims",
			"POSTGRES_PASSWORD=secret",
			"POSTGRES_DB=claims",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, err
	}
	_ = resource.Expire(300)

	cleanup := func() {
		if testDB != nil {
			testDB.Close()
		}
		_ = pool.Purge(resource)
	}

	params := database.ConnectionParams{
		URL: fmt.Sprintf("postgres://claims:secret@%s/claims?sslmode=disable", resource.GetHostPort("5432/tcp")),
	}

	pool.MaxWait = 90 * time.Second
	if err := pool.Retry(func() error {
		db, err := database.New(context.Background(), params)
		if err != nil {
			return err
		}
		testDB = db
		return nil
	}); err != nil {
		cleanup()
		return nil, err
	}

	if err := testDB.Migrate(context.Background(), testDimension); err != nil {
		cleanup()
		testDB = nil
		return nil, err
	}

	return cleanup, nil
}

// requireDB は統合テスト用の接続を返し、テーブルを空にする
func requireDB(t *testing.T) *database.Database {
	t.Helper()
	if testDB == nil {
		t.Skip("PostgreSQL が利用できないためスキップします")
	}
	_, err := testDB.Pool.Exec(context.Background(), "TRUNCATE claims, unhandled_claims")
	if err != nil {
		t.Fatalf("failed to truncate tables: %v", err)
	}
	return testDB
}
