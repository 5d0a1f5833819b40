//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/codeindex/internal/indexer"
	"github.com/cloo-solutions/codeindex/internal/storage"
	"github.com/cloo-solutions/codeindex/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const deadLetterBucket = "codeindex-dead-letters"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T         *testing.T
	Ctx       context.Context
	PostgresC *testutil.PostgresContainer
	RustFSC   *testutil.RustFSContainer
	Pool      *pgxpool.Pool
	S3Client  *storage.S3Client
	BinaryDir string
}

// SetupE2EEnv starts a pgvector container and builds the daemon binary.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC)

	env := &E2ETestEnv{
		T:         t,
		Ctx:       ctx,
		PostgresC: pgC,
		Pool:      pool,
	}
	env.BuildBinary()

	return env
}

// StartRustFS adds an S3-compatible store for the dead-letter archive.
func (e *E2ETestEnv) StartRustFS() {
	e.RustFSC = testutil.NewRustFSContainer(e.Ctx, e.T)

	client, err := storage.NewS3Client(e.Ctx, storage.S3ClientConfig{
		Endpoint:        e.RustFSC.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          deadLetterBucket,
		UsePathStyle:    true,
	})
	if err != nil {
		e.T.Fatalf("failed to create S3 client: %v", err)
	}
	e.S3Client = client
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinary builds codeindexd into a temporary directory
func (e *E2ETestEnv) BuildBinary() {
	tmpDir, err := os.MkdirTemp("", "codeindex-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", e.Binary(), "./cmd/codeindexd")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build codeindexd: %v\n%s", err, out)
	}
}

func (e *E2ETestEnv) Binary() string {
	return filepath.Join(e.BinaryDir, "codeindexd")
}

// DaemonEnv is the environment the daemon runs with: the test database, the
// static embedder and no .env lookups from the caller's directory.
func (e *E2ETestEnv) DaemonEnv(extra ...string) []string {
	env := append(os.Environ(),
		"CODEINDEX_DB_HOST="+e.PostgresC.Host,
		"CODEINDEX_DB_PORT="+e.PostgresC.Port,
		"CODEINDEX_DB_USER="+e.PostgresC.User,
		"CODEINDEX_DB_PASSWORD="+e.PostgresC.Password,
		"CODEINDEX_DB_NAME="+e.PostgresC.Database,
		"CODEINDEX_EMBEDDING_PROVIDER=static",
		"CODEINDEX_STARTUP_TIMEOUT=20s",
		"CODEINDEX_LOG_LEVEL=debug",
	)
	if e.RustFSC != nil {
		env = append(env,
			"CODEINDEX_DEADLETTER_BUCKET="+deadLetterBucket,
			"CODEINDEX_S3_ENDPOINT="+e.RustFSC.Endpoint(),
			"CODEINDEX_S3_ACCESS_KEY_ID=rustfsadmin",
			"CODEINDEX_S3_SECRET_ACCESS_KEY=rustfsadmin",
		)
	}
	return append(env, extra...)
}

// StartIndexer launches the daemon through the parent-side client.
func (e *E2ETestEnv) StartIndexer(extraEnv ...string) *indexer.Indexer {
	idx, err := indexer.Start(e.Ctx, e.Binary(),
		indexer.WithEnv(e.DaemonEnv(extraEnv...)...),
		indexer.WithDir(e.BinaryDir),
		indexer.WithReadyTimeout(60*time.Second),
	)
	if err != nil {
		e.T.Fatalf("failed to start indexer: %v", err)
	}
	return idx
}

// RunResult is the outcome of one daemon invocation.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// StdoutLines splits stdout into lines, dropping the trailing newline.
func (r RunResult) StdoutLines() []string {
	out := strings.TrimSuffix(r.Stdout, "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// Run executes codeindexd with stdin and waits for it to exit.
func (e *E2ETestEnv) Run(stdin string, env []string, args ...string) RunResult {
	ctx, cancel := context.WithTimeout(e.Ctx, 90*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.Binary(), args...)
	cmd.Dir = e.BinaryDir
	cmd.Env = env
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		e.T.Fatalf("failed to run codeindexd %v: %v", args, err)
	}
	return result
}

// StoredContent returns the content stored for a chunk id in the default
// collection, and how many rows hold that id.
func (e *E2ETestEnv) StoredContent(id string) (string, int) {
	rows, err := e.Pool.Query(e.Ctx, `
		SELECT c.content
		FROM chunks c
		JOIN collections col ON col.id = c.collection_id
		WHERE col.name = 'code_chunks' AND c.id = $1`, id)
	if err != nil {
		e.T.Fatalf("failed to query chunk %s: %v", id, err)
	}
	defer rows.Close()

	var content string
	count := 0
	for rows.Next() {
		if err := rows.Scan(&content); err != nil {
			e.T.Fatalf("failed to scan chunk %s: %v", id, err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		e.T.Fatalf("failed to read chunk %s: %v", id, err)
	}
	return content, count
}

// WaitForKeys polls the dead-letter bucket until at least n objects exist.
func (e *E2ETestEnv) WaitForKeys(prefix string, n int, timeout time.Duration) []string {
	deadline := time.Now().Add(timeout)
	for {
		keys, err := e.S3Client.ListKeys(e.Ctx, prefix)
		if err == nil && len(keys) >= n {
			return keys
		}
		if time.Now().After(deadline) {
			e.T.Fatalf("expected %d objects under %s, got %d (last error: %v)", n, prefix, len(keys), err)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func requestLine(id string, chunks ...string) string {
	var b strings.Builder
	b.WriteString(`{`)
	if id != "" {
		fmt.Fprintf(&b, `"meta":{"id":%q},`, id)
	}
	b.WriteString(`"chunks":[`)
	b.WriteString(strings.Join(chunks, ","))
	b.WriteString(`]}`)
	return b.String()
}
