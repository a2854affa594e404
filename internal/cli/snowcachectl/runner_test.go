package snowcachectl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/snowcache/snowcache/internal/warehouse"
)

func TestRunFetchPrintsResult(t *testing.T) {
	fake := &fakeClient{
		fetchResult: warehouse.Table{
			Columns: []warehouse.Column{
				{Name: "id", Type: warehouse.TypeInteger},
				{Name: "name", Type: warehouse.TypeString},
			},
			Rows: [][]any{{int64(1), "alpha"}},
		},
	}
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	code := Run(context.Background(), []string{"-var", "id=1", "fetch", "select * from users where id = $id"}, Options{
		Client: fake,
		Stdout: stdout,
		Stderr: stderr,
	})
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, stderr.String())
	}
	if fake.fetchSource != "select * from users where id = $id" {
		t.Fatalf("source = %q", fake.fetchSource)
	}
	if fake.fetchVars["id"] != "1" {
		t.Fatalf("vars = %v", fake.fetchVars)
	}
	if !fake.fetchUseCache {
		t.Fatal("cache should be used by default")
	}
	if !strings.Contains(stdout.String(), `"row_count": 1`) {
		t.Fatalf("stdout = %s", stdout.String())
	}
}

func TestRunFetchNoCacheFlag(t *testing.T) {
	fake := &fakeClient{}
	code := Run(context.Background(), []string{"-no-cache", "fetch", "select 1"}, Options{Client: fake})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if fake.fetchUseCache {
		t.Fatal("-no-cache should bypass the cache")
	}
}

func TestRunFetchFailure(t *testing.T) {
	fake := &fakeClient{fetchErr: errors.New("boom")}
	stderr := &bytes.Buffer{}
	code := Run(context.Background(), []string{"fetch", "select 1"}, Options{Client: fake, Stderr: stderr})
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "boom") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestRunExec(t *testing.T) {
	fake := &fakeClient{}
	code := Run(context.Background(), []string{"exec", "sql/setup.sql"}, Options{Client: fake})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if fake.execPath != "sql/setup.sql" {
		t.Fatalf("exec path = %q", fake.execPath)
	}
}

func TestRunDropRequiresTarget(t *testing.T) {
	fake := &fakeClient{}
	code := Run(context.Background(), []string{"drop"}, Options{Client: fake})
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if fake.dropCalled {
		t.Fatal("drop should not be called without a full target")
	}
}

func TestRunDrop(t *testing.T) {
	fake := &fakeClient{}
	code := Run(context.Background(), []string{"-database", "db", "-schema", "sc", "-table", "t", "drop"}, Options{Client: fake})
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !fake.dropCalled || fake.dropTable != "t" {
		t.Fatalf("drop = %v/%q", fake.dropCalled, fake.dropTable)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	stderr := &bytes.Buffer{}
	code := Run(context.Background(), []string{"compact"}, Options{Client: &fakeClient{}, Stderr: stderr})
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "unknown command") {
		t.Fatalf("stderr = %s", stderr.String())
	}
}

func TestRunRejectsBadVarFlag(t *testing.T) {
	code := Run(context.Background(), []string{"-var", "novalue", "fetch", "select 1"}, Options{Client: &fakeClient{}})
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

type fakeClient struct {
	fetchSource   string
	fetchVars     map[string]string
	fetchUseCache bool
	fetchResult   warehouse.Table
	fetchErr      error
	execPath      string
	dropCalled    bool
	dropTable     string
}

func (f *fakeClient) FetchData(_ context.Context, querySource string, variables map[string]string, useCache bool) (warehouse.Table, error) {
	f.fetchSource = querySource
	f.fetchVars = variables
	f.fetchUseCache = useCache
	return f.fetchResult, f.fetchErr
}

func (f *fakeClient) ExecuteSQL(_ context.Context, filePath string, variables map[string]string) error {
	f.execPath = filePath
	return nil
}

func (f *fakeClient) DropTable(_ context.Context, database, schema, table string) error {
	f.dropCalled = true
	f.dropTable = table
	return nil
}
