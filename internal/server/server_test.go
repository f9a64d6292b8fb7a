package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExporter struct {
	path  string
	err   error
	calls int
}

func (f *fakeExporter) Export(context.Context) (string, error) {
	f.calls++
	return f.path, f.err
}

// serialExporter rewrites one shared workbook per call and records how many
// calls overlap.
type serialExporter struct {
	path   string
	seq    atomic.Int32
	active atomic.Int32
	peak   atomic.Int32
}

func (e *serialExporter) Export(context.Context) (string, error) {
	n := e.active.Add(1)
	defer e.active.Add(-1)
	for {
		peak := e.peak.Load()
		if n <= peak || e.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	token := "workbook-" + strconv.Itoa(int(e.seq.Add(1)))
	if err := os.WriteFile(e.path, []byte(token), 0o644); err != nil {
		return "", err
	}
	time.Sleep(20 * time.Millisecond)
	return e.path, nil
}

func newTestServer(t *testing.T, exporter Exporter) (*httptest.Server, string) {
	t.Helper()
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>viewer</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "data.json"), []byte(`{"scopes":[],"bidItems":{}}`), 0o644))

	ts := httptest.NewServer(New(zerolog.Nop(), exporter, static).Handler())
	t.Cleanup(ts.Close)
	return ts, static
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t, &fakeExporter{})
	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStaticFilesAndCacheHeaders(t *testing.T) {
	ts, _ := newTestServer(t, &fakeExporter{})

	resp, body := get(t, ts.URL+"/data.json")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"scopes":[],"bidItems":{}}`, body)
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no-cache", resp.Header.Get("Pragma"))
	assert.Equal(t, "0", resp.Header.Get("Expires"))
	assert.Equal(t, "GET, POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", resp.Header.Get("Access-Control-Allow-Headers"))

	resp, body = get(t, ts.URL+"/index.html")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "viewer")
	assert.Empty(t, resp.Header.Get("Cache-Control"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, _ = get(t, ts.URL+"/missing.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPreflight(t *testing.T) {
	ts, _ := newTestServer(t, &fakeExporter{})
	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/export-grps-excel", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestExportWorkbook(t *testing.T) {
	workbook := filepath.Join(t.TempDir(), "GRPS_Scope_Items_Mapping.xlsx")
	require.NoError(t, os.WriteFile(workbook, []byte("PK-fake-xlsx"), 0o644))

	ts, _ := newTestServer(t, &fakeExporter{path: workbook})
	resp, body := get(t, ts.URL+"/export-grps-excel")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PK-fake-xlsx", body)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="GRPS_Scope_Items_Mapping.xlsx"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "12", resp.Header.Get("Content-Length"))
}

func TestExportFailures(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{name: "command failed", err: &ExportError{Stderr: "boom", Err: errors.New("exit status 1")}, status: http.StatusInternalServerError, body: "Error generating Excel: boom"},
		{name: "missing workbook", err: ErrWorkbookNotFound, status: http.StatusNotFound, body: "Excel file not found"},
		{name: "other", err: errors.New("disk on fire"), status: http.StatusInternalServerError, body: "Server error: disk on fire"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exporter := &fakeExporter{err: tc.err}
			ts, _ := newTestServer(t, exporter)

			resp, body := get(t, ts.URL+"/export-grps-excel")
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Contains(t, body, tc.body)

			resp, _ = get(t, ts.URL+"/healthz")
			assert.Equal(t, http.StatusOK, resp.StatusCode, "server keeps serving after a failed export")
		})
	}
}

func TestExportWorkbookConcurrentRequests(t *testing.T) {
	exporter := &serialExporter{path: filepath.Join(t.TempDir(), "GRPS_Scope_Items_Mapping.xlsx")}
	ts, _ := newTestServer(t, exporter)

	const requests = 5
	statuses := make([]int, requests)
	bodies := make([]string, requests)
	errs := make([]error, requests)
	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Get(ts.URL + "/export-grps-excel")
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			statuses[i], bodies[i], errs[i] = resp.StatusCode, string(body), err
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < requests; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, statuses[i])
		assert.False(t, seen[bodies[i]], "each request reads the workbook it generated")
		seen[bodies[i]] = true
	}
	assert.Equal(t, int32(1), exporter.peak.Load())
	assert.Equal(t, int32(requests), exporter.seq.Load())
}

func TestStaticHidesDotFiles(t *testing.T) {
	ts, static := newTestServer(t, &fakeExporter{})
	require.NoError(t, os.WriteFile(filepath.Join(static, ".env"), []byte("SECRET=1"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(static, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "sub", ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(static, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, ".git", "config"), []byte("x"), 0o644))

	for _, path := range []string{"/.env", "/sub/.hidden", "/.git/config"} {
		resp, body := get(t, ts.URL+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.NotContains(t, body, "SECRET", path)
	}

	resp, _ := get(t, ts.URL+"/index.html")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExportWorkbookVanished(t *testing.T) {
	ts, _ := newTestServer(t, &fakeExporter{path: filepath.Join(t.TempDir(), "gone.xlsx")})
	resp, _ := get(t, ts.URL+"/export-grps-excel")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubprocessExporter(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "out.xlsx")

	ok := &SubprocessExporter{Args: []string{"sh", "-c", "printf data > out.xlsx"}, Dir: dir, Output: out, Timeout: 10 * time.Second}
	path, err := ok.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, out, path)

	failing := &SubprocessExporter{Args: []string{"sh", "-c", "echo broken >&2; exit 3"}, Dir: dir, Output: out}
	_, err = failing.Export(context.Background())
	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.Contains(t, exportErr.Stderr, "broken")

	silent := &SubprocessExporter{Args: []string{"sh", "-c", "true"}, Dir: dir, Output: filepath.Join(dir, "none.xlsx")}
	_, err = silent.Export(context.Background())
	assert.ErrorIs(t, err, ErrWorkbookNotFound)

	_, err = (&SubprocessExporter{}).Export(context.Background())
	assert.Error(t, err)
}

func TestNewSubprocessExporter(t *testing.T) {
	e := NewSubprocessExporter("mepbid  export:grps --log-level warn", "/data", "/data/out.xlsx", time.Minute)
	assert.Equal(t, []string{"mepbid", "export:grps", "--log-level", "warn"}, e.Args)
	assert.Equal(t, time.Minute, e.Timeout)
}
