//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package license

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-stager-go/internal/process"
)

func reportRunner(t *testing.T, deps []Dependency) process.Runner {
	t.Helper()
	out, err := json.Marshal(deps)
	require.NoError(t, err)
	return process.RunnerFunc(func(ctx context.Context, dir, name string, args ...string) (process.Result, error) {
		return process.Result{Stdout: out}, nil
	})
}

// flakyFetcher fails the first failures calls, then writes content.
type flakyFetcher struct {
	failures int
	calls    int
	content  string
}

func (f *flakyFetcher) Fetch(ctx context.Context, from, to string) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection reset")
	}
	return os.WriteFile(to, []byte(f.content), 0o644)
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func fast() Option { return WithRetryInterval(time.Millisecond) }

func TestPull_AllSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/LICENSE":
			w.Write([]byte("url license"))
		case "/NOTICE":
			w.Write([]byte("url notice"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	licenseDir := filepath.Join(dir, "licenses")
	manualDir := filepath.Join(dir, "manual")
	writeFile(t, filepath.Join(manualDir, "manual-pkg", "LICENSE"), "manual license")
	reqLicense := writeFile(t, filepath.Join(dir, "site-packages", "requests", "LICENSE"), "requests license")

	overrides, err := ParseOverrides([]byte(`
pip_dependencies:
  skipme:
    license: skip
  Manual-Pkg:
    license: manual
  urlpkg:
    license: ` + srv.URL + `/LICENSE
    notice: ` + srv.URL + `/NOTICE
`))
	require.NoError(t, err)

	deps := []Dependency{
		{Name: "Requests", Version: "2.31.0", License: "Apache 2.0", LicenseFile: reqLicense},
		{Name: "skipme", LicenseFile: "UNKNOWN"},
		{Name: "Manual-Pkg", LicenseFile: "UNKNOWN"},
		{Name: "urlpkg", LicenseFile: "UNKNOWN"},
	}
	p := New(licenseDir, overrides, WithRunner(reportRunner(t, deps)), WithManualDir(manualDir), fast())
	require.NoError(t, p.Pull(context.Background()))

	assert.Equal(t, "requests license", readFile(t, filepath.Join(licenseDir, "requests", "LICENSE")))
	assert.Equal(t, "manual license", readFile(t, filepath.Join(licenseDir, "manual-pkg", "LICENSE")))
	assert.Equal(t, "url license", readFile(t, filepath.Join(licenseDir, "urlpkg", "LICENSE")))
	assert.Equal(t, "url notice", readFile(t, filepath.Join(licenseDir, "urlpkg", "NOTICE")))
	assert.NoDirExists(t, filepath.Join(licenseDir, "skipme"))
}

func TestPull_MissingLicenses(t *testing.T) {
	deps := []Dependency{
		{Name: "Lost", LicenseFile: "UNKNOWN"},
		{Name: "found", LicenseFile: writeFile(t, filepath.Join(t.TempDir(), "L"), "x")},
		{Name: "gone", LicenseFile: "unknown"},
	}
	p := New(filepath.Join(t.TempDir(), "licenses"), nil, WithRunner(reportRunner(t, deps)), fast())

	err := p.Pull(context.Background())
	var missing *MissingLicensesError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"lost", "gone"}, missing.Names)
	assert.Contains(t, err.Error(), "lost, gone")
	assert.Contains(t, err.Error(), "manual")
}

func TestPull_LicenseFileCopyFailsFallsBackToOverride(t *testing.T) {
	dir := t.TempDir()
	overrides, err := ParseOverrides([]byte("pip_dependencies:\n  broken:\n    license: https://example.com/LICENSE\n"))
	require.NoError(t, err)
	fetcher := &flakyFetcher{content: "fetched"}

	deps := []Dependency{{Name: "broken", LicenseFile: filepath.Join(dir, "does-not-exist")}}
	p := New(filepath.Join(dir, "licenses"), overrides,
		WithRunner(reportRunner(t, deps)), WithFetcher(fetcher), fast())
	require.NoError(t, p.Pull(context.Background()))
	assert.Equal(t, "fetched", readFile(t, filepath.Join(dir, "licenses", "broken", "LICENSE")))
}

func TestPull_RetriesDownloads(t *testing.T) {
	overrides, err := ParseOverrides([]byte("pip_dependencies:\n  flaky:\n    license: https://example.com/LICENSE\n"))
	require.NoError(t, err)
	deps := []Dependency{{Name: "flaky", LicenseFile: "UNKNOWN"}}

	recovering := &flakyFetcher{failures: 2, content: "ok"}
	dir := t.TempDir()
	p := New(dir, overrides, WithRunner(reportRunner(t, deps)), WithFetcher(recovering), fast())
	require.NoError(t, p.Pull(context.Background()))
	assert.Equal(t, 3, recovering.calls)
	assert.Equal(t, "ok", readFile(t, filepath.Join(dir, "flaky", "LICENSE")))

	broken := &flakyFetcher{failures: 100}
	p = New(t.TempDir(), overrides, WithRunner(reportRunner(t, deps)), WithFetcher(broken), fast())
	err = p.Pull(context.Background())
	var missing *MissingLicensesError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"flaky"}, missing.Names)
	assert.Equal(t, 3, broken.calls)

	once := &flakyFetcher{failures: 100}
	p = New(t.TempDir(), overrides, WithRunner(reportRunner(t, deps)), WithFetcher(once), WithAttempts(1), fast())
	assert.Error(t, p.Pull(context.Background()))
	assert.Equal(t, 1, once.calls)
}

func TestPull_CommandFailures(t *testing.T) {
	tests := []struct {
		name   string
		runner process.RunnerFunc
	}{
		{"stderr output", func(context.Context, string, string, ...string) (process.Result, error) {
			return process.Result{Stdout: []byte("[]"), Stderr: []byte("DEPRECATION: something")}, nil
		}},
		{"non-zero exit", func(context.Context, string, string, ...string) (process.Result, error) {
			return process.Result{}, &process.ExitError{Code: 1}
		}},
		{"bad json", func(context.Context, string, string, ...string) (process.Result, error) {
			return process.Result{Stdout: []byte("not json")}, nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(t.TempDir(), nil, WithRunner(tt.runner))
			assert.ErrorIs(t, p.Pull(context.Background()), ErrCommandFailed)
		})
	}
}

func TestDependencies_Command(t *testing.T) {
	var got []string
	runner := process.RunnerFunc(func(ctx context.Context, dir, name string, args ...string) (process.Result, error) {
		got = append([]string{name}, args...)
		return process.Result{Stdout: []byte(`[{"Name":"a","Version":"1","License":"MIT","LicenseFile":"/x"}]`)}, nil
	})

	deps, err := New(t.TempDir(), nil, WithRunner(runner)).Dependencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pip-licenses", "--with-license-file", "--format=json"}, got)
	assert.Equal(t, []Dependency{{Name: "a", Version: "1", License: "MIT", LicenseFile: "/x"}}, deps)

	_, err = New(t.TempDir(), nil, WithRunner(runner), WithCommand("my-licenses", "--json")).Dependencies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"my-licenses", "--json"}, got)
}
