// internal/api/client_test.go
package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/skirmish/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExport struct {
	path string
	meta core.UploadMetadata
}

func (f fakeExport) GetExportedFilePath() string            { return f.path }
func (f fakeExport) GetExportMetadata() core.UploadMetadata { return f.meta }

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:5000/", "secret")
	assert.Equal(t, "http://localhost:5000", c.baseURL)
	assert.Equal(t, "secret", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestHealthcheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"server error", http.StatusInternalServerError, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/healthcheck", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := New(server.URL, "").Healthcheck(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHealthcheck_ServerDown(t *testing.T) {
	assert.Error(t, New("http://127.0.0.1:1", "").Healthcheck(context.Background()))
}

func TestUpload_Success(t *testing.T) {
	received := map[string]string{}
	var content string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/operations/add", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		if !assert.NoError(t, r.ParseMultipartForm(10<<20)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		for _, k := range []string{"secret", "filename", "worldName", "missionName", "missionDuration", "tag"} {
			received[k] = r.FormValue(k)
		}

		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		content = string(data)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	path := writeTestFile(t, "cleanse.json.gz", "recording")
	err := New(server.URL, "mysecret").Upload(context.Background(), path, core.UploadMetadata{
		WorldName:       "range",
		MissionName:     "Cleanse",
		MissionDuration: 95.5,
		Tag:             "Skirmish",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"secret":          "mysecret",
		"filename":        "cleanse.json.gz",
		"worldName":       "range",
		"missionName":     "Cleanse",
		"missionDuration": "95.500",
		"tag":             "Skirmish",
	}, received)
	assert.Equal(t, "recording", content)
}

func TestUpload_FileNotFound(t *testing.T) {
	err := New("http://localhost:5000", "secret").Upload(context.Background(), "/nonexistent/file.json.gz", core.UploadMetadata{})
	assert.ErrorContains(t, err, "failed to open file")
}

func TestUpload_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	path := writeTestFile(t, "test.json.gz", "content")
	err := New(server.URL, "wrong-secret").Upload(context.Background(), path, core.UploadMetadata{})
	assert.ErrorContains(t, err, "status 403")
}

func TestUploadExport(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := New(server.URL, "k")
	assert.ErrorIs(t, c.UploadExport(context.Background(), fakeExport{}), ErrNoExport)

	path := writeTestFile(t, "x.json", "{}")
	require.NoError(t, c.UploadExport(context.Background(), fakeExport{path: path}))
	assert.Equal(t, 1, hits)
}
