package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/repopackd/internal/config"
)

func newMetadataServer(t *testing.T, handler http.HandlerFunc) *GitHubMetadata {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	meta, err := NewGitHubMetadata(context.Background(), "", srv.URL)
	require.NoError(t, err)
	return meta
}

var tinySource = Source{Host: "github.com", Owner: "acme", Repo: "tiny", CloneURL: "https://github.com/acme/tiny.git"}

func TestGitHubMetadata_RepoSize(t *testing.T) {
	meta := newMetadataServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/acme/tiny", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"tiny","size":25}`))
	})

	size, err := meta.RepoSize(context.Background(), tinySource)
	require.NoError(t, err)
	assert.Equal(t, int64(25*1024), size)
}

func TestGitHubMetadata_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, `{"message":"Not Found"}`, ErrMetadataUnavailable},
		{"server error", http.StatusBadGateway, `oops`, ErrMetadataUnavailable},
		{"malformed body", http.StatusOK, `{"size":`, ErrMetadataUnavailable},
		{"missing size", http.StatusOK, `{"name":"tiny"}`, ErrMetadataUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := newMetadataServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := meta.RepoSize(context.Background(), tinySource)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGitHubMetadata_SendsToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"size":1}`))
	}))
	defer srv.Close()

	meta, err := NewGitHubMetadata(context.Background(), config.Secret("ghp_test"), srv.URL+"/")
	require.NoError(t, err)

	_, err = meta.RepoSize(context.Background(), tinySource)
	require.NoError(t, err)
	assert.Equal(t, "Bearer ghp_test", auth)
}
