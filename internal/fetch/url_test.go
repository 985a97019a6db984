package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceURL_Valid(t *testing.T) {
	tests := []struct {
		raw   string
		owner string
		repo  string
	}{
		{"https://github.com/acme/tiny", "acme", "tiny"},
		{"https://github.com/acme/tiny.git", "acme", "tiny"},
		{"  https://github.com/acme/my.repo  ", "acme", "my.repo"},
		{"https://GitHub.com/Acme/Tiny_Repo-2", "Acme", "Tiny_Repo-2"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			src, err := ParseSourceURL(tt.raw, []string{"github.com"})
			require.NoError(t, err)
			assert.Equal(t, "github.com", src.Host)
			assert.Equal(t, tt.owner, src.Owner)
			assert.Equal(t, tt.repo, src.Repo)
			assert.Equal(t, "https://github.com/"+tt.owner+"/"+tt.repo+".git", src.CloneURL)
		})
	}
}

func TestParseSourceURL_Invalid(t *testing.T) {
	tests := []string{
		"",
		"github.com/acme/tiny",
		"http://github.com/acme/tiny",
		"https://github.com/acme",
		"https://github.com/acme/tiny/tree/main",
		"https://github.com/acme/tiny?x=1",
		"https://github.com/../tiny",
		"ssh://git@github.com/acme/tiny.git",
		"https://github.com/acme/tiny; rm -rf /",
		"https://evil.example.com/acme/tiny",
	}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseSourceURL(raw, []string{"github.com"})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidURL)

			var fe *Error
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, KindInvalidURL, fe.Kind)
		})
	}
}

func TestParseSourceURL_EmptyAllowListAcceptsAnyHost(t *testing.T) {
	src, err := ParseSourceURL("https://git.example.com:8443/team/svc", nil)
	require.NoError(t, err)
	assert.Equal(t, "git.example.com:8443", src.Host)
	assert.Equal(t, "git.example.com:8443/team/svc", src.String())
}

func TestError_IsMatchesKind(t *testing.T) {
	err := SizeExceeded(200<<20, 100<<20)
	assert.ErrorIs(t, err, ErrSizeExceeded)
	assert.NotErrorIs(t, err, ErrCloneFailed)
	assert.Contains(t, err.Error(), "200.00 MB")
	assert.Contains(t, err.Error(), "100.00 MB")
}
