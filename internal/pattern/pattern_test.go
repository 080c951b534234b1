package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchLiterals(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"exact", "/users", "/users", true},
		{"nested exact", "/users/list", "/users/list", true},
		{"case sensitive", "/Users", "/users", false},
		{"extra segment rejected", "/users", "/users/1", false},
		{"missing segment rejected", "/users/list", "/users", false},
		{"trailing slash differs", "/users", "/users/", false},
		{"root", "/", "/", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MustCompile(tt.pattern)
			assert.Equal(t, tt.want, p.Matches(tt.path))
		})
	}
}

func TestMatchParams(t *testing.T) {
	tests := []struct {
		name       string
		pattern    string
		path       string
		want       bool
		wantParams map[string]string
	}{
		{
			name:       "single param",
			pattern:    "/users/{id}",
			path:       "/users/42",
			want:       true,
			wantParams: map[string]string{"id": "42"},
		},
		{
			name:       "two params",
			pattern:    "/orgs/{org}/repos/{repo}",
			path:       "/orgs/acme/repos/site",
			want:       true,
			wantParams: map[string]string{"org": "acme", "repo": "site"},
		},
		{
			name:    "param requires non-empty segment",
			pattern: "/users/{id}",
			path:    "/users/",
			want:    false,
		},
		{
			name:    "param does not cross segments",
			pattern: "/users/{id}",
			path:    "/users/1/posts",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MustCompile(tt.pattern)
			params, ok := p.Match(tt.path)
			require.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, tt.wantParams, params)
			}
		})
	}
}

func TestMatchWildcards(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"star single segment", "/files/*", "/files/readme", true},
		{"star does not cross segments", "/files/*", "/files/a/b", false},
		{"star embedded", "/files/report-*", "/files/report-2024", true},
		{"star embedded suffix", "/files/*.json", "/files/data.json", true},
		{"star embedded mismatch", "/files/*.json", "/files/data.yaml", false},
		{"doublestar tail zero segments", "/static/**", "/static", true},
		{"doublestar tail many segments", "/static/**", "/static/css/site.css", true},
		{"doublestar middle zero", "/a/**/z", "/a/z", true},
		{"doublestar middle many", "/a/**/z", "/a/b/c/z", true},
		{"doublestar middle unanchored tail", "/a/**/z", "/a/b/c", false},
		{"doublestar then param", "/x/**/{id}", "/x/deep/down/7", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MustCompile(tt.pattern)
			assert.Equal(t, tt.want, p.Matches(tt.path))
		})
	}
}

func TestDoublestarParamCapture(t *testing.T) {
	p := MustCompile("/x/**/{id}")
	params, ok := p.Match("/x/deep/down/7")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"id": "7"}, params)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"empty", ""},
		{"no leading slash", "users/{id}"},
		{"unclosed brace", "/users/{id"},
		{"unopened brace", "/users/id}"},
		{"empty param name", "/users/{}"},
		{"embedded param", "/users/v{id}"},
		{"duplicate param", "/a/{id}/b/{id}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.pattern)
			assert.Error(t, err)
		})
	}
}

func TestNames(t *testing.T) {
	p := MustCompile("/orgs/{org}/repos/{repo}")
	assert.Equal(t, []string{"org", "repo"}, p.Names())

	p = MustCompile("/plain/path")
	assert.Empty(t, p.Names())
}

// Round-trip: for wildcard-free patterns, substituting the captured
// parameters back into the pattern reproduces the original path.
func TestExpandRoundTrip(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
	}{
		{"/users/{id}", "/users/42"},
		{"/orgs/{org}/repos/{repo}", "/orgs/acme/repos/site"},
		{"/a/{b}/c/{d}/e", "/a/1/c/2/e"},
		{"/plain/path", "/plain/path"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			p := MustCompile(tt.pattern)
			params, ok := p.Match(tt.path)
			require.True(t, ok)
			assert.Equal(t, tt.path, p.Expand(params))
		})
	}
}

func TestMatchNoParamsReturnsNilMap(t *testing.T) {
	p := MustCompile("/health")
	params, ok := p.Match("/health")
	require.True(t, ok)
	assert.Nil(t, params)
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("bad") })
}
