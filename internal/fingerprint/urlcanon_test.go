package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips utm parameters",
			in:   "https://theloadstar.com/a?utm_source=twitter",
			want: "https://theloadstar.com/a",
		},
		{
			name: "strips fbclid and gclid",
			in:   "https://example.com/news/item?fbclid=abc&gclid=def&id=7",
			want: "https://example.com/news/item?id=7",
		},
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://Example.COM/News",
			want: "https://example.com/News",
		},
		{
			name: "strips default https port",
			in:   "https://example.com:443/path",
			want: "https://example.com/path",
		},
		{
			name: "strips default http port",
			in:   "http://example.com:80/path",
			want: "http://example.com/path",
		},
		{
			name: "keeps non-default port",
			in:   "https://example.com:8443/path",
			want: "https://example.com:8443/path",
		},
		{
			name: "strips fragment",
			in:   "https://example.com/story#comments",
			want: "https://example.com/story",
		},
		{
			name: "sorts query parameters",
			in:   "https://example.com/list?z=1&a=2",
			want: "https://example.com/list?a=2&z=1",
		},
		{
			name: "trims trailing slash on non-empty path",
			in:   "https://example.com/section/story/",
			want: "https://example.com/section/story",
		},
		{
			name: "keeps root path",
			in:   "https://example.com/",
			want: "https://example.com/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalURL(tt.in))
		})
	}
}

func TestCanonicalURL_Idempotent(t *testing.T) {
	urls := []string{
		"https://theloadstar.com/a?utm_source=twitter&b=2&a=1#x",
		"HTTP://News.Example.com:80/2024/03/story/?gclid=x",
		"https://example.com/",
	}
	for _, u := range urls {
		once := CanonicalURL(u)
		assert.Equal(t, once, CanonicalURL(once), "canonicalization must be idempotent for %s", u)
	}
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "theloadstar.com", Domain("https://www.theloadstar.com/some/article"))
	assert.Equal(t, "freightwaves.com", Domain("https://freightwaves.com"))
	assert.Equal(t, "", Domain("://bad"))
}
