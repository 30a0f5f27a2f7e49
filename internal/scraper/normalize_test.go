package scraper

import "testing"

func TestNormalizeJobURLRewritesIDSegment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "trailing id",
			in:   "https://www.linkedin.com/jobs/view/senior-go-engineer-at-acme-4012345678901",
			want: "https://www.linkedin.com/jobs/view/4012345678901",
		},
		{
			name: "id followed by slash",
			in:   "https://www.linkedin.com/jobs/view/data-engineer-at-initech-1234567890/?refId=abc",
			want: "https://www.linkedin.com/jobs/view/1234567890",
		},
		{
			name: "query string ignored",
			in:   "https://www.linkedin.com/jobs/view/platform-sre-at-globex-40123456789?trk=feed",
			want: "https://www.linkedin.com/jobs/view/40123456789",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NormalizeJobURL(tc.in); got != tc.want {
				t.Fatalf("NormalizeJobURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeJobURLPassThrough(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"://bad",
		"not a url at all",
		"/jobs/view/relative-only-4012345678901",
		"https://www.linkedin.com/jobs/view/4012345678901",
		"https://www.linkedin.com/jobs/search/?keywords=go",
		"https://example.com/post-123",
		"https://example.com/too-long-1234567890123",
	}

	for _, in := range cases {
		if got := NormalizeJobURL(in); got != in {
			t.Fatalf("NormalizeJobURL(%q) = %q, want input unchanged", in, got)
		}
	}
}

func TestNormalizeJobURLIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://www.linkedin.com/jobs/view/senior-go-engineer-at-acme-4012345678901",
		"https://www.linkedin.com/jobs/view/4012345678901",
		"garbage",
		"https://example.com/role-at-place-99999999999/apply",
	}

	for _, in := range inputs {
		once := NormalizeJobURL(in)
		if twice := NormalizeJobURL(once); twice != once {
			t.Fatalf("not idempotent for %q: first %q, second %q", in, once, twice)
		}
	}
}
