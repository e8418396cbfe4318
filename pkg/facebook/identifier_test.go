package facebook

import "testing"

func TestExtractIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "numeric id passthrough",
			input: "100001234567890",
			want:  "100001234567890",
		},
		{
			name:  "bare username passthrough",
			input: "zuck",
			want:  "zuck",
		},
		{
			name:  "group member page URL",
			input: "https://www.facebook.com/groups/123456789/user/100001234567890/",
			want:  "100001234567890",
		},
		{
			name:  "group member page URL with query",
			input: "https://www.facebook.com/groups/123456789/user/100001234567890?ref=share",
			want:  "100001234567890",
		},
		{
			name:  "profile.php URL",
			input: "https://www.facebook.com/profile.php?id=100001234567890",
			want:  "100001234567890",
		},
		{
			name:  "username URL",
			input: "https://www.facebook.com/some.username/",
			want:  "some.username",
		},
		{
			name:  "username URL without scheme",
			input: "facebook.com/some.username",
			want:  "some.username",
		},
		{
			name:  "mobile subdomain",
			input: "https://m.facebook.com/some.username",
			want:  "some.username",
		},
		{
			name:  "reserved slug returns raw input",
			input: "https://www.facebook.com/marketplace/",
			want:  "https://www.facebook.com/marketplace/",
		},
		{
			name:  "photo.php returns raw input",
			input: "https://www.facebook.com/photo.php?fbid=123",
			want:  "https://www.facebook.com/photo.php?fbid=123",
		},
		{
			name:  "non-facebook URL returns raw input",
			input: "https://example.com/someone",
			want:  "https://example.com/someone",
		},
		{
			name:  "whitespace trimmed",
			input: "  zuck  ",
			want:  "zuck",
		},
		{
			name:  "empty input",
			input: "",
			want:  "",
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractIdentifier(tt.input); got != tt.want {
				t.Errorf("ExtractIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
