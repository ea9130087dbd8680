package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "Buy milk", "Buy milk"},
		{"trims whitespace", "  Buy milk  ", "Buy milk"},
		{"strips tags", "<b>Buy</b> milk", "Buy milk"},
		{"strips script with content", "<script>alert(1)</script>safe", "safe"},
		{"markup only becomes empty", "<img src=x onerror=alert(1)>", ""},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
