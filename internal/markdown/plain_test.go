package markdown

import "testing"

func TestToPlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "   ", want: ""},
		{name: "emphasis", in: "**bold** and *italic* and __strong__", want: "bold and italic and strong"},
		{name: "strikethrough", in: "~~old~~ new", want: "old new"},
		{name: "inline code", in: "run `make test` now", want: "run make test now"},
		{name: "heading", in: "# Title\n\nBody text", want: "Title\n\nBody text"},
		{name: "link", in: "see [the docs](https://example.com/docs)", want: "see the docs"},
		{name: "image dropped", in: "before ![chart](https://example.com/c.png) after", want: "before  after"},
		{name: "bullet list", in: "- one\n- two\n* three", want: "• one\n• two\n\n• three"},
		{name: "ordered list", in: "3. first\n4. second", want: "3. first\n4. second"},
		{name: "nested list", in: "- parent\n  - child", want: "• parent\n  • child"},
		{name: "blockquote", in: "> quoted line", want: "quoted line"},
		{name: "thematic break", in: "above\n\n---\n\nbelow", want: "above\n\nbelow"},
		{name: "fenced code", in: "```go\nfmt.Println(1)\n```", want: "fmt.Println(1)"},
		{name: "table", in: "| a | b |\n|---|---|\n| 1 | 2 |", want: "a | b\n1 | 2"},
		{name: "soft breaks kept", in: "line one\nline two", want: "line one\nline two"},
		{name: "blank lines collapsed", in: "a\n\n\n\n\nb", want: "a\n\nb"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ToPlainText(tt.in); got != tt.want {
				t.Fatalf("ToPlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
