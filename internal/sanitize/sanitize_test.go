package sanitize_test

import (
	"testing"

	"github.com/jonesrussell/newsgate/internal/sanitize"
	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, in, want string
	}{
		{"empty", "", ""},
		{"plain", "  hello \n\t world ", "hello world"},
		{"tags", `<p>Bali <b>tourism</b> grows</p><script>alert(1)</script>`, "Bali tourism grows"},
		{"entities", "Trade &amp; investment &quot;talks&quot;", `Trade & investment "talks"`},
		{"image only", `<img src="x.jpg">`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitize.Text(tt.in))
		})
	}
}
