package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips tags keeping paragraph breaks",
			in:   "<p>First paragraph.</p><p>Second paragraph.</p>",
			want: "First paragraph.\nSecond paragraph.",
		},
		{
			name: "unescapes entities",
			in:   "Rates &amp; surcharges rose &gt; 10%",
			want: "Rates & surcharges rose > 10%",
		},
		{
			// Encoded markup is article text, not structure: it must
			// survive unescaping instead of being stripped as tags.
			name: "encoded brackets stay literal",
			in:   "<p>Use &lt;code&gt; blocks for customs declarations</p>",
			want: "Use <code> blocks for customs declarations",
		},
		{
			name: "collapses runs of spaces and tabs",
			in:   "too   many\t\tspaces",
			want: "too many spaces",
		},
		{
			name: "collapses blank line runs",
			in:   "a\n\n\n\n\nb",
			want: "a\n\nb",
		},
		{
			name: "folds fullwidth punctuation",
			in:   "集装箱运价上涨。货代表示，需求旺盛、舱位紧张",
			want: "集装箱运价上涨.货代表示,需求旺盛,舱位紧张",
		},
		{
			name: "trims surrounding whitespace",
			in:   "  padded  ",
			want: "padded",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestText_Deterministic(t *testing.T) {
	in := "<div>Port of LA&nbsp;volumes up　１０％。</div>"
	assert.Equal(t, Text(in), Text(in))
	// Normalization is a fixed point: running it twice changes nothing.
	once := Text(in)
	assert.Equal(t, once, Text(once))
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		source string
		want   string
	}{
		{
			name:   "strips known source suffix with pipe",
			in:     "Spot rates jump 12% | The Loadstar",
			source: "The Loadstar",
			want:   "Spot rates jump 12%",
		},
		{
			name:   "strips known source suffix with dash",
			in:     "Spot rates jump 12% - FreightWaves",
			source: "FreightWaves",
			want:   "Spot rates jump 12%",
		},
		{
			name:   "keeps dash that is part of the title",
			in:     "Asia-Europe rates fall for third week",
			source: "The Loadstar",
			want:   "Asia-Europe rates fall for third week",
		},
		{
			name:   "strips generic publisher suffix",
			in:     "Canal transits resume - Maritime Executive",
			source: "",
			want:   "Canal transits resume",
		},
		{
			name:   "keeps numeric tail",
			in:     "Throughput forecast - Q3 2025",
			source: "",
			want:   "Throughput forecast - Q3 2025",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.in, tt.source))
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"english", "Container rates climbed on the transpacific.", "en"},
		{"chinese", "上海出口集装箱运价指数本周上涨", "zh"},
		{"mixed mostly chinese", "马士基 (Maersk) 宣布上调亚欧航线运价，即日生效", "zh"},
		{"mostly english with a name", "Shanghai (上海) port volumes keep climbing through the peak season period", "en"},
		{"empty defaults to english", "", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.in))
		})
	}
}
