package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/opsauth"
	"github.com/MrEthical07/opsauth/metrics/export/internaldefs"
)

// Source is what the exporter reads on every scrape.
type Source = internaldefs.Source

// Exporter renders a console's session state and counters on demand.
type Exporter struct {
	source Source
}

// NewExporter reads from manager.
func NewExporter(manager *opsauth.Manager) *Exporter {
	return &Exporter{source: manager}
}

// NewExporterFromSource reads from any [Source].
func NewExporterFromSource(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves the current metrics.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns every family in text exposition format.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)
	for _, f := range internaldefs.Collect(p.source) {
		writeFamily(&b, f)
	}
	return b.String()
}

func writeFamily(b *strings.Builder, f internaldefs.Family) {
	b.WriteString("# HELP ")
	b.WriteString(f.Name)
	b.WriteByte(' ')
	b.WriteString(escape(f.Help, false))
	b.WriteString("\n# TYPE ")
	b.WriteString(f.Name)
	b.WriteByte(' ')
	b.WriteString(f.Kind.String())
	b.WriteByte('\n')

	for _, s := range f.Samples {
		b.WriteString(f.Name)
		b.WriteString(s.Suffix)
		if len(s.Labels) > 0 {
			b.WriteByte('{')
			for i, l := range s.Labels {
				if i > 0 {
					b.WriteByte(',')
				}
				b.WriteString(l.Name)
				b.WriteString(`="`)
				b.WriteString(escape(l.Value, true))
				b.WriteByte('"')
			}
			b.WriteByte('}')
		}
		b.WriteByte(' ')
		b.WriteString(strconv.FormatUint(s.Value, 10))
		b.WriteByte('\n')
	}
}

// escape applies the exposition escapes; label values also escape quotes.
func escape(s string, quote bool) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	if quote {
		s = strings.ReplaceAll(s, `"`, `\"`)
	}
	return s
}
