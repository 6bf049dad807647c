package digest

import (
	"fmt"
	"html/template"
	"strings"
)

var htmlTemplate = template.Must(template.New("digest").Parse(`<h2>Your weekly website stats</h2>
<p><strong>Period:</strong> {{.Period}}</p>
<p><strong>Total pageviews (last 7 days):</strong> {{.Total}}</p>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse:collapse">
  <thead><tr><th>Domain</th><th>Path</th><th>Views</th><th>Avg. Time</th><th>Top Referrer</th></tr></thead>
  <tbody>{{range .Rows}}<tr><td>{{.Domain}}</td><td>{{.Path}}</td><td style="text-align:right">{{.Count}}</td><td style="text-align:right">{{.AvgDwell}}s</td><td>{{.TopReferrer}}</td></tr>{{else}}<tr><td colspan="5">No data in the last 7 days</td></tr>{{end}}</tbody>
</table>
`))

type htmlRow struct {
	Domain      string
	Path        string
	Count       int
	AvgDwell    string
	TopReferrer string
}

type htmlData struct {
	Period string
	Total  int
	Rows   []htmlRow
}

// Render formats a report as the plain-text and HTML digest bodies.
// Pure formatting; the report is not modified.
func Render(r Report) (string, string, error) {
	text := renderText(r)
	html, err := renderHTML(r)
	if err != nil {
		return "", "", err
	}
	return text, html, nil
}

func renderText(r Report) string {
	var b strings.Builder
	b.WriteString("Your weekly website stats\n")
	fmt.Fprintf(&b, "Period: %s\n", period(r))
	fmt.Fprintf(&b, "Total pageviews (last 7 days): %d\n", r.Total)
	b.WriteString("\n")
	b.WriteString("Per page:")
	for _, g := range r.Groups {
		fmt.Fprintf(&b, "\n- %s%s — %d views, avg time: %ss, top referrer: %s",
			g.Domain, g.Path, g.Count, formatDwell(g.AvgDwell), g.TopReferrer)
	}
	return b.String()
}

func renderHTML(r Report) (string, error) {
	data := htmlData{
		Period: period(r),
		Total:  r.Total,
		Rows:   make([]htmlRow, 0, len(r.Groups)),
	}
	for _, g := range r.Groups {
		data.Rows = append(data.Rows, htmlRow{
			Domain:      g.Domain,
			Path:        g.Path,
			Count:       g.Count,
			AvgDwell:    formatDwell(g.AvgDwell),
			TopReferrer: g.TopReferrer,
		})
	}

	var b strings.Builder
	if err := htmlTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render HTML digest: %w", err)
	}
	return b.String(), nil
}

func period(r Report) string {
	return fmt.Sprintf("%s → %s (%s)",
		r.WindowStart.Format("2006-01-02"),
		r.WindowEnd.Format("2006-01-02"),
		r.WindowEnd.Location())
}

// Dwell averages are shown with one decimal place everywhere.
func formatDwell(avg float64) string {
	return fmt.Sprintf("%.1f", avg)
}
