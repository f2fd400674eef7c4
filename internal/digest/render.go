package digest

import (
	"fmt"
	"html"
	"strings"

	"github.com/openonco/scout/internal/types"
)

// bucketHeadings are the section titles used in rendered digests.
var bucketHeadings = map[Bucket]string{
	BucketHigh:   "High priority",
	BucketMedium: "Worth a look",
	BucketLow:    "Everything else",
}

// RenderText formats a digest with the built-in renderer, for terminal
// output and dry runs.
func RenderText(d *Digest) string {
	return defaultRenderer{}.Text(d)
}

// defaultRenderer is the built-in digest formatter.
type defaultRenderer struct{}

func (defaultRenderer) Subject(d *Digest) string {
	return fmt.Sprintf("Discovery digest: %d pending for review (%s)",
		d.Pending(), d.GeneratedAt.Format("Jan 2"))
}

func (defaultRenderer) Text(d *Digest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Discovery digest - %s\n", d.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Queue: %d total, %d pending, %d reviewed\n\n",
		d.Queue.Total, d.Queue.Pending, d.Queue.Reviewed)

	if len(d.Sections) == 0 {
		b.WriteString("Nothing new to review.\n")
	}
	for _, section := range d.Sections {
		fmt.Fprintf(&b, "%s (%d)\n", bucketHeadings[section.Bucket], section.Count())
		for _, group := range section.Groups {
			fmt.Fprintf(&b, "  %s:\n", group.Source)
			for _, item := range group.Items {
				fmt.Fprintf(&b, "    - [%s] %s\n", item.Relevance, item.Title)
				if item.URL != "" {
					fmt.Fprintf(&b, "      %s\n", item.URL)
				}
			}
		}
		b.WriteString("\n")
	}

	if len(d.Health) > 0 {
		b.WriteString("Source health:\n")
		for _, source := range types.AllSources() {
			rec, ok := d.Health[source]
			if !ok {
				continue
			}
			line := fmt.Sprintf("  %s: %d ok, %d errors", source, rec.SuccessCount, rec.ErrorCount)
			if rec.LastErrorMessage != "" {
				line += " (last: " + rec.LastErrorMessage + ")"
			}
			b.WriteString(line + "\n")
		}
	}

	return b.String()
}

func (defaultRenderer) HTML(d *Digest) string {
	var b strings.Builder

	b.WriteString(`<html><body style="font-family: sans-serif; max-width: 720px;">`)
	fmt.Fprintf(&b, "<h2>Discovery digest - %s</h2>", d.GeneratedAt.Format("January 2, 2006"))
	fmt.Fprintf(&b, "<p>Queue: %d total, <b>%d pending</b>, %d reviewed</p>",
		d.Queue.Total, d.Queue.Pending, d.Queue.Reviewed)

	if len(d.Sections) == 0 {
		b.WriteString("<p>Nothing new to review.</p>")
	}
	for _, section := range d.Sections {
		fmt.Fprintf(&b, "<h3>%s (%d)</h3>", bucketHeadings[section.Bucket], section.Count())
		for _, group := range section.Groups {
			fmt.Fprintf(&b, "<h4>%s</h4><ul>", group.Source)
			for _, item := range group.Items {
				title := html.EscapeString(item.Title)
				if item.URL != "" {
					fmt.Fprintf(&b, `<li><a href="%s">%s</a> <i>(%s)</i>`,
						html.EscapeString(item.URL), title, item.Relevance)
				} else {
					fmt.Fprintf(&b, "<li>%s <i>(%s)</i>", title, item.Relevance)
				}
				if item.Summary != "" {
					fmt.Fprintf(&b, "<br><small>%s</small>", html.EscapeString(item.Summary))
				}
				b.WriteString("</li>")
			}
			b.WriteString("</ul>")
		}
	}

	if len(d.Health) > 0 {
		b.WriteString("<h3>Source health</h3><ul>")
		for _, source := range types.AllSources() {
			rec, ok := d.Health[source]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "<li>%s: %d ok, %d errors", source, rec.SuccessCount, rec.ErrorCount)
			if rec.LastErrorMessage != "" {
				fmt.Fprintf(&b, " <small>(last: %s)</small>", html.EscapeString(rec.LastErrorMessage))
			}
			b.WriteString("</li>")
		}
		b.WriteString("</ul>")
	}

	b.WriteString("</body></html>")
	return b.String()
}
