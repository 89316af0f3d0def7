// Package view renders the HTML fragments served to the console pages.
package view

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/a-h/templ"

	"github.com/dreschagin/deploy-board/internal/application/dto"
)

// AlarmDetails renders the triggered alarms of a stage. The outer element
// carries data-has-alarm so the page script can flag the stage.
func AlarmDetails(report *dto.AlarmReportDTO) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if report == nil {
			report = &dto.AlarmReportDTO{}
		}

		var b strings.Builder
		fmt.Fprintf(&b, `<div class="alarm-details" data-has-alarm="%t">`, report.HasAlarm)
		if !report.HasAlarm {
			b.WriteString(`<p class="alarm-none">No triggered alarms</p>`)
		} else {
			b.WriteString(`<ul class="alarm-list">`)
			for _, name := range report.Names() {
				b.WriteString(`<li class="alarm"><span class="alarm-name">`)
				b.WriteString(templ.EscapeString(name))
				b.WriteString(`</span>`)
				writeAlarmFields(&b, report.Alarms[name])
				b.WriteString(`</li>`)
			}
			b.WriteString(`</ul>`)
		}
		b.WriteString(`</div>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeAlarmFields(b *strings.Builder, details map[string]any) {
	if len(details) == 0 {
		return
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString(`<dl class="alarm-fields">`)
	for _, k := range keys {
		b.WriteString(`<dt>`)
		b.WriteString(templ.EscapeString(k))
		b.WriteString(`</dt><dd>`)
		b.WriteString(templ.EscapeString(formatValue(details[k])))
		b.WriteString(`</dd>`)
	}
	b.WriteString(`</dl>`)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool, float64, int, int64:
		return fmt.Sprint(val)
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(raw)
	}
}
