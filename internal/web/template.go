package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/irrigation-controller/internal/logic"
	"github.com/sweeney/irrigation-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"state": func(on bool) string {
		return string(logic.StateOf(on))
	},
	"windows": func(s logic.Schedule) string {
		lines := make([]string, len(s))
		for i, w := range s {
			lines[i] = w.String()
		}
		return strings.Join(lines, "\n")
	},
	"pending": func(snap status.Snapshot, p logic.Pump) string {
		return snap.Pending(p)
	},
	"onoff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Irrigation</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
form { display: inline; }
textarea { width: 100%; font-family: monospace; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Irrigation</h1>

<p>Controller time: {{if .ClockValid}}{{.LocalTime.Format "15:04"}}{{else}}<span class="unknown">not synchronized, outputs held</span>{{end}}</p>

{{range .Pumps}}
<h2>{{.Name}}</h2>
<table>
<tr><th>Pump</th><td id="{{.ID}}-state" class="{{onoff .Output}}">{{state .Output}}{{with pending $.Snapshot .}} <span class="unknown">(switching {{.}} on the next cycle)</span>{{end}}</td></tr>
<tr><th>Reason</th><td>{{if .Reason}}{{.Reason}}{{else}}-{{end}}</td></tr>
<tr><th>Schedule</th><td>{{if .Control.ScheduleEnabled}}enabled{{else}}disabled{{end}}</td></tr>
<tr><th>Manual override</th><td>{{if .Control.ManualOverride}}yes ({{state .Control.DesiredOn}}){{else}}no{{end}}</td></tr>
<tr><th>Events</th><td>{{.Counts.On}} on / {{.Counts.Off}} off</td></tr>
</table>
<form method="post" action="/pumps/{{.ID}}/toggle"><button type="submit">Turn {{if .Control.DesiredOn}}off{{else}}on{{end}}</button></form>
<form method="post" action="/pumps/{{.ID}}/schedule/toggle"><button type="submit">{{if .Control.ScheduleEnabled}}Disable{{else}}Enable{{end}} schedule</button></form>
<form method="post" action="/pumps/{{.ID}}/schedule">
<p><textarea name="windows" rows="4" placeholder="06:10-06:40">{{windows .Schedule}}</textarea></p>
<button type="submit">Save schedule</button>
</form>
{{end}}

<p><form method="post" action="/override/reset"><button type="submit">Clear manual overrides</button></form></p>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Cycle</th><td>{{.Config.CycleMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Time source</th><td>{{if .Config.NTPServer}}NTP {{.Config.NTPServer}}{{else}}system clock{{end}} ({{.Config.Timezone}})</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
