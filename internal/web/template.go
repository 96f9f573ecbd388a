package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/reflow-controller/internal/status"
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
	"seconds": func(d time.Duration) string {
		return fmt.Sprintf("%.1fs", d.Seconds())
	},
	"celsius": func(c float64) string {
		return fmt.Sprintf("%.2f °C", c)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Reflow Controller</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: red; font-weight: bold; }
.off { color: #888; }
.hot { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
canvas { width: 100%; height: 300px; border: 1px solid #ddd; }
button { font-family: monospace; font-size: 1.2em; padding: 0.4em 1.2em; }
</style>
</head>
<body>
<h1>Reflow Controller{{if .Hot}} <span class="hot">HOT</span>{{end}}</h1>

<h2>State</h2>
<table>
<tr><th>State</th><td id="state">{{.State}}</td></tr>
<tr><th>Temperature</th><td id="temp">{{if .HaveTemp}}{{celsius .TempC}}{{else}}no reading{{end}}</td></tr>
<tr><th>Heater</th><td id="heater" class="{{if .HeaterOn}}on{{else}}off{{end}}">{{if .HeaterOn}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Target</th><td id="target">{{celsius .TargetC}}</td></tr>
<tr><th>Setpoint</th><td id="setpoint">{{celsius .SetpointC}}</td></tr>
<tr><th>Elapsed</th><td id="elapsed">{{seconds .Elapsed}} / {{seconds .Total}}</td></tr>
{{if .LastOutcome}}<tr><th>Last outcome</th><td>{{.LastOutcome}}{{if .LastError}} ({{.LastError}}){{end}}</td></tr>{{end}}
</table>
{{if .ButtonEnabled}}<form method="post" action="/button" id="button-form"><button type="submit">Start / Stop</button></form>{{end}}

<h2>Profile</h2>
<canvas id="graph" width="720" height="300"></canvas>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Runs</h2>
<table>
<tr><th>Started</th><td>{{.Counts.Runs}}</td></tr>
<tr><th>Finished</th><td>{{.Counts.Finished}}</td></tr>
<tr><th>Stopped</th><td>{{.Counts.Stopped}}</td></tr>
<tr><th>Faulted</th><td>{{.Counts.Faulted}}</td></tr>
<tr><th>Refused (hot)</th><td>{{.Counts.Overheated}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Profile</th><td>{{.Config.Profile}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Safe start</th><td>below {{.Config.SafeStartC}} °C</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var canvas = document.getElementById("graph");
  var ctx = canvas.getContext("2d");
  var form = document.getElementById("button-form");

  if (form) {
    form.addEventListener("submit", function(e) {
      e.preventDefault();
      fetch("/button", { method: "POST" });
    });
  }

  function draw(s) {
    var w = canvas.width, h = canvas.height;
    var total = s.run.total_s || 1;
    var maxC = 260;
    function x(t) { return t / total * w; }
    function y(c) { return h - c / maxC * h; }

    ctx.clearRect(0, 0, w, h);
    ctx.strokeStyle = "#bbb";
    ctx.beginPath();
    (s.profile || []).forEach(function(p, i) {
      if (i === 0) { ctx.moveTo(x(p.t), y(p.c)); } else { ctx.lineTo(x(p.t), y(p.c)); }
    });
    ctx.stroke();

    ctx.strokeStyle = "red";
    ctx.beginPath();
    (s.trace || []).forEach(function(p, i) {
      if (i === 0) { ctx.moveTo(x(p.t), y(p.c)); } else { ctx.lineTo(x(p.t), y(p.c)); }
    });
    ctx.stroke();
  }

  function poll() {
    fetch("/index.json").then(function(r) { return r.json(); }).then(function(j) {
      var s = j.status;
      document.getElementById("state").textContent = s.state;
      document.getElementById("temp").textContent = s.temperature_c === null ? "no reading" : s.temperature_c.toFixed(2) + " °C";
      var heater = document.getElementById("heater");
      heater.textContent = s.heater;
      heater.className = s.heater === "ON" ? "on" : "off";
      document.getElementById("target").textContent = s.run.target_c.toFixed(2) + " °C";
      document.getElementById("setpoint").textContent = s.run.setpoint_c.toFixed(2) + " °C";
      document.getElementById("elapsed").textContent = s.run.elapsed_s.toFixed(1) + "s / " + s.run.total_s.toFixed(1) + "s";
      draw(s);
    }).catch(function() {});
  }

  poll();
  setInterval(poll, 1000);
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, buttonEnabled bool) {
	// Snapshot has Uptime() and Hot() methods but the template reads fields.
	data := struct {
		status.Snapshot
		Uptime        time.Duration
		Hot           bool
		ButtonEnabled bool
	}{
		Snapshot:      snap,
		Uptime:        snap.Uptime(),
		Hot:           snap.Hot(),
		ButtonEnabled: buttonEnabled,
	}
	indexTmpl.Execute(w, data)
}
