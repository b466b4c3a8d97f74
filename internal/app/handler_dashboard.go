package app

import (
	"log"
	"net/http"
)

const dashboardHTML = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>Run: <code>{{.Run}}</code></p>
<pre id="latest">waiting for telemetry...</pre>
<form id="cmd"><input name="line" placeholder="create 2 0 0"><button>send</button></form>
<pre id="result"></pre>
<footer>&copy; {{year}}</footer>
<script>
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
ws.onmessage = (e) => { document.getElementById("latest").textContent = e.data; };
document.getElementById("cmd").onsubmit = async (e) => {
  e.preventDefault();
  const res = await fetch("/control", {method: "POST", body: e.target.line.value});
  document.getElementById("result").textContent = await res.text();
};
</script>
</body>
</html>
`

// handleDashboard renders the live telemetry page.
func (a *App) handleDashboard(w http.ResponseWriter, r *http.Request) {
	log.Printf("[app] GET / (dashboard) from %s", r.RemoteAddr)
	data := map[string]any{
		"Title": "DiffDrive Dashboard",
		"Run":   "",
	}
	if a.Recorder != nil {
		data["Run"] = a.Recorder.CurrentRun()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := a.Tmpl.ExecuteTemplate(w, "dashboard", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
