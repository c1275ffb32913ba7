// SPDX-License-Identifier: MIT
package server

const indexHTML = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>prosody</title>
<style>
body { background: #0f1115; color: #cbd5e1; font: 13px sans-serif; margin: 16px; }
#status { margin-bottom: 8px; }
#error { color: #ff7a7a; }
img { display: block; margin-bottom: 12px; }
</style>
</head>
<body>
<div id="status"></div>
<div id="error"></div>
<div id="charts">
<img id="pitch" alt="pitch">
<img id="formants" alt="formants">
<img id="intensity" alt="intensity">
</div>
<script>
const status = document.getElementById("status");
const error = document.getElementById("error");
const container = document.getElementById("charts");
const ws = new WebSocket("ws://" + location.host + "/ws");

function resize() {
  if (ws.readyState === WebSocket.OPEN) {
    ws.send(JSON.stringify({ type: "resize", width: Math.floor(container.clientWidth) }));
  }
}

ws.onopen = resize;
window.addEventListener("resize", resize);
ws.onmessage = (ev) => {
  const f = JSON.parse(ev.data);
  const cursor = f.cursor === null ? "-" : f.cursor.toFixed(2) + "s";
  status.textContent = f.sample + "  cursor " + cursor + (f.vowel ? "  /" + f.vowel + "/" : "");
  error.textContent = f.error || "";
  for (const name in (f.charts || {})) {
    document.getElementById(name).src = "data:image/png;base64," + f.charts[name];
  }
};
</script>
</body>
</html>
`
