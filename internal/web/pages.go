package web

const faviconTag = `<link rel="icon" href="data:image/svg+xml,<svg xmlns='http://www.w3.org/2000/svg' viewBox='0 0 100 100'><text y='.9em' font-size='90'>📺</text></svg>">`

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>bililive</title>
` + faviconTag + `
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif; background: #1a1a2e; color: #eee; min-height: 100vh; padding: 20px; }
  h1 { font-size: 24px; color: #e94560; margin-bottom: 20px; }
  form { display: flex; gap: 10px; margin-bottom: 20px; flex-wrap: wrap; }
  input { padding: 10px; border: 1px solid #333; border-radius: 8px; background: #0f3460; color: #eee; font-size: 15px; outline: none; }
  input:focus { border-color: #e94560; }
  .btn { padding: 10px 20px; border: none; border-radius: 8px; background: #e94560; color: #fff; font-weight: bold; cursor: pointer; }
  .btn:hover { opacity: 0.9; }
  .card { background: #16213e; border-radius: 12px; padding: 20px; margin-bottom: 20px; }
  .room-title { font-size: 20px; font-weight: bold; margin-bottom: 6px; }
  .meta { font-size: 13px; color: #aaa; }
  .badge { padding: 3px 10px; border-radius: 12px; font-size: 12px; font-weight: bold; }
  .badge-live { background: #e94560; }
  .badge-offline { background: #444; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #0f3460; vertical-align: top; }
  th { color: #aaa; }
  td.url { word-break: break-all; }
  .error { color: #e94560; }
</style>
</head>
<body>
<h1>📺 bililive</h1>
<form id="lookup">
  <input type="number" id="room" min="1" placeholder="Room ID" required>
  <input type="number" id="qn" min="1" placeholder="Quality (qn)">
  <button type="submit" class="btn">Resolve</button>
</form>
<div id="result"></div>
<script>
function esc(s) {
  return String(s).replace(/[&<>"]/g, function(c) {
    return { '&': '&amp;', '<': '&lt;', '>': '&gt;', '"': '&quot;' }[c];
  });
}

document.getElementById('lookup').onsubmit = async function(e) {
  e.preventDefault();
  var out = document.getElementById('result');
  var room = document.getElementById('room').value;
  var qn = document.getElementById('qn').value;
  out.innerHTML = '<div class="meta">Loading...</div>';

  var res = await fetch('/api/rooms/' + encodeURIComponent(room) + '/streams?metadata=false' + (qn ? '&qn=' + encodeURIComponent(qn) : ''));
  var data = await res.json();
  if (data.error) {
    out.innerHTML = '<div class="card error">' + esc(data.error) + '</div>';
    return;
  }

  var info = data.room_info;
  var html = '<div class="card">' +
    '<div class="room-title">' + esc(info.title) + '</div>' +
    '<div class="meta">' + esc(info.uname) + ' &middot; UID ' + info.uid + ' &middot; room ' + info.room_id +
    ' <span class="badge badge-live">LIVE</span></div></div>';

  html += '<div class="card"><table><tr><th>#</th><th>Protocol</th><th>Format</th><th>Codec</th><th>Expires</th><th>URL</th></tr>';
  data.streams.forEach(function(s) {
    html += '<tr><td>' + s.index + '</td><td>' + esc(s.protocol) + '</td><td>' + esc(s.format) + '</td><td>' +
      esc(s.codec) + '</td><td>' + esc(s.expires_time || '-') + '</td><td class="url">' + esc(s.url) + '</td></tr>';
  });
  html += '</table></div>';
  out.innerHTML = html;
};
</script>
</body>
</html>
`
