package api

import (
	"html/template"

	"invoice-extractor/internal/domain"
	"invoice-extractor/internal/render"
	"invoice-extractor/internal/session"
)

type pageData struct {
	Snapshot   session.Snapshot
	Phase      domain.Phase
	Error      string
	CanSubmit  bool
	CanReset   bool
	Timing     []render.Row
	ResultHTML template.HTML
}

// safeHTML marks renderer output as trusted; render.HTML escapes every service value.
func safeHTML(s string) template.HTML {
	return template.HTML(s)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Invoice Document Extractor</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 960px; color: #1f2937; }
.zone { border: 2px dashed #9ca3af; border-radius: 12px; padding: 2rem; text-align: center; }
.zone.active { border-color: #2563eb; background: #eff6ff; }
.error { margin-top: 1rem; padding: 1rem; background: #fef2f2; border: 1px solid #fecaca; border-radius: 8px; color: #991b1b; }
.timing { display: flex; gap: 1rem; margin: 1rem 0; }
.timing div { flex: 1; background: #f3f4f6; border-radius: 8px; padding: 1rem; text-align: center; }
.timing strong { display: block; font-size: 1.5rem; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1rem; }
th, td { border: 1px solid #e5e7eb; padding: .4rem .6rem; text-align: left; }
.actions { display: flex; gap: .5rem; margin-top: 1rem; }
</style>
</head>
<body>
<h1>Invoice Document Extractor</h1>

<section id="drop-zone" class="zone{{if .Snapshot.DragActive}} active{{end}}">
  {{with .Snapshot.File}}
    <p><strong>{{.Name}}</strong></p>
    <p>{{.SizeLabel}}</p>
  {{else}}
    <p>Drop your invoice PDF here, or choose a file</p>
  {{end}}
  <form id="pick" method="post" action="/session/file" enctype="multipart/form-data">
    <input type="file" name="file" accept="application/pdf,.pdf" onchange="this.form.submit()">
  </form>
</section>

{{if .Error}}<div class="error" role="alert">{{.Error}}</div>{{end}}

<div class="actions">
  <form method="post" action="/session/extract" onsubmit="document.getElementById('status').textContent='Processing Your Invoice...'">
    <button type="submit"{{if not .CanSubmit}} disabled{{end}}>Extract Invoice Data</button>
  </form>
  {{if .CanReset}}
  <form method="post" action="/session/reset">
    <button type="submit">Reset</button>
  </form>
  {{end}}
</div>

<p id="status">{{if eq .Phase "processing"}}Processing Your Invoice...{{end}}</p>

{{if .Snapshot.Result}}
<section>
  <h2>Processing Complete</h2>
  {{if .Timing}}
  <div class="timing">
    {{range .Timing}}<div><strong>{{.Value}}</strong>{{.Label}}</div>{{end}}
  </div>
  {{end}}
  <p><a href="/session/export">Download raw text</a> | <a href="/session/export.xlsx">Download workbook</a></p>
  <h2>ERP Structured Data</h2>
  {{.ResultHTML}}
</section>
{{else if ne .Phase "processing"}}
<section>
  <h2>Ready to Process</h2>
  <p>Upload an invoice PDF and extract its structured data.</p>
</section>
{{end}}

<script>
(function () {
  var zone = document.getElementById('drop-zone');
  function post(path, body) {
    return fetch(path, { method: 'POST', body: body, headers: { 'Accept': 'application/json' } });
  }
  zone.addEventListener('dragenter', function (e) { e.preventDefault(); zone.classList.add('active'); post('/session/drag/enter'); });
  zone.addEventListener('dragover', function (e) { e.preventDefault(); });
  zone.addEventListener('dragleave', function (e) {
    if (zone.contains(e.relatedTarget)) { return; }
    zone.classList.remove('active');
    post('/session/drag/leave');
  });
  zone.addEventListener('drop', function (e) {
    e.preventDefault();
    zone.classList.remove('active');
    var form = new FormData();
    if (e.dataTransfer.files.length > 0) { form.append('file', e.dataTransfer.files[0]); }
    post('/session/drop', form).then(function () { window.location.reload(); });
  });
})();
</script>
</body>
</html>
`))
