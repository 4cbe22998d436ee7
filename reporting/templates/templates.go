package templates

import "html/template"

//ReportingInfo fills the templates listed in html/template
type ReportingInfo struct {
	GeneratedAt string
	Total       int
	Matches     int
	Baselines   int
	Writer      template.HTML
}

var header = `
<head>
<meta content="text/html;charset=utf-8" http-equiv="Content-Type">
<meta content="utf-8" http-equiv="encoding">
<link rel="stylesheet" type="text/css" href="./style.css">
</head>

<ul>
  <li><a href="./index.html">snitch</a></li>
  <li><a>Generated: {{.GeneratedAt}}</a></li>
  <li style="float:right">
    <a href="https://github.com/activecm/snitch" target="_blank">snitch on GitHub</a>
  </li>
</ul>
`

// DetectionsTempl is the detections report html template
var DetectionsTempl = header + `
<div class="container">
  <p>
    <div class="info">{{.Total}} detections recorded: {{.Matches}} matches, {{.Baselines}} baselines.</div>
  </p>
  <table>
    <tr>
      <th>Time</th><th>Process</th><th>PID</th><th>Destination</th>
      <th>rDNS</th><th>Pattern</th><th>Category</th><th>Severity</th>
      <th>Type</th><th>Repeats</th><th>Country</th>
    </tr>
    {{.Writer}}
  </table>
</div>
`

// EmptyTempl is rendered when no detections match the report filters
var EmptyTempl = header + `
<div class="container">
  <p>
    <div class="info">No detections matched the report filters.</div>
  </p>
</div>
`
