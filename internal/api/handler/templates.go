package handler

import "html/template"

// Template names registered by Templates
const (
	TemplateRespondForm   = "respond_form.html"
	TemplateRespondResult = "respond_result.html"
)

const respondTemplates = `
{{define "respond_form.html"}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Job offer {{.Job.Reference}}</title></head>
<body>
<h1>Job offer {{.Job.Reference}}</h1>
<p>Hello {{.Reference.CandidateName}}, you have been offered a job in <strong>{{.Job.Area}}</strong>.</p>
<p>Offer number {{.Reference.AttemptNumber}}.</p>
<form method="POST" action="{{.Action}}">
  <label for="remark">Remark (optional)</label><br>
  <textarea id="remark" name="remark" maxlength="500" rows="4" cols="50"></textarea><br>
  <button type="submit" name="action" value="accept">Accept</button>
  <button type="submit" name="action" value="reject">Reject</button>
</form>
</body>
</html>{{end}}
{{define "respond_result.html"}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Job offer</title></head>
<body>
{{if .Reference}}<h1>Job offer {{.Reference}}</h1>{{end}}
<p>{{.Message}}</p>
</body>
</html>{{end}}
`

// Templates returns the HTML templates served on the respond endpoints
func Templates() *template.Template {
	return template.Must(template.New("respond").Parse(respondTemplates))
}
