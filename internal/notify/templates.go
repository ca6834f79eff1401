package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

var offerTemplate = template.Must(template.New("offer").Parse(`<p>Hello {{.CandidateName}},</p>
<p>Job <strong>{{.Reference}}</strong> in {{.Area}} is available for you.</p>
<p>Please <a href="{{.Link}}">accept or reject the job</a> within {{.WindowMinutes}} minutes. The link stops working after that.</p>
<p>Offer #{{.AttemptNumber}}</p>
`))

var escalationTemplate = template.Must(template.New("escalation").Parse(`<p>Hello {{.OwnerName}},</p>
<p>Nobody accepted job <strong>{{.Reference}}</strong> ({{.Area}}, {{.Client}}). It needs manual assignment.</p>
{{if .Attempts}}<table border="1" cellpadding="4" cellspacing="0">
<tr><th>#</th><th>Candidate</th><th>Status</th><th>Remark</th><th>Offered at</th></tr>
{{range .Attempts}}<tr><td>{{.AttemptNumber}}</td><td>{{.CandidateName}}</td><td>{{.Status}}</td><td>{{.RemarkText}}</td><td>{{.CreatedAt.Format "2006-01-02 15:04 MST"}}</td></tr>
{{end}}</table>
{{else}}<p>No eligible candidates were found for this job.</p>
{{end}}`))

var responseTemplate = template.Must(template.New("response").Parse(`<p>Hello {{.OwnerName}},</p>
<p>{{.CandidateName}} <strong>{{.Action}}</strong> job <strong>{{.Reference}}</strong> (offer #{{.AttemptNumber}}).</p>
{{if .Remark}}<p>Remark: {{.Remark}}</p>
{{end}}`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}
