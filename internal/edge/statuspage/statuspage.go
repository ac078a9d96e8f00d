// Package statuspage renders human-readable error pages for requests the edge
// cannot route.
package statuspage

import (
	"bytes"
	"html/template"
	"net/http"
)

var pageTemplate = template.Must(template.New("statuspage").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.Code}} {{.Text}}</title></head>
<body>
<h1>{{.Code}} {{.Text}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

type pageContext struct {
	Code    int
	Text    string
	Message string
}

// Write renders a status page for statusCode with a custom message.
func Write(w http.ResponseWriter, statusCode int, message string) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageContext{
		Code:    statusCode,
		Text:    http.StatusText(statusCode),
		Message: message,
	})
	if err != nil {
		http.Error(w, http.StatusText(statusCode), statusCode)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	buf.WriteTo(w)
}

// NotConfigured renders the fixed explanatory page for hostnames the policy
// API does not know.
func NotConfigured(w http.ResponseWriter, host string) {
	Write(w, http.StatusNotFound, "The domain "+host+" is not configured on this server.")
}

// BadGateway renders the page for upstream failures, both policy resolution
// and origin proxying.
func BadGateway(w http.ResponseWriter) {
	Write(w, http.StatusBadGateway, "The upstream server could not be reached.")
}
