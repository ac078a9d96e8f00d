package transport

import (
	"encoding/json"
	"net/http"
)

// debugInfo is the response shape of the request-inspection endpoint.
type debugInfo struct {
	Host    string      `json:"host"`
	Method  string      `json:"method"`
	URL     string      `json:"url"`
	Headers http.Header `json:"headers"`
}

// debugHandler reports the detected client host, method, URL and raw headers
// so operators can inspect what the edge sees.
func debugHandler(w http.ResponseWriter, r *http.Request) {
	info := debugInfo{
		Host:    ClientHost(r.Header, r.Host),
		Method:  r.Method,
		URL:     r.URL.String(),
		Headers: r.Header,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// healthHandler answers liveness probes.
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}
