package transport

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientHost(t *testing.T) {
	tests := []struct {
		name        string
		headers     map[string]string
		requestHost string
		expected    string
	}{
		{
			name:        "request host only",
			requestHost: "shop.example.com",
			expected:    "shop.example.com",
		},
		{
			name:        "request host with port",
			requestHost: "shop.example.com:8443",
			expected:    "shop.example.com",
		},
		{
			name:        "forwarded host wins over request host",
			headers:     map[string]string{"X-Forwarded-Host": "public.example.com"},
			requestHost: "internal.example.net",
			expected:    "public.example.com",
		},
		{
			name:        "first entry of forwarded host chain",
			headers:     map[string]string{"X-Forwarded-Host": "public.example.com, edge1.example.net, edge2.example.net"},
			requestHost: "internal.example.net",
			expected:    "public.example.com",
		},
		{
			name: "original host wins over everything",
			headers: map[string]string{
				"X-Original-Host":  "Canonical.Example.COM",
				"X-Forwarded-Host": "public.example.com",
			},
			requestHost: "internal.example.net",
			expected:    "canonical.example.com",
		},
		{
			name:        "blank original host falls through",
			headers:     map[string]string{"X-Original-Host": "  ", "X-Forwarded-Host": "public.example.com"},
			requestHost: "internal.example.net",
			expected:    "public.example.com",
		},
		{
			name:        "blank forwarded host falls through",
			headers:     map[string]string{"X-Forwarded-Host": " ,edge1.example.net"},
			requestHost: "internal.example.net",
			expected:    "internal.example.net",
		},
		{
			name:     "nothing present",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.expected, ClientHost(h, tt.requestHost))
		})
	}
}
