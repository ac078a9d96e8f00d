package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloakedge/cloakedge/internal/edge/domain"
	"github.com/cloakedge/cloakedge/internal/edge/gateways/proxy"
)

// stubDecider returns a canned decision or error and records the inputs.
type stubDecider struct {
	decision domain.RoutingDecision
	err      error

	gotHost string
	gotUA   string
}

func (d *stubDecider) Route(_ context.Context, clientHost, userAgent string) (domain.RoutingDecision, error) {
	d.gotHost = clientHost
	d.gotUA = userAgent
	if d.err != nil {
		return domain.RoutingDecision{}, d.err
	}
	return d.decision, nil
}

// stubForwarder records the forwarded decision instead of proxying.
type stubForwarder struct {
	forwarded *domain.RoutingDecision
}

func (f *stubForwarder) Forward(w http.ResponseWriter, _ *http.Request, d domain.RoutingDecision) {
	f.forwarded = &d
	w.WriteHeader(http.StatusOK)
}

func testDecision(t *testing.T, route domain.RouteLabel, target string) domain.RoutingDecision {
	t.Helper()
	u, err := url.Parse(target)
	require.NoError(t, err)
	return domain.RoutingDecision{Route: route, Target: u, ClientHost: "shop.example.com"}
}

func TestHandler_ProxiesDecidedRequests(t *testing.T) {
	decider := &stubDecider{decision: testDecision(t, domain.RouteWhite, "https://cdn.example.com")}
	forwarder := &stubForwarder{}
	h := NewHandler(HandlerOptions{Router: decider, Proxy: forwarder})

	req := httptest.NewRequest(http.MethodGet, "http://shop.example.com/products", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "shop.example.com", decider.gotHost)
	assert.Equal(t, "Mozilla/5.0", decider.gotUA)
	require.NotNil(t, forwarder.forwarded)
	assert.Equal(t, domain.RouteWhite, forwarder.forwarded.Route)
}

func TestHandler_NotConfigured(t *testing.T) {
	decider := &stubDecider{err: domain.ErrNotConfigured}
	forwarder := &stubForwarder{}
	h := NewHandler(HandlerOptions{Router: decider, Proxy: forwarder})

	req := httptest.NewRequest(http.MethodGet, "http://unknown.test/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown.test")
	assert.Equal(t, "unknown.test", rec.Header().Get(proxy.HeaderEdgeHost))
	assert.Equal(t, "none", rec.Header().Get(proxy.HeaderEdgeTarget))
	assert.Nil(t, forwarder.forwarded, "route must never be attempted for unconfigured hosts")
}

func TestHandler_ResolutionError(t *testing.T) {
	decider := &stubDecider{err: &domain.ResolutionError{Host: "shop.example.com", Status: 500}}
	forwarder := &stubForwarder{}
	h := NewHandler(HandlerOptions{Router: decider, Proxy: forwarder})

	req := httptest.NewRequest(http.MethodGet, "http://shop.example.com/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Nil(t, forwarder.forwarded, "failed resolution must never be routed")
}

func TestHandler_HealthEndpoint(t *testing.T) {
	h := NewHandler(HandlerOptions{Router: &stubDecider{}, Proxy: &stubForwarder{}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://shop.example.com/_edge/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHandler_DebugEndpoint(t *testing.T) {
	h := NewHandler(HandlerOptions{Router: &stubDecider{}, Proxy: &stubForwarder{}})

	req := httptest.NewRequest(http.MethodGet, "http://internal.example.net/_edge/debug?x=1", nil)
	req.Header.Set("X-Forwarded-Host", "public.example.com")
	req.Header.Set("User-Agent", "curl/8.4.0")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var info struct {
		Host    string              `json:"host"`
		Method  string              `json:"method"`
		URL     string              `json:"url"`
		Headers map[string][]string `json:"headers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "public.example.com", info.Host)
	assert.Equal(t, http.MethodGet, info.Method)
	assert.Equal(t, "/_edge/debug?x=1", info.URL)
	assert.Equal(t, []string{"curl/8.4.0"}, info.Headers["User-Agent"])
}

func TestHandler_ACMEWiredWhenProvided(t *testing.T) {
	acme := NewACMEHandler(map[string]string{"tok123": "tok123.keyauth"}, nil, nil)
	h := NewHandler(HandlerOptions{Router: &stubDecider{}, Proxy: &stubForwarder{}, ACME: acme})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, challengeRequest(http.MethodGet, "tok123"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok123.keyauth", rec.Body.String())
}

// End-to-end: decision engine plus real proxy against an httptest origin.
func TestHandler_EndToEnd(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("white content"))
	}))
	t.Cleanup(origin.Close)

	decider := &stubDecider{decision: testDecision(t, domain.RouteWhite, origin.URL)}
	h := NewHandler(HandlerOptions{Router: decider, Proxy: proxy.New(proxy.Options{})})

	edge := httptest.NewServer(h)
	t.Cleanup(edge.Close)

	req, err := http.NewRequest(http.MethodGet, edge.URL+"/landing", nil)
	require.NoError(t, err)
	req.Host = "shop.example.com"

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "shop.example.com", resp.Header.Get(proxy.HeaderEdgeHost))
	assert.Equal(t, "white", resp.Header.Get(proxy.HeaderEdgeRoute))
	assert.Equal(t, origin.URL, resp.Header.Get(proxy.HeaderEdgeTarget))
}
