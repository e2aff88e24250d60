package geocode

import (
	"net/http"
	"net/url"
	"sync"
)

// redirectTransport sends every request to a test server, remembering the URL
// the client originally asked for.
type redirectTransport struct {
	target *url.URL

	mu   sync.Mutex
	seen []string
}

func newRedirectClient(t interface{ Helper() }, testServerURL string) (*http.Client, *redirectTransport) {
	t.Helper()
	target, err := url.Parse(testServerURL)
	if err != nil {
		panic(err)
	}
	rt := &redirectTransport{target: target}
	return &http.Client{Transport: rt}, rt
}

func (rt *redirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.seen = append(rt.seen, req.URL.String())
	rt.mu.Unlock()

	out := req.Clone(req.Context())
	out.URL.Scheme = rt.target.Scheme
	out.URL.Host = rt.target.Host
	out.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(out)
}

func (rt *redirectTransport) requests() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]string(nil), rt.seen...)
}
