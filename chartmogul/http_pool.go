package chartmogul

import (
	"net"
	"net/http"
	"sync"
	"time"
)

type transportKey struct {
	timeout time.Duration
	pool    ConnectionPool
}

// transportPool hands out one *http.Client per distinct timeout and pool
// setting, so clients built from equal configs share idle connections.
type transportPool struct {
	mu      sync.Mutex
	clients map[transportKey]*http.Client
}

var sharedTransports = &transportPool{clients: map[transportKey]*http.Client{}}

func (p *transportPool) clientFor(cfg Config) *http.Client {
	key := transportKey{timeout: cfg.timeout, pool: cfg.pool}

	p.mu.Lock()
	defer p.mu.Unlock()
	if client, ok := p.clients[key]; ok {
		return client
	}
	client := &http.Client{Timeout: key.timeout, Transport: newTransport(key.pool)}
	p.clients[key] = client
	return client
}

func newTransport(pool ConnectionPool) *http.Transport {
	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          pool.MaxIdleConns,
		MaxIdleConnsPerHost:   pool.MaxIdleConnsPerHost,
		IdleConnTimeout:       pool.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}
