package proxy

import (
	"net/url"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ProxySupplier hands out proxies in round-robin order
type ProxySupplier interface {
	Get() string
	Len() int
}

type proxySupplier struct {
	proxies []string
	current int
	mutex   sync.Mutex
}

// NewProxySupplier creates a ProxySupplier from the configured proxy URLs,
// skipping entries that do not parse as absolute URLs.
func NewProxySupplier(proxies []string) ProxySupplier {
	valid := make([]string, 0, len(proxies))
	for _, p := range proxies {
		u, err := url.Parse(p)
		if err != nil || u.Scheme == "" || u.Host == "" {
			log.Warnf("⚠️ Ignoring invalid proxy %q", p)
			continue
		}
		valid = append(valid, p)
	}

	if len(valid) > 0 {
		log.Infof("🔗 ProxySupplier initialized with %d proxies", len(valid))
	}

	return &proxySupplier{proxies: valid}
}

// Get returns the next proxy URL in round-robin fashion
func (p *proxySupplier) Get() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if len(p.proxies) == 0 {
		return "" // No proxies available
	}

	proxy := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)

	return proxy
}

func (p *proxySupplier) Len() int {
	return len(p.proxies)
}
