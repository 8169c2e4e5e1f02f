package config

// ProxyConfig maps each public path prefix to its upstream service.
type ProxyConfig interface {
	GetProxyUpstreams() []ProxyUpstream
}

type ProxyUpstream struct {
	PathPrefix  string
	UpstreamURL string
}

type Proxy struct{}

var _ ProxyConfig = Proxy{}

func (Proxy) GetProxyUpstreams() []ProxyUpstream {
	return []ProxyUpstream{
		{PathPrefix: "/translation-order", UpstreamURL: GetEnv("ORDER_SERVICE_URL", "http://localhost:9001")},
		{PathPrefix: "/authorization", UpstreamURL: GetEnv("AUTHORIZATION_SERVICE_URL", "http://localhost:9002")},
		{PathPrefix: "/translation-memory", UpstreamURL: GetEnv("TRANSLATION_MEMORY_SERVICE_URL", "http://localhost:9003")},
		{PathPrefix: "/audit-log", UpstreamURL: GetEnv("AUDIT_LOG_SERVICE_URL", "http://localhost:9004")},
	}
}
