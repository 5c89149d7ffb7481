package email

import "strings"

// Route sends configs whose host ends with HostSuffix to Factory.
type Route struct {
	HostSuffix string
	Factory    TransportFactory
}

type routerFactory struct {
	fallback TransportFactory
	routes   []Route
}

// NewRouterFactory picks a factory by SMTP host suffix. The first matching
// route wins; unmatched hosts use fallback. Matching is case-insensitive.
func NewRouterFactory(fallback TransportFactory, routes ...Route) TransportFactory {
	return &routerFactory{fallback: fallback, routes: routes}
}

func (r *routerFactory) New(cfg SMTPConfig) (Transporter, error) {
	host := strings.ToLower(strings.TrimSpace(cfg.Host))
	for _, route := range r.routes {
		if route.HostSuffix != "" && strings.HasSuffix(host, strings.ToLower(route.HostSuffix)) {
			return route.Factory.New(cfg)
		}
	}
	return r.fallback.New(cfg)
}
