package nhttp

import (
	"crypto/tls"

	"golang.org/x/crypto/acme/autocert"
)

// SetAutocert wires a Let's Encrypt certificate manager in as the TLS
// provider instead of a static Certificate. Must be called before
// Start.
func (s *Server) SetAutocert(m *autocert.Manager) {
	s.mu.Lock()
	s.tlsCfg = m.TLSConfig()
	s.mu.Unlock()
}

// buildTLSConfig assembles the server-side TLS configuration from the
// configured certificate, allowed protocol versions and client
// certificate requirement. Nil means plain TCP.
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	var cfg *tls.Config
	if s.tlsCfg != nil {
		cfg = s.tlsCfg.Clone()
	}
	if s.Certificate != nil {
		if cfg == nil {
			cfg = &tls.Config{}
		}
		cfg.Certificates = append(cfg.Certificates[:0], *s.Certificate)
	}
	if cfg == nil {
		return nil, nil
	}
	if s.TLSMinVersion != 0 {
		cfg.MinVersion = s.TLSMinVersion
	}
	if s.TLSMaxVersion != 0 {
		cfg.MaxVersion = s.TLSMaxVersion
	}
	if s.RequireClientCert {
		// the handshake demands a client certificate but does not
		// verify it; the client identity is not surfaced to the handler
		cfg.ClientAuth = tls.RequireAnyClientCert
	}
	return cfg, nil
}
