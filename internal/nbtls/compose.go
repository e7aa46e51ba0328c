package nbtls

import "github.com/ooni/nbtls/internal/model"

// dnsTLS composes a TLS and a DNS capability.
type dnsTLS[S, K any] struct {
	model.TLS[S, K]
	model.DNS
}

// WithDNS returns a [model.DNSTLS] that resolves names using dns and
// otherwise behaves like tls.
func WithDNS[S, K any](tls model.TLS[S, K], dns model.DNS) model.DNSTLS[S, K] {
	return &dnsTLS[S, K]{TLS: tls, DNS: dns}
}
