// Package idnax contains IDNA extensions.
package idnax

import "golang.org/x/net/idna"

// ToASCII converts an IDNA to ASCII using the UTS #46 lookup profile.
func ToASCII(domain string) (string, error) {
	return idna.Lookup.ToASCII(domain)
}
