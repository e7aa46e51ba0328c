package mocks

import "github.com/ooni/nbtls/internal/model"

// DNS allows mocking model.DNS.
type DNS struct {
	MockGetHostByName func(name string, hint model.AddrType) (model.HostAddr, error)
}

var _ model.DNS = &DNS{}

// GetHostByName calls MockGetHostByName.
func (d *DNS) GetHostByName(name string, hint model.AddrType) (model.HostAddr, error) {
	return d.MockGetHostByName(name, hint)
}
