// Package model contains the shared interfaces and data structures.
//
// # Criteria for adding a type to this package
//
// This package should contain two types:
//
// 1. the capability interfaces that network stacks, resolvers and
// TLS backends implement, so that unrelated pieces of code only meet
// through small contracts and unit testing is easier;
//
// 2. the pieces of data that travel across those contracts (e.g.,
// the representation of a resolved host address).
//
// In general, this package should not contain logic, unless
// this logic is strictly related to data structures and we
// cannot implement this logic elsewhere.
//
// # Content of this package
//
// - addrtype.go: the address family hint passed to resolvers;
//
// - errors.go: errors shared by the data structures;
//
// - hostaddr.go: numeric addresses paired with an optional hostname;
//
// - logger.go: generic definition of an apex/log compatible logger;
//
// - netx.go: the TCP, DNS and TLS capability interfaces;
//
// - tlssocket.go: the wrapper for a secured transport socket.
package model
