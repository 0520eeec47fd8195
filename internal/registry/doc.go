// Package registry provides the symbol namespace that configuration trees
// are resolved against.
//
// The Registry maps short package names to Packages; a Package holds the
// free functions and classes a host application exposes to configuration,
// and a Class holds its ordered direct bases and its methods, including the
// "init" constructor. Dotted construction paths such as "optim.Adam" are
// resolved by walking this structure attribute by attribute, never by
// evaluating code.
//
// Go cannot recover parameter names by reflection, so each Func declares
// its parameters (names, kinds, defaults) at registration time; their types
// are read from the Go implementation with reflect. A Func whose variadic
// keyword bucket is forwarded to another callable declares that forwarding
// body as source text (Forwards), which the tracer package analyses.
package registry
