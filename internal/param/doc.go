// Package param defines the parameter model shared by the registry, the
// signature resolver and the materializer: a single formal argument of a
// callable (Parameter) and the ordered, name-unique collection of them
// (Table) that a resolved signature is expressed as.
package param
