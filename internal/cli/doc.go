// Package cli builds the command line of a kwgraph host: settings and
// configuration flags, positional dotted overrides, and process exit codes.
package cli
