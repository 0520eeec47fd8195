// Package runner is the host side of a kwgraph application. It loads and
// merges configuration files and overrides, expands sweeps into runs,
// validates every run against the registered modules and hands each
// realized run to the application, sequentially or on a bounded pool of
// workers.
package runner
