// Package config defines the host settings of a kwgraph application: the
// configuration files loaded by default, the log projection filter, the
// sweep worker count and logging options. Settings are read from TOML.
package config
