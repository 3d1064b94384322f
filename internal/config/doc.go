// Package config defines the application's configuration structure and
// loading logic. Configuration comes from an optional YAML file and from
// HERALD_-prefixed environment variables, with env taking precedence, and
// is validated before use.
package config
