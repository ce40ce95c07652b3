// Package file provides the TOML-backed configuration store.
//
// Keys are flat dot-notation strings ("collection.max_concurrent") and are
// written back to disk as TOML tables. Any key can be overridden through an
// environment variable named by EnvName; LoadDotEnv seeds the environment
// from .env files before the store is read.
package file
