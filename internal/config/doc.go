// Package config defines the format-agnostic model of a workflow definition
// (pipelines, their modes and solids), along with the core interfaces
// (Loader, Converter) for loading definitions and interpreting run
// configuration values against their declared types.
//
// The `config.Model` is the single source of truth for the `plan` package.
// Concrete implementations of the interfaces, such as for HCL, are provided
// in separate packages.
package config
