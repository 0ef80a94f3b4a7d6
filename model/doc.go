// Package model defines model specifications, pricing, and the spec registry.
//
// A Spec identifies one routable model: its provider, the provider-specific
// model identifier, per-token pricing, and the default rate-limit policy.
// Specs are immutable once registered and are looked up by name from a
// registry built at startup, optionally loaded from YAML or TOML files.
//
// Costs use fixed-point arithmetic (Cost, in nanodollars) so repeated
// charges never accumulate floating-point drift.
package model
