// Package cmd implements the command-line interface of kvmodel.
// It provides a hierarchical command structure for inspecting and modifying
// the durable and the session store that models are bound to.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for store operations (get, set, del, keys, clear, dump, restore, perf, etc.)
//   - util: Shared utilities for command-line processing, configuration and opening the stores (internal use)
//
// Every flag can also be set as an environment variable with the KVMODEL_ prefix
// (e.g. KVMODEL_DB, KVMODEL_SESSION_FILE), including from .env and .env.local files.
//
// See kvmodel -help for a list of all commands.
package cmd
