// Package preflight provides readiness checks for the library backend and the
// filesystem paths mergeversions depends on.
//
// The CLI "mergeversions check" command runs RunAll and renders the results;
// merge and split batches run the same checks first and refuse to start when
// one fails. Only the configured backend is checked.
package preflight
