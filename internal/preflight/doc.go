// Package preflight provides readiness checks for the filesystem paths that
// vidshelf depends on.
//
// The run coordinator calls RunAll before touching anything. When any check
// fails the run aborts with a configuration error, since every later step
// would fail against the same paths anyway.
package preflight
