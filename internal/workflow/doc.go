// Package workflow runs one organizer pass over the download directory.
//
// The Coordinator checks paths, takes the run lock, discovers untracked
// downloads, resolves their metadata in a single batched pass, computes every
// destination up front, and then fans the per-identifier groups out to a
// bounded worker pool. Only after the pool drains are source names appended
// to the tracker. Retention, the ntfy summary, the library refresh and the
// metrics textfile follow, each isolated so that its failure never undoes
// organization results.
//
// Only configuration and preflight problems (and a concurrent run holding
// the lock) abort a run. Everything else is logged, counted and reported.
package workflow
