// Package refresh pokes the media server so newly organized files show up
// without waiting for its scheduled library scan.
package refresh
