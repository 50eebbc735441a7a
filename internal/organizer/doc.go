// Package organizer moves downloaded files into their library destination and
// writes the descriptor that media servers read for titles and plots.
//
// Moves are atomic and never overwrite: the source is hard linked into place
// and then unlinked, falling back to a synced copy when the library lives on
// another filesystem. Name collisions pick the next free "Base (n)" name.
// Invoking Organize again for a file that has already moved reports a
// missing-source error instead of touching the destination.
//
// Auxiliary files follow the primary file's final base name: subtitles keep
// their language tag before the extension and yt-dlp info.json sidecars are
// folded into the descriptor.
package organizer
