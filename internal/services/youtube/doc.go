// Package youtube wraps the YouTube Data API v3 videos endpoint used to
// resolve video identifiers into snippet metadata.
//
// A single FetchVideos call covers up to 50 identifiers and costs one unit of
// the caller's quota. Identifiers missing from the response are simply absent
// from the returned map; callers treat them as not found rather than as errors.
package youtube
