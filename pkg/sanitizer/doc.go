// Package sanitizer normalizes catalogue input before validation and storage.
//
// All normalization functions are idempotent - applying them multiple times produces
// the same result. Functions handle invalid input gracefully, typically by returning
// empty strings or empty slices rather than errors.
//
// Normalization includes:
//   - Strings: Collapse whitespace, trim leading/trailing spaces
//   - Court names: whitespace normalized, case preserved; compared case-insensitively
//   - Features: whitespace normalized, deduplicated case-insensitively, first spelling kept
//   - Categories: "indoor" / " OUTDOOR " become "Indoor" / "Outdoor"
//   - Clock times: "8:00" becomes "08:00"
package sanitizer
