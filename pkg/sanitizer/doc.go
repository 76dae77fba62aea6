// Package sanitizer normalizes user-supplied identifiers before they reach
// validation or storage.
package sanitizer
