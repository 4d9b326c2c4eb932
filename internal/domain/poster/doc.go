// Package poster defines the poster document model shared by the studio.
//
// A Document is always the server's version of a poster. The studio never
// derives one from a partial client-side patch: every successful call to the
// poster service hands back a complete Document that replaces the previous one.
//
// Contents:
//   - Document, Section: poster content in display order
//   - StyleOverrides, ElementStyle: sparse per-element style overrides
//   - Target references: poster_title, section_<id>_content, ...
//   - Wire contracts for the poster service (snake_case JSON)
package poster
