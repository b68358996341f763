// Package importer performs idempotent upserts of workspace content into the
// embedded store.
//
// Three import paths share the same shape:
//
//   - templates land in the set named by their template_sets/ directory
//   - stylesheets land in the theme named by their styles/ directory
//   - plugin templates are always titled {codename}_{leaf} and land in the
//     named set, or on the master set (sid -2) when no destination resolves
//
// Set and theme names resolve through a TTL cache (Cache) so a steady stream
// of file events does not re-query the store for every item. Only positive
// resolutions are cached: a set created after start-up is picked up on the
// next resolution attempt instead of being masked until restart.
//
// Error semantics: blank content and unresolvable destinations are skips with
// warnings, never errors. Store failures propagate so the batch driver can
// log them with enough identity to retry manually and continue with the
// remaining items.
package importer
