// Package loader provides service.DocumentLoader implementations that fetch
// the registry manifest and its concept-map and value-set payloads.
//
// Key components:
//   - Dir: reads documents from a local directory
//   - HTTP: reads documents from a blob bucket exposed over HTTP
//   - Postgres: reads documents from a table through pgx
//   - Mirror: wraps another loader and keeps a LevelDB copy of every
//     document it fetched, serving that copy when the primary is unreachable
//
// Loaders compose with service.DocumentChain:
//
//	chain := service.NewDocumentChain(
//	    loader.NewDir("/srv/registry-overrides"),
//	    loader.NewHTTP("https://bucket.example.org/registry"),
//	)
package loader
