// Package vocabulary provides the namespaces, datatypes and identifier
// patterns shared by the mapping engine.
//
// # Namespaces
//
// Well-known namespaces (rdf, rdfs, xsd, owl, schema, wd, ...) are always
// available for expanding compact names in a mapping document. They are not
// emitted as prefix declarations unless the document declares them too:
//
//	prefixes:
//	  schema: https://schema.org/
//
// # Datatypes
//
// Typed-literal columns name one of the supported XML Schema datatypes by short
// name ("date"), compact name ("xsd:date") or full IRI. Each datatype carries a
// lexical validator; values that fail validation are demoted to plain literals
// by the resolver.
//
// # Identifier Patterns
//
// Named patterns extract stable external identifiers from free text:
//   - wikidata: Q/P/L-prefixed Wikidata identifiers (Q42)
//   - musicbrainz: MusicBrainz UUIDs
//   - viaf: numeric VIAF cluster IDs from viaf.org URLs
//   - geonames: numeric GeoNames IDs from geonames.org URLs
//
// Any other extract value is compiled as a regular expression. When a pattern
// has a capture group, the first group is the identifier.
package vocabulary
