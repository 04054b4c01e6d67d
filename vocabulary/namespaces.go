package vocabulary

import (
	"fmt"
	"sort"
	"strings"
)

// Well-known namespace IRIs.
const (
	RDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS    = "http://www.w3.org/2000/01/rdf-schema#"
	XSD     = "http://www.w3.org/2001/XMLSchema#"
	OWL     = "http://www.w3.org/2002/07/owl#"
	SKOS    = "http://www.w3.org/2004/02/skos/core#"
	DCTerms = "http://purl.org/dc/terms/"
	FOAF    = "http://xmlns.com/foaf/0.1/"
	Schema  = "https://schema.org/"

	// WikidataEntity is the namespace of Wikidata items and properties.
	WikidataEntity = "http://www.wikidata.org/entity/"
	// WikidataDirect is the namespace of Wikidata truthy statements.
	WikidataDirect = "http://www.wikidata.org/prop/direct/"
)

// Frequently used terms.
const (
	RDFType       = RDF + "type"
	RDFLangString = RDF + "langString"
	XSDString     = XSD + "string"
)

// builtinPrefixes are usable in a mapping document without being declared.
var builtinPrefixes = map[string]string{
	"rdf":     RDF,
	"rdfs":    RDFS,
	"xsd":     XSD,
	"owl":     OWL,
	"skos":    SKOS,
	"dcterms": DCTerms,
	"foaf":    FOAF,
	"schema":  Schema,
	"wd":      WikidataEntity,
	"wdt":     WikidataDirect,
}

// BuiltinPrefixes returns a copy of the well-known prefix table.
func BuiltinPrefixes() map[string]string {
	out := make(map[string]string, len(builtinPrefixes))
	for k, v := range builtinPrefixes {
		out[k] = v
	}
	return out
}

// IsAbsoluteIRI reports whether s carries a URI scheme followed by a
// hierarchical part or an URN body.
func IsAbsoluteIRI(s string) bool {
	idx := strings.Index(s, ":")
	if idx <= 0 {
		return false
	}
	scheme := s[:idx]
	for i, r := range scheme {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if i == 0 && !isLetter {
			return false
		}
		if !isLetter && !(r >= '0' && r <= '9') && r != '+' && r != '-' && r != '.' {
			return false
		}
	}
	rest := s[idx+1:]
	return strings.HasPrefix(rest, "//") || strings.EqualFold(scheme, "urn") || strings.EqualFold(scheme, "mailto")
}

// Expand resolves a compact name ("schema:name") or absolute IRI against the
// declared prefixes, falling back to the built-in table.
func Expand(name string, declared map[string]string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty name")
	}
	if strings.HasPrefix(name, "<") && strings.HasSuffix(name, ">") {
		return name[1 : len(name)-1], nil
	}
	if IsAbsoluteIRI(name) {
		return name, nil
	}
	prefix, local, ok := strings.Cut(name, ":")
	if !ok {
		return "", fmt.Errorf("%q is neither an absolute IRI nor a prefixed name", name)
	}
	if ns, found := declared[prefix]; found {
		return ns + local, nil
	}
	if ns, found := builtinPrefixes[prefix]; found {
		return ns + local, nil
	}
	return "", fmt.Errorf("unknown prefix %q in %q", prefix, name)
}

// SortedPrefixes returns prefix labels in lexical order.
func SortedPrefixes(prefixes map[string]string) []string {
	keys := make([]string, 0, len(prefixes))
	for key := range prefixes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Compact abbreviates iri with the longest matching namespace in prefixes.
// It reports false when no namespace matches or the remaining local part is
// not a legal prefixed-name local.
func Compact(iri string, prefixes map[string]string) (string, bool) {
	bestNS, bestPrefix := "", ""
	found := false
	for _, prefix := range SortedPrefixes(prefixes) {
		ns := prefixes[prefix]
		if ns == "" || !strings.HasPrefix(iri, ns) {
			continue
		}
		if !isLocalName(iri[len(ns):]) {
			continue
		}
		if len(ns) > len(bestNS) {
			bestNS, bestPrefix, found = ns, prefix, true
		}
	}
	if !found {
		return "", false
	}
	return bestPrefix + ":" + iri[len(bestNS):], true
}

// isLocalName accepts the conservative subset of PN_LOCAL that needs no
// escaping: ASCII letters, digits, '_', '-' and inner '.'.
func isLocalName(local string) bool {
	if local == "" {
		return false
	}
	for i := 0; i < len(local); i++ {
		ch := local[i]
		isStart := (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '_'
		if i == 0 {
			if !isStart {
				return false
			}
			continue
		}
		if !isStart && ch != '-' && ch != '.' {
			return false
		}
	}
	return local[len(local)-1] != '.'
}
