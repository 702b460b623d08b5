// Package search holds the canonical search model and the logic that turns
// whatever the directory's search endpoint returns into it.
//
// # Overview
//
// The remote search API has no fixed contract. Depending on the deployment it
// answers with a bare array, a paginated envelope, a set of keyed collections
// ("merchants", "categories", ...), a single object, or an object whose
// properties are themselves records. The Normalizer tries a fixed list of
// shape decoders in priority order and maps every raw record it finds into a
// SearchResult:
//
//	results := search.Normalize(body)
//
// Records without a usable title are dropped silently. The result type is
// inferred from a priority-ordered rule table (TypeRules) when the record does
// not carry an explicit type.
//
// # Service
//
// Service combines a remote searcher with a local fallback index. The fallback
// is consulted only when the remote returns nothing, either because nothing
// matched or because the request failed:
//
//	svc := search.NewService(client, idx)
//	out := svc.Search(ctx, "cafe")
//	fmt.Println(out.Source, out.Count)
//
// Service never returns an error. Outcome.Err carries the remote failure, if
// any, for logging, metrics and the suggestion state machine.
package search
