// Package mask implements the SQL entity-masking engine: it classifies
// identifiers and string literals in a token stream, generates a
// bidirectional mapping from real lexemes to synthetic replacements,
// rewrites the stream into masked SQL, and reverses the rewrite from a
// saved mapping.
//
// The pipeline runs strictly forward for masking:
//
//	lexer.Tokenize -> Classify -> Generator.Populate -> Rewrite
//
// and backward through the Store for unmasking. Keywords, operators,
// punctuation, and formatting are never touched; only identifier and
// string-literal lexemes are substituted 1:1, which keeps syntactically
// valid input syntactically valid.
//
// All transformations are pure functions over immutable token streams. A
// Session owns its state exclusively, so concurrent sessions need no
// synchronization. The only suspending operation is the optional semantic
// naming call, which is bounded by a timeout and always falls back to
// deterministic naming.
package mask
