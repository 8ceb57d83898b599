/*
Package doc implements the document model of a schematized, reducible
document store: JSON-superset documents, schema validation, and the
reduction engine that folds streams of partial documents into combined
ones.

We implement:

1. Documents, over three interchangeable backings: mutable heap trees built
in an arena, zero-copy archived buffers, and decoded generic values. All
backings satisfy the Node capability and compare, serialize, and reduce
identically.

2. Pointers, RFC 6901 JSON Pointers extended with "-" (next index) and "*"
(next property) tokens, for querying documents and creating locations
within them.

3. Extractors, which pull pointed-to locations out of documents into packed
byte keys with a total order matching document order.

4. Schemas, a JSON Schema subset carrying reduce annotations, and a
validator that records which reduction strategy governs each document
location.

5. Reductions, combining a right-hand document into a left-hand one under
the strategies annotated by validation.

# Technical Details

**Tape positions.**
Validation and reduction agree on a shared addressing scheme: the pre-order
position of each location in the document, where every node occupies one
position followed by the positions of its children. A validation outcome
annotates a span of positions; the reducer walks both operands in tandem,
consuming the right-hand document's positions as it goes.

## Binary encoding

**Archives**: documents archive to canonical MessagePack. Object fields are
written in ascending name order, integers in their shortest form, and the
resulting buffer is traversable in place without decoding.

**Packed keys**: extracted fields append to keys using a _tuple encoding_.
Each element starts with a tag byte; element payloads are escaped and
transposed such that lexicographic byte order matches the element order
(nulls first, then bytes and strings, nested tuples, integers, floats,
booleans).
*/
package doc
