package combine

import (
	"bytes"
	"errors"
	"log/slog"
	"sort"

	"github.com/reducible/doc"
)

type entry struct {
	key  []byte // packed key, ascending tuple order
	root doc.HeapNode
	// front entries are fully-reduced left-hand documents and sort ahead
	// of other entries sharing their key.
	front bool
	// an attempted associative reduction into this entry failed; further
	// reduction must wait for a full drain.
	notAssociative bool
}

// MemTable is an in-memory combiner of heap documents. Adding a document
// queues it; queued documents periodically compact into the sorted run via
// associative reductions. A table over its memory budget should be spilled.
type MemTable struct {
	spec    Spec
	arena   *doc.Arena
	queued  []entry
	sorted  []entry
	scratch []byte
}

func NewMemTable(spec Spec) *MemTable {
	return &MemTable{spec: spec, arena: doc.NewArena()}
}

// Arena returns the table's arena, for building heap documents having the
// table's lifetime which are then added to it.
func (m *MemTable) Arena() *doc.Arena {
	return m.arena
}

// ParseJSON decodes a JSON document into a heap tree of this table.
func (m *MemTable) ParseJSON(data []byte) (doc.HeapNode, error) {
	v, err := doc.ParseJSON(data)
	if err != nil {
		return doc.HeapNode{}, err
	}
	return m.arena.FromNode(doc.AsNode(v)), nil
}

// Add queues root for combination. A front document is a fully-reduced
// left-hand document which every other document of its key reduces into.
// root must have been built from the table's arena.
func (m *MemTable) Add(root doc.HeapNode, front bool) error {
	packed := doc.ExtractAll(&root, m.spec.Key, &m.scratch)
	m.queued = append(m.queued, entry{key: packed, root: root, front: front})

	// Compact when queued entries reach the sorted run's size, doubling the
	// run per compaction like an LSM tree. Reductions happen first among
	// small queued documents, exploiting associativity before folding their
	// combination into the larger sorted entry.
	if len(m.queued) >= max(32, len(m.sorted)) {
		return m.compact()
	}
	return nil
}

func entryLess(l, r *entry) bool {
	if c := bytes.Compare(l.key, r.key); c != 0 {
		return c < 0
	}
	return l.front && !r.front
}

func (m *MemTable) compact() error {
	sort.SliceStable(m.queued, func(i, j int) bool {
		return entryLess(&m.queued[i], &m.queued[j])
	})

	next := make([]entry, 0, len(m.sorted)+len(m.queued))
	begin := 0 // start of the current key group within next
	qi, si := 0, 0
	for qi < len(m.queued) || si < len(m.sorted) {
		var e entry
		// Take from sorted on ties to preserve left-to-right order.
		if qi == len(m.queued) || (si < len(m.sorted) && !entryLess(&m.queued[qi], &m.sorted[si])) {
			e = m.sorted[si]
			si++
		} else {
			e = m.queued[qi]
			qi++
		}

		if len(next) == 0 || !bytes.Equal(next[len(next)-1].key, e.key) {
			begin = len(next)
			next = append(next, e)
			continue
		}
		// Hold back reduction into the group's left-most entry: a further
		// left document for this key may still arrive.
		prev := &next[len(next)-1]
		if len(next)-begin < 2 || prev.notAssociative {
			next = append(next, e)
			continue
		}

		outcomes, err := doc.Validate(&e.root, m.spec.Schema)
		if err != nil {
			return validationErr(err)
		}
		root, _, err := doc.Reduce(&prev.root, &e.root, outcomes, m.arena, false)
		switch {
		case errors.Is(err, doc.ErrNotAssociative):
			prev.notAssociative = true
			next = append(next, e)
		case err != nil:
			return reductionErr(err)
		default:
			prev.root = root
		}
	}

	slog.Debug("compacted combiner entries",
		"queued", len(m.queued), "sorted", len(m.sorted), "next", len(next))
	m.queued = m.queued[:0]
	m.sorted = next
	return nil
}

// spillTo compacts the table a final time and writes it as one archived
// segment. Non-front entries validate now, off the drain path.
func (m *MemTable) spillTo(w *spillWriter) error {
	if err := m.compact(); err != nil {
		return err
	}
	for i := range m.sorted {
		if m.sorted[i].front {
			continue
		}
		if _, err := doc.Validate(&m.sorted[i].root, m.spec.Schema); err != nil {
			return validationErr(err)
		}
	}
	n, err := w.writeSegment(m.sorted)
	if err != nil {
		return err
	}
	slog.Debug("spilled combiner segment",
		"entries", len(m.sorted), "bytes", n, "memUsed", m.arena.MemUsed())
	return nil
}

func (m *MemTable) drainer() (*memDrainer, error) {
	if err := m.compact(); err != nil {
		return nil, err
	}
	return &memDrainer{spec: m.spec, arena: m.arena, entries: m.sorted}, nil
}

// memDrainer fully reduces each key group of a drained MemTable.
type memDrainer struct {
	spec    Spec
	arena   *doc.Arena
	entries []entry
}

func (d *memDrainer) next() (DrainedDoc, bool, error) {
	if len(d.entries) == 0 {
		return DrainedDoc{}, false, nil
	}
	head := d.entries[0]
	d.entries = d.entries[1:]

	root, reduced := head.root, head.front || d.spec.Full
	var deleted bool
	for len(d.entries) > 0 && bytes.Equal(d.entries[0].key, head.key) {
		e := d.entries[0]
		d.entries = d.entries[1:]

		outcomes, err := doc.Validate(&e.root, d.spec.Schema)
		if err != nil {
			return DrainedDoc{}, false, validationErr(err)
		}
		root, deleted, err = doc.Reduce(&root, &e.root, outcomes, d.arena, reduced)
		if err != nil {
			return DrainedDoc{}, false, reductionErr(err)
		}
	}
	if _, err := doc.Validate(&root, d.spec.Schema); err != nil {
		return DrainedDoc{}, false, validationErr(err)
	}
	return DrainedDoc{Key: head.key, Root: &root, Reduced: reduced, Deleted: deleted}, true, nil
}
