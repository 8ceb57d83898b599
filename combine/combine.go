// Package combine folds streams of partial documents into at most one
// combined document per key. Documents accumulate into an in-memory table,
// reducing associatively as they arrive; when the table outgrows its memory
// budget it spills archived segments to a scratch database, and draining
// merges the table and all spilled segments in key order, fully reducing
// each key group.
package combine

import (
	"errors"
	"fmt"

	"github.com/reducible/doc"
)

// Spec tells a combiner how to group and validate documents.
type Spec struct {
	// Key extracts the packed grouping key. Must be non-empty.
	Key []*doc.Extractor
	// Schema validates every document and annotates reduction strategies.
	Schema *doc.Schema
	// Full marks drained documents as fully reduced: group reductions run
	// with full semantics, deletions take effect, and set bookkeeping is
	// pruned. Leave unset when drained documents are themselves partial
	// combines that a later stage reduces further.
	Full bool
}

func (s Spec) validate() error {
	if len(s.Key) == 0 {
		return errors.New("combine: spec has no key extractors")
	}
	if s.Schema == nil {
		return errors.New("combine: spec has no schema")
	}
	return nil
}

// DrainedDoc is one combined document yielded by a Drainer. Root is only
// valid until the next call to Next.
type DrainedDoc struct {
	Key     []byte // packed key bytes
	Root    doc.Node
	Reduced bool // combined into a fully-reduced left-hand document
	Deleted bool // reduction marked the document deleted
}

// Options tune an Accumulator.
type Options struct {
	// SpillThreshold is the table memory budget in bytes after which the
	// table spills a segment. Zero means the default.
	SpillThreshold int
}

const defaultSpillThreshold = 1 << 28

// Accumulator is a MemTable paired with a scratch spill database. As the
// caller fills the table the Accumulator transparently spills over-budget
// contents and starts a fresh table, bounding memory usage.
type Accumulator struct {
	spec      Spec
	mem       *MemTable
	spill     *spillWriter
	threshold int
}

func NewAccumulator(spec Spec, spillPath string, opt Options) (*Accumulator, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	threshold := opt.SpillThreshold
	if threshold == 0 {
		threshold = defaultSpillThreshold
	}
	spill, err := openSpill(spillPath)
	if err != nil {
		return nil, err
	}
	return &Accumulator{
		spec:      spec,
		mem:       NewMemTable(spec),
		spill:     spill,
		threshold: threshold,
	}, nil
}

// MemTable returns a table with available capacity. A table over its memory
// budget is first spilled and replaced with an empty one.
func (a *Accumulator) MemTable() (*MemTable, error) {
	if a.mem.arena.MemUsed() > a.threshold {
		if err := a.mem.spillTo(a.spill); err != nil {
			return nil, err
		}
		a.mem = NewMemTable(a.spec)
	}
	return a.mem, nil
}

// Drain converts the Accumulator into a Drainer. When nothing was spilled
// it drains the table directly; otherwise the table spills its final
// segment and the Drainer merges all segments.
func (a *Accumulator) Drain() (*Drainer, error) {
	if a.spill.segments == 0 {
		d, err := a.mem.drainer()
		if err != nil {
			return nil, err
		}
		return &Drainer{mem: d, spill: a.spill}, nil
	}
	if err := a.mem.spillTo(a.spill); err != nil {
		return nil, err
	}
	d, err := newSpillDrainer(a.spec, a.spill)
	if err != nil {
		return nil, err
	}
	return &Drainer{seg: d, spill: a.spill}, nil
}

// Close releases the spill database. Call it once, after draining.
func (a *Accumulator) Close() error {
	return a.spill.close()
}

// Drainer yields combined documents in ascending key order.
type Drainer struct {
	mem   *memDrainer
	seg   *spillDrainer
	spill *spillWriter
	doc   DrainedDoc
	err   error
}

// Next advances to the next combined document, reporting false at the end
// of the stream or on error.
func (d *Drainer) Next() bool {
	if d.err != nil {
		return false
	}
	var out DrainedDoc
	var ok bool
	if d.mem != nil {
		out, ok, d.err = d.mem.next()
	} else {
		out, ok, d.err = d.seg.next()
	}
	if !ok || d.err != nil {
		return false
	}
	d.doc = out
	return true
}

// Doc returns the document produced by the last successful Next.
func (d *Drainer) Doc() DrainedDoc { return d.doc }

func (d *Drainer) Err() error { return d.err }

// Close releases drainer resources, leaving the spill database reusable by
// a new Accumulator.
func (d *Drainer) Close() error {
	if d.seg != nil {
		return d.seg.close()
	}
	return nil
}

func validationErr(err error) error {
	return fmt.Errorf("combine: document failed validation against its collection schema: %w", err)
}

func reductionErr(err error) error {
	return fmt.Errorf("combine: failed to combine documents having a shared key: %w", err)
}
