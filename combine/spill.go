package combine

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/reducible/doc"
)

const entryFront = 1 << 0

// spillWriter appends archived table segments to a scratch bbolt database.
// Each segment is one bucket keyed on packed key plus a sequence suffix, so
// bucket order is key order and entries sharing a key keep arrival order.
type spillWriter struct {
	db       *bbolt.DB
	segments int
}

func openSpill(path string) (*spillWriter, error) {
	bopt := *bbolt.DefaultOptions
	// Scratch data: it never outlives the combiner, so durability is waived.
	bopt.NoSync = true
	bopt.NoFreelistSync = true
	db, err := bbolt.Open(path, 0666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("combine: opening spill database: %w", err)
	}
	return &spillWriter{db: db}, nil
}

func segmentName(n int) []byte {
	return []byte(fmt.Sprintf("segment-%06d", n))
}

func (w *spillWriter) writeSegment(entries []entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	var total int
	err := w.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucket(segmentName(w.segments))
		if err != nil {
			return err
		}
		b.FillPercent = 1.0 // keys arrive in ascending order
		for i := range entries {
			e := &entries[i]
			k := make([]byte, 0, len(e.key)+4)
			k = append(k, e.key...)
			k = binary.BigEndian.AppendUint32(k, uint32(i))

			v := make([]byte, 1, 256)
			if e.front {
				v[0] |= entryFront
			}
			v = doc.ArchiveNode(v, &e.root)
			if err := b.Put(k, v); err != nil {
				return err
			}
			total += len(k) + len(v)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("combine: writing spill segment: %w", err)
	}
	w.segments++
	return total, nil
}

func (w *spillWriter) close() error {
	return w.db.Close()
}

// spillDrainer heap-merges all spilled segments in key order, fully
// reducing each key group. Earlier segments hold earlier documents, so
// within a group segments reduce left to right.
type spillDrainer struct {
	spec    Spec
	tx      *bbolt.Tx
	cursors []*segCursor
	arena   *doc.Arena
}

type segCursor struct {
	c *bbolt.Cursor
	k []byte
	v []byte
}

func (c *segCursor) packed() []byte {
	return c.k[:len(c.k)-4]
}

func (c *segCursor) advance() {
	c.k, c.v = c.c.Next()
}

func newSpillDrainer(spec Spec, w *spillWriter) (*spillDrainer, error) {
	tx, err := w.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("combine: reading spill database: %w", err)
	}
	d := &spillDrainer{spec: spec, tx: tx, arena: doc.NewArena()}
	for i := 0; i < w.segments; i++ {
		b := tx.Bucket(segmentName(i))
		if b == nil {
			continue
		}
		cur := &segCursor{c: b.Cursor()}
		cur.k, cur.v = cur.c.First()
		if cur.k != nil {
			d.cursors = append(d.cursors, cur)
		}
	}
	return d, nil
}

func (d *spillDrainer) next() (DrainedDoc, bool, error) {
	// The next group's key is the minimum packed key across segments.
	var key []byte
	for _, cur := range d.cursors {
		if cur.k == nil {
			continue
		}
		if key == nil || bytes.Compare(cur.packed(), key) < 0 {
			key = cur.packed()
		}
	}
	if key == nil {
		return DrainedDoc{}, false, nil
	}
	key = append([]byte(nil), key...) // detach from the page it points into

	d.arena.Reset()
	var root doc.Node
	var reduced, deleted bool
	for _, cur := range d.cursors {
		for cur.k != nil && bytes.Equal(cur.packed(), key) {
			node, err := doc.LoadArchive(cur.v[1:])
			if err != nil {
				return DrainedDoc{}, false, fmt.Errorf("combine: reading spill segment: %w", err)
			}
			if root == nil {
				root = node
				reduced = cur.v[0]&entryFront != 0 || d.spec.Full
			} else {
				outcomes, err := doc.Validate(node, d.spec.Schema)
				if err != nil {
					return DrainedDoc{}, false, validationErr(err)
				}
				var next doc.HeapNode
				next, deleted, err = doc.Reduce(root, node, outcomes, d.arena, reduced)
				if err != nil {
					return DrainedDoc{}, false, reductionErr(err)
				}
				root = &next
			}
			cur.advance()
		}
	}
	if _, err := doc.Validate(root, d.spec.Schema); err != nil {
		return DrainedDoc{}, false, validationErr(err)
	}
	return DrainedDoc{Key: key, Root: root, Reduced: reduced, Deleted: deleted}, true, nil
}

func (d *spillDrainer) close() error {
	return d.tx.Rollback()
}
