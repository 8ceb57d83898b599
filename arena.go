package doc

import "unsafe"

const (
	arenaMinBytesBlock = 1 << 10
	arenaMaxBytesBlock = 1 << 20
	arenaMinNodesBlock = 64
	arenaMaxNodesBlock = 1 << 14
)

// Arena owns the memory behind heap document trees. String and byte payloads
// are interned into byte blocks, node and field slices are carved from slabs,
// and Reset recycles everything at once. A value built from an arena is only
// valid until that arena is reset; an arena and the trees built from it are
// confined to a single goroutine.
type Arena struct {
	bytes      []byte
	nodes      []HeapNode
	fields     []Field
	bytesBlock int
	nodesBlock int
	used       int
}

// MemUsed reports the bytes allocated for live trees since the last Reset.
func (a *Arena) MemUsed() int {
	return a.used
}

func NewArena() *Arena {
	return &Arena{bytesBlock: arenaMinBytesBlock, nodesBlock: arenaMinNodesBlock}
}

// Reset releases every tree built from the arena. Previously returned nodes,
// strings and byte slices must not be used afterwards.
func (a *Arena) Reset() {
	a.bytes = a.bytes[:0]
	a.nodes = a.nodes[:0]
	a.fields = a.fields[:0]
	a.used = 0
}

func (a *Arena) allocBytes(n int) []byte {
	if cap(a.bytes)-len(a.bytes) < n {
		for a.bytesBlock < n && a.bytesBlock < arenaMaxBytesBlock {
			a.bytesBlock *= 2
		}
		a.bytes = make([]byte, 0, max(a.bytesBlock, n))
	}
	off := len(a.bytes)
	a.bytes = a.bytes[:off+n]
	a.used += n
	return a.bytes[off : off+n : off+n]
}

func (a *Arena) copyBytes(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	b := a.allocBytes(len(src))
	copy(b, src)
	return b
}

func (a *Arena) internString(s string) string {
	if len(s) == 0 {
		return ""
	}
	b := a.allocBytes(len(s))
	copy(b, s)
	return unsafe.String(&b[0], len(b))
}

// newItems carves an empty node slice with the given capacity. Appends beyond
// the capacity fall back to the regular heap, which is safe but defeats the
// point, so callers size their hints.
func (a *Arena) newItems(capacity int) []HeapNode {
	if capacity == 0 {
		return nil
	}
	if cap(a.nodes)-len(a.nodes) < capacity {
		for a.nodesBlock < capacity && a.nodesBlock < arenaMaxNodesBlock {
			a.nodesBlock *= 2
		}
		a.nodes = make([]HeapNode, 0, max(a.nodesBlock, capacity))
	}
	off := len(a.nodes)
	a.nodes = a.nodes[:off+capacity]
	a.used += capacity * int(unsafe.Sizeof(HeapNode{}))
	return a.nodes[off:off:(off + capacity)]
}

func (a *Arena) newFields(capacity int) []Field {
	if capacity == 0 {
		return nil
	}
	if cap(a.fields)-len(a.fields) < capacity {
		a.fields = make([]Field, 0, max(arenaMinNodesBlock, capacity))
	}
	off := len(a.fields)
	a.fields = a.fields[:off+capacity]
	a.used += capacity * int(unsafe.Sizeof(Field{}))
	return a.fields[off:off:(off + capacity)]
}
