// Package rowstore implements the storage-backend variants for a
// table's rows: pure in-memory, disk-cached, and text-file backed,
// behind a common RowStore interface. It also owns the Row type and
// the index-roots string codec.
package rowstore

import "sync/atomic"

// RowAction is the session transaction-journal entry a row is staged
// under while an INSERT/DELETE is pending commit. It is an opaque
// reference owned by the session layer; the row engine never
// interprets it, only carries it.
type RowAction any

// Row is the byte-addressable record described in : a
// stable file position, typed column values, one index back-pointer
// per index on the owning table, a transient reference into the
// session's transaction journal, and the cascade-delete guard.
//
// Invariant: a row is linked into every index of its table, or into
// none — row.nodes is populated atomically by Table.indexRow.
type Row struct {
	// Pos is the row's stable file position. For memory rows it is a
	// synthetic heap-slot id; for cached/text rows it is the
	// allocator-assigned, scale-divided file offset.
	Pos int64

	// Data holds the row's typed column values in column order.
	Data []any

	// nodes[i] is the index-tree node linking this row into index i of
	// its table. A nil entry means the row is not currently linked
	// into that index.
	nodes []any

	// Action is the session's pending INSERT/DELETE journal entry for
	// this row, or nil once the transaction has committed.
	Action RowAction

	// CascadeDeleted guards cascade-delete cycles: once set, a second
	// visit to this row during a cascading delete is a no-op
	// cascade-delete guard.
	CascadeDeleted bool
}

// NewRow allocates a row with one node slot per index, so that later
// adding an index can simply rebuild the table rather than
// special-casing rows created before the index existed.
func NewRow(pos int64, data []any, indexCount int) *Row {
	return &Row{
		Pos:   pos,
		Data:  data,
		nodes: make([]any, indexCount),
	}
}

// Node returns the back-pointer into index i, or nil if the row isn't
// linked into that index.
func (r *Row) Node(i int) any { return r.nodes[i] }

// SetNode sets the back-pointer into index i.
func (r *Row) SetNode(i int, node any) { r.nodes[i] = node }

// GrowNodes extends the node slice to cover a newly added index,
// matching 's "adding an index rebuilds the table"
// rule for rows that predate an index added to a populated table
// (Table.AddForeignKeyByName links them into its new index).
func (r *Row) GrowNodes(indexCount int) {
	if len(r.nodes) >= indexCount {
		return
	}
	grown := make([]any, indexCount)
	copy(grown, r.nodes)
	r.nodes = grown
}

// heapIDGenerator hands out synthetic positions for MemoryRowStore,
// where there is no file to address.
type heapIDGenerator struct {
	next int64
}

func (g *heapIDGenerator) take() int64 {
	return atomic.AddInt64(&g.next, 1) - 1
}
