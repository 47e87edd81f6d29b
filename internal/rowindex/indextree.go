package rowindex

import (
	"github.com/cloudfs/dbengine/internal/dberrors"
	"github.com/cloudfs/dbengine/internal/rowstore"
)

// RootAccessor is the slice of rowstore.RowStore that IndexTree needs:
// the per-index root-node pointer. Index roots live in the RowStore
// not in the tree itself, so every tree operation
// threads the accessor through explicitly.
type RootAccessor interface {
	GetAccessor(index int) any
	SetAccessor(index int, node any)
}

// IndexTree is the balanced ordered index over a fixed column tuple of
// one table. Position 0 of a table's index list is always its primary
// index.
type IndexTree struct {
	ordinal              int
	name                 string
	cols                 []int
	collators            []Collator
	unique               bool
	allowMultipleAllNull bool
}

// NewIndexTree returns an index over cols (positions into a row's
// Data), ordered by collators (one per column, same order as cols).
// When unique is set, Insert enforces that no two committed rows
// share an equal key, except that allowMultipleAllNull permits
// multiple all-null keys even under a unique constraint.
func NewIndexTree(ordinal int, name string, cols []int, collators []Collator, unique, allowMultipleAllNull bool) *IndexTree {
	return &IndexTree{
		ordinal:              ordinal,
		name:                 name,
		cols:                 cols,
		collators:            collators,
		unique:               unique,
		allowMultipleAllNull: allowMultipleAllNull,
	}
}

// Ordinal returns this index's position in its table's index list.
func (ix *IndexTree) Ordinal() int { return ix.ordinal }

// Columns returns the row-column positions making up this index's key.
func (ix *IndexTree) Columns() []int { return ix.cols }

func (ix *IndexTree) root(accessor RootAccessor) *Node {
	n, _ := accessor.GetAccessor(ix.ordinal).(*Node)
	return n
}

func (ix *IndexTree) key(row *rowstore.Row) []any {
	data := row.Data
	k := make([]any, len(ix.cols))
	for i, c := range ix.cols {
		k[i] = data[c]
	}
	return k
}

func (ix *IndexTree) isAllNull(key []any) bool {
	for _, v := range key {
		if v != nil {
			return false
		}
	}
	return true
}

func (ix *IndexTree) compareKeys(a, b []any) int {
	for i := range ix.cols {
		if c := ix.collators[i].Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return 0
}

// Insert links row into this index, under accessor's root. It fails
// with dberrors.UniqueViolationError iff the index is unique and an
// equal key is already present and the all-null exemption doesn't
// apply. On success row.nodes[ordinal] is non-nil and reachable from
// the (possibly new) root, which is written back via accessor.
func (ix *IndexTree) Insert(accessor RootAccessor, row *rowstore.Row) error {
	key := ix.key(row)

	if ix.unique && !(ix.allowMultipleAllNull && ix.isAllNull(key)) {
		if existing := ix.search(ix.root(accessor), key); existing != nil {
			return &dberrors.UniqueViolationError{Index: ix.name, Values: key}
		}
	}

	node := &Node{key: key, pos: row.Pos, height: 1}
	newRoot := ix.insertNode(ix.root(accessor), node)
	accessor.SetAccessor(ix.ordinal, newRoot)
	row.SetNode(ix.ordinal, node)
	return nil
}

func (ix *IndexTree) insertNode(root, node *Node) *Node {
	if root == nil {
		return node
	}
	if ix.compareKeys(node.key, root.key) < 0 {
		root.left = ix.insertNode(root.left, node)
		root.left.parent = root
	} else {
		root.right = ix.insertNode(root.right, node)
		root.right.parent = root
	}
	return rebalance(root)
}

// Delete unlinks node from this index. After Delete, node is no
// longer reachable from the root; the caller is then free to call
// RowStore.Remove on the row's position.
func (ix *IndexTree) Delete(accessor RootAccessor, node *Node) {
	if node == nil {
		return
	}
	newRoot := ix.deleteNode(ix.root(accessor), node.key, node.pos)
	accessor.SetAccessor(ix.ordinal, newRoot)
}

// deleteNode removes the node matching (key, pos) — pos disambiguates
// among equal keys in a non-unique index.
func (ix *IndexTree) deleteNode(root *Node, key []any, pos int64) *Node {
	if root == nil {
		return nil
	}

	cmp := ix.compareKeys(key, root.key)
	switch {
	case cmp < 0:
		root.left = ix.deleteNode(root.left, key, pos)
		if root.left != nil {
			root.left.parent = root
		}
	case cmp > 0:
		root.right = ix.deleteNode(root.right, key, pos)
		if root.right != nil {
			root.right.parent = root
		}
	case root.pos != pos:
		// Equal key, different row (non-unique index): probe both
		// subtrees for the exact node.
		root.left = ix.deleteNode(root.left, key, pos)
		if root.left != nil {
			root.left.parent = root
		}
		root.right = ix.deleteNode(root.right, key, pos)
		if root.right != nil {
			root.right.parent = root
		}
	default:
		switch {
		case root.left == nil:
			return withParent(root.right, nil)
		case root.right == nil:
			return withParent(root.left, nil)
		default:
			successor := minNode(root.right)
			root.key, root.pos = successor.key, successor.pos
			root.right = ix.deleteNode(root.right, successor.key, successor.pos)
			if root.right != nil {
				root.right.parent = root
			}
		}
	}
	return rebalance(root)
}

func withParent(n, parent *Node) *Node {
	if n != nil {
		n.parent = parent
	}
	return n
}

// search walks from root for an exact key match.
func (ix *IndexTree) search(root *Node, key []any) *Node {
	for root != nil {
		switch c := ix.compareKeys(key, root.key); {
		case c == 0:
			return root
		case c < 0:
			root = root.left
		default:
			root = root.right
		}
	}
	return nil
}

// Iterator walks an IndexTree in key order starting from a given
// node, implementing findFirstRow / findFirstRowIterator.
type Iterator struct {
	ix      *IndexTree
	current *Node
}

// Valid reports whether the iterator is positioned at a node.
func (it *Iterator) Valid() bool { return it.current != nil }

// Pos returns the current node's row position.
func (it *Iterator) Pos() int64 { return it.current.pos }

// Next advances to the next node in key order.
func (it *Iterator) Next() {
	it.current = successor(it.current)
}

func successor(n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.right != nil {
		return minNode(n.right)
	}
	p := n.parent
	for p != nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

// First positions an iterator at the left-most (lowest-keyed) row in
// this index, for full-table scans such as moveData's column-layout
// migration.
func (ix *IndexTree) First(accessor RootAccessor) *Iterator {
	n := ix.root(accessor)
	if n == nil {
		return &Iterator{ix: ix}
	}
	return &Iterator{ix: ix, current: minNode(n)}
}

// FindFirstRow positions an iterator at the first row whose key under
// this index equals the given key prefix. key may be a
// prefix of the full index column tuple.
func (ix *IndexTree) FindFirstRow(accessor RootAccessor, key []any) *Iterator {
	n := ix.root(accessor)
	var candidate *Node
	for n != nil {
		c := 0
		for i := range key {
			if c = ix.collators[i].Compare(key[i], n.key[i]); c != 0 {
				break
			}
		}
		switch {
		case c <= 0:
			if c == 0 {
				candidate = n
			}
			n = n.left
		default:
			n = n.right
		}
	}
	return &Iterator{ix: ix, current: candidate}
}

// FindFirstRowIterator positions at the first row equal to row's own
// projected key under this index, translating row's columns through
// colMapping (index column i takes its value from row column colMapping[i]).
func (ix *IndexTree) FindFirstRowIterator(accessor RootAccessor, row *rowstore.Row, colMapping []int) *Iterator {
	key := make([]any, len(ix.cols))
	for i := range ix.cols {
		key[i] = row.Data[colMapping[i]]
	}
	return ix.FindFirstRow(accessor, key)
}

// CompareRowNonUnique compares a standalone key against a row's
// projected values under this index's columns, used by non-unique
// scans that must keep comparing past the first equal key.
func (ix *IndexTree) CompareRowNonUnique(key []any, row *rowstore.Row) int {
	rowKey := ix.key(row)
	n := len(key)
	if n > len(rowKey) {
		n = len(rowKey)
	}
	for i := 0; i < n; i++ {
		if c := ix.collators[i].Compare(key[i], rowKey[i]); c != 0 {
			return c
		}
	}
	return 0
}
