package hamt

import (
	"math/bits"

	"go.uber.org/zap"
)

const (
	// bitShift must be log2(maxChildren): each trie level consumes this
	// many bits of the 32-bit hash.
	bitShift    = 6
	maxChildren = 1 << bitShift
	hashBits    = 32
)

// node is the sum type stored in an interior node's children slice:
// *leafEntry, *collisionNode, or *interiorNode.
type node interface {
	node()
}

// leafEntry is a single key/value binding at the position its hash
// routed it to.
type leafEntry struct {
	hash uint32
	key  Key
	val  Val
}

func (*leafEntry) node() {}

func (l *leafEntry) matches(hash uint32, key Key) bool {
	return l.hash == hash && l.key == key
}

// collisionNode replaces a leaf slot when two or more keys route to
// the same position all the way down to the deepest trie level (no
// hash bits left to discriminate on). Entries are searched linearly;
// this is the resolution spec.md §9 calls for in place of the source
// implementation's assertion failure.
type collisionNode struct {
	hash    uint32
	entries []leafEntry
}

func (*collisionNode) node() {}

func (c *collisionNode) find(key Key) (Val, bool) {
	for _, e := range c.entries {
		if e.key == key {
			return e.val, true
		}
	}
	return nil, false
}

func (c *collisionNode) insert(key Key, val Val) {
	for i := range c.entries {
		if c.entries[i].key == key {
			c.entries[i].val = val
			return
		}
	}
	c.entries = append(c.entries, leafEntry{hash: c.hash, key: key, val: val})
}

func (c *collisionNode) remove(key Key) bool {
	for i := range c.entries {
		if c.entries[i].key == key {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return true
		}
	}
	return false
}

// interiorNode holds a dense, bitmap-indexed array of children. Only
// occupied slots (those with a set bitmap bit) have an entry in
// children, at the position given by the popcount of the bits below
// it — the same load-bearing layout as the source implementation's
// allocator-sized node, built here on a plain Go slice instead of a
// hand-managed capacity/grow() pair: append already reallocates and
// copies when the backing array is full, which is exactly what the
// source's grow() does by hand.
type interiorNode struct {
	bitmap   uint64
	children []node
}

func (*interiorNode) node() {}

// newInteriorNode preallocates capacity children slots. The source
// sizes this by level (small at deep levels, to avoid wasting memory
// on nodes that usually hold few children); the root is sized to
// maxChildren outright since it is rarely sparse once populated. This
// is advisory here — Go's append will grow past it transparently —
// not a hard ceiling like the source's fixed-size allocation.
func newInteriorNode(capacity int) *interiorNode {
	return &interiorNode{children: make([]node, 0, capacity)}
}

func childBitNumber(hash uint32, shift uint) int {
	return int((hash >> shift) & (maxChildren - 1))
}

func (n *interiorNode) hasChild(bitNo int) bool {
	return n.bitmap&(uint64(1)<<uint(bitNo)) != 0
}

func (n *interiorNode) childIndex(bitNo int) int {
	return bits.OnesCount64(n.bitmap & (uint64(1)<<uint(bitNo) - 1))
}

func (n *interiorNode) childCount() int {
	return bits.OnesCount64(n.bitmap)
}

func (n *interiorNode) addChild(bitNo int, child node) {
	idx := n.childIndex(bitNo)
	n.children = append(n.children, nil)
	copy(n.children[idx+1:], n.children[idx:])
	n.children[idx] = child
	n.bitmap |= uint64(1) << uint(bitNo)
}

func (n *interiorNode) removeChildAt(bitNo, idx int) {
	n.children = append(n.children[:idx], n.children[idx+1:]...)
	n.bitmap &^= uint64(1) << uint(bitNo)
}

func (n *interiorNode) itemCount() int {
	count := 0
	for _, child := range n.children {
		switch c := child.(type) {
		case *leafEntry:
			count++
		case *collisionNode:
			count += len(c.entries)
		case *interiorNode:
			count += c.itemCount()
		}
	}
	return count
}

func (n *interiorNode) find(hash uint32, key Key, shift uint) (Val, bool) {
	bitNo := childBitNumber(hash, shift)
	if !n.hasChild(bitNo) {
		return nil, false
	}
	switch c := n.children[n.childIndex(bitNo)].(type) {
	case *leafEntry:
		if c.matches(hash, key) {
			return c.val, true
		}
		return nil, false
	case *collisionNode:
		if c.hash == hash {
			return c.find(key)
		}
		return nil, false
	case *interiorNode:
		return c.find(hash, key, shift+bitShift)
	}
	return nil, false
}

func levelCapacity(shift uint) int {
	level := int(shift / bitShift)
	capacity := 2
	if level < 1 {
		capacity++
	}
	if level < 3 {
		capacity++
	}
	return capacity
}

func (n *interiorNode) insert(lf leafEntry, shift uint) {
	bitNo := childBitNumber(lf.hash, shift)
	if !n.hasChild(bitNo) {
		n.addChild(bitNo, &leafEntry{hash: lf.hash, key: lf.key, val: lf.val})
		return
	}
	idx := n.childIndex(bitNo)
	switch c := n.children[idx].(type) {
	case *leafEntry:
		if c.matches(lf.hash, lf.key) {
			c.val = lf.val
			return
		}
		if shift+bitShift >= hashBits {
			Logger().Debug("hash collision at maximum trie depth, converting to collision bucket",
				zap.Uint32("hash", lf.hash))
			n.children[idx] = &collisionNode{hash: lf.hash, entries: []leafEntry{*c, lf}}
			return
		}
		child := newInteriorNode(levelCapacity(shift))
		child.addChild(childBitNumber(c.hash, shift+bitShift), c)
		n.children[idx] = child
		child.insert(lf, shift+bitShift)
	case *collisionNode:
		// c only occupies this slot because shift+bitShift >= hashBits
		// for its own hash, so any insert reaching here shares that
		// same hash and joins the same bucket.
		c.insert(lf.key, lf.val)
	case *interiorNode:
		c.insert(lf, shift+bitShift)
	}
}

func (n *interiorNode) remove(hash uint32, key Key, shift uint) bool {
	bitNo := childBitNumber(hash, shift)
	if !n.hasChild(bitNo) {
		return false
	}
	idx := n.childIndex(bitNo)
	switch c := n.children[idx].(type) {
	case *leafEntry:
		if !c.matches(hash, key) {
			return false
		}
		n.removeChildAt(bitNo, idx)
		return true
	case *collisionNode:
		if c.hash != hash || !c.remove(key) {
			return false
		}
		if len(c.entries) == 1 {
			n.children[idx] = &leafEntry{hash: c.entries[0].hash, key: c.entries[0].key, val: c.entries[0].val}
		}
		return true
	case *interiorNode:
		if !c.remove(hash, key, shift+bitShift) {
			return false
		}
		if c.bitmap == 0 {
			n.removeChildAt(bitNo, idx)
		}
		return true
	}
	return false
}
