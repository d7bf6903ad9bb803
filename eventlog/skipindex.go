package eventlog

import "math/rand"

const skipIndexMaxLevel = 32

// skipIndexNode is one entry in the accelerator's skip list, keyed by
// event index and holding the block offset observed to cover it.
type skipIndexNode struct {
	key, value uint64
	forward    []*skipIndexNode
}

func newSkipIndexNode(key, value uint64, levels int) *skipIndexNode {
	return &skipIndexNode{key: key, value: value, forward: make([]*skipIndexNode, levels+1)}
}

// SkipIndex is an in-process event-index -> block-offset map for
// observations a caller records with Record. Nothing in this package
// records into it or consults it: the range iterator always walks the
// reverse chain from last_block. A uint64-keyed skip list specialized from the
// teacher's generic ordered skip list, keeping only the lookup/insert
// path this accelerator actually exercises.
type SkipIndex struct {
	head   *skipIndexNode
	levels int
}

// NewSkipIndex builds an empty accelerator.
func NewSkipIndex() *SkipIndex {
	return &SkipIndex{head: newSkipIndexNode(0, 0, 0), levels: -1}
}

// Lookup returns the offset recorded for exactly idx; an index with no
// observation of its own misses, even when a smaller index was
// recorded. The caller must still
// verify the returned block actually covers idx, since the index never
// removes stale entries as the log grows.
func (s *SkipIndex) Lookup(idx uint64) (offset uint64, ok bool) {
	curr := s.head

	for level := s.levels; level >= 0; level-- {
		for {
			if curr.forward[level] == nil || curr.forward[level].key > idx {
				break
			} else if curr.forward[level].key == idx {
				return curr.forward[level].value, true
			}
			curr = curr.forward[level]
		}
	}

	return 0, false
}

func skipIndexRandomLevel() int {
	level := 0
	for rand.Int31()&1 == 0 && level < skipIndexMaxLevel {
		level++
	}
	return level
}

func (s *SkipIndex) adjustLevels(level int) {
	forward := s.head.forward
	s.head = newSkipIndexNode(0, 0, level)
	s.levels = level
	copy(s.head.forward, forward)
}

// Record remembers that the block at offset covers event index idx.
func (s *SkipIndex) Record(idx, offset uint64) {
	newLevel := skipIndexRandomLevel()
	if newLevel > s.levels {
		s.adjustLevels(newLevel)
	}

	newNode := newSkipIndexNode(idx, offset, newLevel)
	updates := make([]*skipIndexNode, s.levels+1)

	x := s.head
	for level := s.levels; level >= 0; level-- {
		for x.forward[level] != nil && x.forward[level].key < idx {
			x = x.forward[level]
		}
		updates[level] = x
	}

	if x.forward[0] != nil && x.forward[0].key == idx {
		x.forward[0].value = offset
		return
	}

	for level := 0; level <= newLevel; level++ {
		newNode.forward[level] = updates[level].forward[level]
		updates[level].forward[level] = newNode
	}
}
