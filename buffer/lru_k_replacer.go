package buffer

import (
	"fmt"
	"sync"

	"github.com/jobala/pagecache/util"
)

func NewLrukReplacer(capacity, k int) *LrukReplacer {
	head := &lrukNode{frameId: util.INVALID_FRAME_ID}
	tail := &lrukNode{frameId: util.INVALID_FRAME_ID}

	head.next = tail
	tail.prev = head

	return &LrukReplacer{
		k:             k,
		mu:            sync.Mutex{},
		nodeStore:     map[util.FrameId]*lrukNode{},
		currSize:      0,
		currTimestamp: 0,
		head:          head,
		tail:          tail,
		replacerSize:  capacity,
	}
}

// Pin counts as an access. Unpin does not, so one fetch is one access no
// matter how long the page stays pinned.
func (lru *LrukReplacer) Pin(frameId util.FrameId) {
	lru.recordAccess(frameId)
	lru.setEvictable(frameId, false)
}

func (lru *LrukReplacer) Unpin(frameId util.FrameId) {
	lru.setEvictable(frameId, true)
}

func (lru *LrukReplacer) Victim() (util.FrameId, bool) {
	return lru.evict()
}

func (lru *LrukReplacer) Remove(frameId util.FrameId) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	node, ok := lru.nodeStore[frameId]
	if !ok {
		return
	}

	if node.isEvictable {
		lru.currSize -= 1
	}
	lru.removeNode(node)
	delete(lru.nodeStore, frameId)
}

func (lru *LrukReplacer) Size() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	return lru.currSize
}

func (lru *LrukReplacer) recordAccess(frameId util.FrameId) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	node, ok := lru.nodeStore[frameId]
	if !ok {
		if frameId < 0 || frameId >= lru.replacerSize {
			panic(fmt.Sprintf("buffer: frame %d outside replacer of size %d", frameId, lru.replacerSize))
		}
		node = &lrukNode{frameId: frameId, k: lru.k}
	} else {
		lru.removeNode(node)
	}

	node.addTimestamp(lru.currTimestamp)
	lru.currTimestamp++

	// move to front of queue
	lru.addNode(node)
}

func (lru *LrukReplacer) setEvictable(frameId util.FrameId, evictable bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	node, ok := lru.nodeStore[frameId]
	if !ok || node.isEvictable == evictable {
		return
	}

	node.isEvictable = evictable
	if evictable {
		lru.currSize += 1
	} else {
		lru.currSize -= 1
	}
}

// evict walks from the least recently accessed end of the queue and keeps
// the best candidate seen so far.
func (lru *LrukReplacer) evict() (util.FrameId, bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	var victim *lrukNode
	for node := lru.tail.prev; node != lru.head; node = node.prev {
		if !node.isEvictable {
			continue
		}
		if victim == nil || node.evictsBefore(victim) {
			victim = node
		}
	}

	if victim == nil {
		return util.INVALID_FRAME_ID, false
	}

	lru.removeNode(victim)
	delete(lru.nodeStore, victim.frameId)
	lru.currSize -= 1

	return victim.frameId, true
}

func (lru *LrukReplacer) removeNode(node *lrukNode) {
	back := node.prev
	front := node.next

	back.next = front
	front.prev = back
}

func (lru *LrukReplacer) addNode(newNode *lrukNode) {
	// add node to doubly linkedlist
	tmp := lru.head.next
	lru.head.next = newNode
	newNode.prev = lru.head
	newNode.next = tmp
	tmp.prev = newNode

	lru.nodeStore[newNode.frameId] = newNode
}

type LrukReplacer struct {
	mu            sync.Mutex
	nodeStore     map[util.FrameId]*lrukNode
	replacerSize  int
	currSize      int
	currTimestamp int
	k             int
	head          *lrukNode
	tail          *lrukNode
}
