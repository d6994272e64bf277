// Package list implements the doubly linked list backing the LRU order,
// the LFU frequency buckets and the queue payloads.
package list

// Invariants for all exported methods:
// * list owns nodes between fakeHead and fakeTail.
// * {fakeHead, all owned nodes, fakeTail} are a correct doubly linked list.
// * list.len equals the number of owned nodes.
type List struct {
	len int

	// Fake nodes. Real nodes are between them.
	// nil <- fakeHead <-> node_0 <-> ... <-> node_(n-1) <-> fakeTail -> nil
	// Such structure prevents nil checks in code.
	fakeHead *Node
	fakeTail *Node
}

type Node struct {
	Value string
	prev  *Node
	next  *Node
}

func New() *List {
	l := &List{}
	l.fakeHead, l.fakeTail = &Node{}, &Node{}
	link(l.fakeHead, l.fakeTail)
	return l
}

func (l *List) Len() int    { return l.len }
func (l *List) Empty() bool { return l.len == 0 }

// Front returns the head node, nil if the list is empty.
func (l *List) Front() *Node {
	if l.len == 0 {
		return nil
	}
	return l.fakeHead.next
}

// Back returns the tail node, nil if the list is empty.
func (l *List) Back() *Node {
	if l.len == 0 {
		return nil
	}
	return l.fakeTail.prev
}

// Next returns the node after n, nil when n is the tail.
func (n *Node) Next() *Node {
	if n.next == nil || n.next.next == nil {
		return nil
	}
	return n.next
}

// Prev returns the node before n, nil when n is the head.
func (n *Node) Prev() *Node {
	if n.prev == nil || n.prev.prev == nil {
		return nil
	}
	return n.prev
}

func (l *List) PushBack(v string) *Node {
	n := &Node{Value: v}
	link(l.fakeTail.prev, n)
	link(n, l.fakeTail)
	l.len++
	return n
}

func (l *List) PushFront(v string) *Node {
	n := &Node{Value: v}
	link(n, l.fakeHead.next)
	link(l.fakeHead, n)
	l.len++
	return n
}

// Remove detaches n from the list. n must be owned by l.
func (l *List) Remove(n *Node) {
	link(n.prev, n.next)
	n.prev = nil
	n.next = nil
	l.len--
}

// MoveToBack detaches n and reattaches it before the tail sentinel.
func (l *List) MoveToBack(n *Node) {
	link(n.prev, n.next)
	link(l.fakeTail.prev, n)
	link(n, l.fakeTail)
}

func (l *List) Clear() {
	link(l.fakeHead, l.fakeTail)
	l.len = 0
}

// Values returns list values from head to tail.
func (l *List) Values() []string {
	vs := make([]string, 0, l.len)
	for n := l.fakeHead.next; n != l.fakeTail; n = n.next {
		vs = append(vs, n.Value)
	}
	return vs
}

func link(a, b *Node) { a.next, b.prev = b, a }
