package screen

import "github.com/kstaniek/go-corenet/internal/protocol"

// Node is one screen in the layout graph.
type Node struct {
	HostID    string
	HostName  string
	Width     uint32
	Height    uint32
	Neighbors map[protocol.ScreenEdge]string
}

func newNode(info protocol.ScreenInfo) *Node {
	return &Node{
		HostID:    info.HostID,
		HostName:  info.HostName,
		Width:     info.Width,
		Height:    info.Height,
		Neighbors: make(map[protocol.ScreenEdge]string),
	}
}

// Layout is a labelled directed graph of screens: it answers "when the
// cursor leaves host H via edge E, which host receives it?" It does not
// itself drive transitions.
type Layout struct {
	nodes       map[string]*Node
	localHostID string
}

// NewLayout returns an empty layout.
func NewLayout() *Layout {
	return &Layout{nodes: make(map[string]*Node)}
}

// SetLocalHost marks info as the local host, inserting it if absent.
func (l *Layout) SetLocalHost(info protocol.ScreenInfo) {
	l.localHostID = info.HostID
	l.nodes[info.HostID] = newNode(info)
}

// LocalHost returns the node marked as local, if any.
func (l *Layout) LocalHost() (*Node, bool) {
	if l.localHostID == "" {
		return nil, false
	}
	n, ok := l.nodes[l.localHostID]
	return n, ok
}

// AddHost inserts a node for info, replacing any existing node for that id.
func (l *Layout) AddHost(info protocol.ScreenInfo) {
	l.nodes[info.HostID] = newNode(info)
}

// RemoveHost removes hostID and purges any neighbor entry pointing to it.
func (l *Layout) RemoveHost(hostID string) {
	delete(l.nodes, hostID)
	for _, n := range l.nodes {
		for edge, id := range n.Neighbors {
			if id == hostID {
				delete(n.Neighbors, edge)
			}
		}
	}
}

// GetHost looks up a node by id.
func (l *Layout) GetHost(hostID string) (*Node, bool) {
	n, ok := l.nodes[hostID]
	return n, ok
}

// HostCount returns the number of nodes in the layout.
func (l *Layout) HostCount() int { return len(l.nodes) }

// AllHosts returns every node in the layout, in no particular order.
func (l *Layout) AllHosts() []*Node {
	out := make([]*Node, 0, len(l.nodes))
	for _, n := range l.nodes {
		out = append(out, n)
	}
	return out
}

// ConnectHosts links hostA's edgeA to hostB and hostB's edgeB to hostA. It
// reports false if either host is unknown.
func (l *Layout) ConnectHosts(hostA string, edgeA protocol.ScreenEdge, hostB string, edgeB protocol.ScreenEdge) bool {
	a, ok := l.nodes[hostA]
	if !ok {
		return false
	}
	b, ok := l.nodes[hostB]
	if !ok {
		return false
	}
	a.Neighbors[edgeA] = hostB
	b.Neighbors[edgeB] = hostA
	return true
}

// DisconnectHosts removes any neighbor entries between hostA and hostB.
func (l *Layout) DisconnectHosts(hostA, hostB string) {
	if a, ok := l.nodes[hostA]; ok {
		for edge, id := range a.Neighbors {
			if id == hostB {
				delete(a.Neighbors, edge)
			}
		}
	}
	if b, ok := l.nodes[hostB]; ok {
		for edge, id := range b.Neighbors {
			if id == hostA {
				delete(b.Neighbors, edge)
			}
		}
	}
}

// GetNeighbor returns the node adjacent to hostID via edge, if configured.
func (l *Layout) GetNeighbor(hostID string, edge protocol.ScreenEdge) (*Node, bool) {
	n, ok := l.nodes[hostID]
	if !ok {
		return nil, false
	}
	id, ok := n.Neighbors[edge]
	if !ok {
		return nil, false
	}
	neighbor, ok := l.nodes[id]
	return neighbor, ok
}

// CreateLinearLayout replaces the layout with a left-to-right chain over
// hosts, each connected to the next via Right/Left.
func (l *Layout) CreateLinearLayout(hosts []protocol.ScreenInfo) {
	l.nodes = make(map[string]*Node)
	for _, info := range hosts {
		l.AddHost(info)
	}
	for i := 0; i+1 < len(hosts); i++ {
		l.ConnectHosts(hosts[i].HostID, protocol.EdgeRight, hosts[i+1].HostID, protocol.EdgeLeft)
	}
}

// Builder is a fluent constructor for a Layout that preserves the
// bidirectional-edge invariant: right_of/left_of/above/below always set
// both sides of the connection in one call.
type Builder struct {
	layout *Layout
}

// NewBuilder starts a Builder over an empty layout.
func NewBuilder() *Builder {
	return &Builder{layout: NewLayout()}
}

func (b *Builder) LocalHost(info protocol.ScreenInfo) *Builder {
	b.layout.SetLocalHost(info)
	return b
}

func (b *Builder) AddHost(info protocol.ScreenInfo) *Builder {
	b.layout.AddHost(info)
	return b
}

// Connect links hostA's edgeA to hostB's edgeB, and the reverse.
func (b *Builder) Connect(hostA string, edgeA protocol.ScreenEdge, hostB string, edgeB protocol.ScreenEdge) *Builder {
	b.layout.ConnectHosts(hostA, edgeA, hostB, edgeB)
	return b
}

// LeftOf connects hostB to the left of hostA.
func (b *Builder) LeftOf(hostA, hostB string) *Builder {
	return b.Connect(hostA, protocol.EdgeLeft, hostB, protocol.EdgeRight)
}

// RightOf connects hostB to the right of hostA.
func (b *Builder) RightOf(hostA, hostB string) *Builder {
	return b.Connect(hostA, protocol.EdgeRight, hostB, protocol.EdgeLeft)
}

// Above connects hostB above hostA.
func (b *Builder) Above(hostA, hostB string) *Builder {
	return b.Connect(hostA, protocol.EdgeTop, hostB, protocol.EdgeBottom)
}

// Below connects hostB below hostA.
func (b *Builder) Below(hostA, hostB string) *Builder {
	return b.Connect(hostA, protocol.EdgeBottom, hostB, protocol.EdgeTop)
}

// Build returns the constructed Layout.
func (b *Builder) Build() *Layout { return b.layout }
