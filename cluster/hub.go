// Package cluster provides an in-process cluster service. Containers that
// join the same Hub exchange broadcast commands and share cluster locks as
// if they were nodes of one cluster.
package cluster

import (
	"sort"
	"sync"

	"github.com/junioryono/unify"
)

// MasterLock is the lock held by the cluster master.
const MasterLock = "unify-master"

var hubs sync.Map // map[string]*Hub

// HubNamed returns the process-wide hub registered under name, creating it
// on first use.
func HubNamed(name string) *Hub {
	h, _ := hubs.LoadOrStore(name, NewHub())
	return h.(*Hub)
}

// Hub routes commands between joined nodes and arbitrates locks.
type Hub struct {
	mu      sync.Mutex
	inboxes map[string][]unify.ClusterCommand
	locks   map[string]string // lock -> owner node
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		inboxes: make(map[string][]unify.ClusterCommand),
		locks:   make(map[string]string),
	}
}

// Join registers node. Joining twice keeps the pending commands.
func (h *Hub) Join(node string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.inboxes[node]; !ok {
		h.inboxes[node] = nil
	}
}

// Leave removes node and releases every lock it holds.
func (h *Hub) Leave(node string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.inboxes, node)
	for lock, owner := range h.locks {
		if owner == node {
			delete(h.locks, lock)
		}
	}
}

// Nodes returns the joined nodes in sorted order.
func (h *Hub) Nodes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	nodes := make([]string, 0, len(h.inboxes))
	for n := range h.inboxes {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return nodes
}

// Publish queues cmd for every joined node except its origin.
func (h *Hub) Publish(cmd unify.ClusterCommand) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for node, inbox := range h.inboxes {
		if node == cmd.Origin {
			continue
		}
		cmd.Params = append([]string(nil), cmd.Params...)
		h.inboxes[node] = append(inbox, cmd)
	}
}

// Drain returns and removes the commands queued for node.
func (h *Hub) Drain(node string) []unify.ClusterCommand {
	h.mu.Lock()
	defer h.mu.Unlock()
	cmds := h.inboxes[node]
	if _, ok := h.inboxes[node]; ok {
		h.inboxes[node] = nil
	}
	return cmds
}

// Acquire takes lock for node. It succeeds when the lock is free or
// already held by node.
func (h *Hub) Acquire(node, lock string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if owner, held := h.locks[lock]; held {
		return owner == node
	}
	h.locks[lock] = node
	return true
}

// Release frees lock if node holds it.
func (h *Hub) Release(node, lock string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if owner, held := h.locks[lock]; !held || owner != node {
		return false
	}
	delete(h.locks, lock)
	return true
}

// Owner returns the node holding lock.
func (h *Hub) Owner(lock string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	owner, held := h.locks[lock]
	return owner, held
}
