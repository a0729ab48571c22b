package app

import (
	"slices"
	"sync"

	"github.com/dkeye/RemoteDesk/internal/domain"
)

// Pairing records direct-connect attempts: target user id to the user ids
// currently trying to reach it. Nothing on the routing path waits on it.
type Pairing struct {
	mu      sync.Mutex
	pending map[domain.UserID]map[domain.UserID]struct{}
}

func NewPairing() *Pairing {
	return &Pairing{pending: make(map[domain.UserID]map[domain.UserID]struct{})}
}

func (p *Pairing) Add(target, source domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.pending[target]
	if !ok {
		set = make(map[domain.UserID]struct{})
		p.pending[target] = set
	}
	set[source] = struct{}{}
}

// Forget drops every intent uid takes part in, as target or as source.
func (p *Pairing) Forget(uid domain.UserID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, uid)
	for target, set := range p.pending {
		delete(set, uid)
		if len(set) == 0 {
			delete(p.pending, target)
		}
	}
}

func (p *Pairing) Sources(target domain.UserID) []domain.UserID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.UserID, 0, len(p.pending[target]))
	for src := range p.pending[target] {
		out = append(out, src)
	}
	slices.Sort(out)
	return out
}

func (p *Pairing) Snapshot() map[domain.UserID][]domain.UserID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[domain.UserID][]domain.UserID, len(p.pending))
	for target, set := range p.pending {
		srcs := make([]domain.UserID, 0, len(set))
		for src := range set {
			srcs = append(srcs, src)
		}
		slices.Sort(srcs)
		out[target] = srcs
	}
	return out
}

func (p *Pairing) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
