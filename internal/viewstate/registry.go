// Package viewstate 保存每个会话的分类树展开状态。
// 状态只在内存中，登出或长时间不活动时随会话一起丢弃。
package viewstate

import (
	"sync"
	"time"

	"intranet_admin/internal/categorytree"
)

type entry struct {
	expansion map[categorytree.Level][]string
	seen      time.Time
}

type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Expansion 返回会话的展开状态副本；会话首次使用时返回空状态。
func (r *Registry) Expansion(sessionID string) map[categorytree.Level][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sessionID]
	if !ok {
		return clone(nil)
	}
	e.seen = r.now()
	return clone(e.expansion)
}

// Save 覆盖会话的展开状态。
func (r *Registry) Save(sessionID string, state map[categorytree.Level][]string) {
	if sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = &entry{expansion: clone(state), seen: r.now()}
}

// Update 在锁内对会话的展开状态做读改写，返回写入后的状态副本。
// fn 拿到的是副本，可以直接修改后返回。
func (r *Registry) Update(sessionID string, fn func(map[categorytree.Level][]string) map[categorytree.Level][]string) map[categorytree.Level][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var current map[categorytree.Level][]string
	if e, ok := r.sessions[sessionID]; ok {
		current = e.expansion
	}
	next := clone(fn(clone(current)))
	if sessionID != "" {
		r.sessions[sessionID] = &entry{expansion: next, seen: r.now()}
	}
	return clone(next)
}

// Forget 从所有会话中移除某层级下的 ID，节点被删除后调用。
func (r *Registry) Forget(level categorytree.Level, ids ...string) {
	if len(ids) == 0 {
		return
	}
	gone := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		gone[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.sessions {
		kept := e.expansion[level][:0]
		for _, id := range e.expansion[level] {
			if _, ok := gone[id]; !ok {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(e.expansion, level)
			continue
		}
		e.expansion[level] = kept
	}
}

// Drop 丢弃会话的全部视图状态。
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Sweep 丢弃超过 idle 未访问的会话，返回丢弃的数量。
// 用于回收没有显式登出、令牌自然过期的会话。
func (r *Registry) Sweep(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-idle)
	n := 0
	for id, e := range r.sessions {
		if e.seen.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func clone(state map[categorytree.Level][]string) map[categorytree.Level][]string {
	out := make(map[categorytree.Level][]string, len(state))
	for level, ids := range state {
		out[level] = append([]string(nil), ids...)
	}
	return out
}
