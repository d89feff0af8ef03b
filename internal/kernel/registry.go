package kernel

import (
	"github.com/contexthub/seoshub/internal/constants"
	"github.com/contexthub/seoshub/internal/interfaces"
)

// AppHeader is the immutable descriptor carried by every loaded task,
// mirroring the payload of a validated flash AppHdr entry.
type AppHeader struct {
	AppID         uint64
	Version       uint32
	FormatVersion uint8
	Marker        uint8
	RelEnd        uint32
}

// Task represents one running app. Tid is non-zero while the task is
// live; a Task is only ever reachable through the Registry while live.
type Task struct {
	Tid      uint32
	Header   AppHeader
	Platform interface{}
	App      interfaces.App

	subs subList
}

// Registry is the fixed-capacity table of live tasks. It is only ever
// mutated from the dispatch loop's context (directly during the app
// lifecycle pass, or via internal subscribe/unsubscribe actions), so it
// carries no internal locking.
type Registry struct {
	tasks   [constants.MaxTasks]*Task
	count   int
	nextTid uint32
}

// NewRegistry returns an empty registry with tid allocation armed to
// return FirstValidTid on the first call to AllocateTid.
func NewRegistry() *Registry {
	return &Registry{nextTid: constants.FirstValidTid - 1}
}

// FindByTid returns the first live task with the given tid, or nil.
func (r *Registry) FindByTid(tid uint32) *Task {
	if tid == 0 {
		return nil
	}
	for i := 0; i < r.count; i++ {
		if r.tasks[i].Tid == tid {
			return r.tasks[i]
		}
	}
	return nil
}

// FindByAppID returns the first live task whose header AppID matches, or nil.
func (r *Registry) FindByAppID(appID uint64) *Task {
	for i := 0; i < r.count; i++ {
		if r.tasks[i].Header.AppID == appID {
			return r.tasks[i]
		}
	}
	return nil
}

// AllocateTid returns the next unique, non-zero tid. The counter advances
// monotonically within [FirstValidTid, LastValidTid], wrapping around and
// skipping any value currently held by a live task.
func (r *Registry) AllocateTid() uint32 {
	for {
		r.nextTid++
		if r.nextTid > constants.LastValidTid {
			r.nextTid = constants.FirstValidTid
		}
		if r.FindByTid(r.nextTid) == nil {
			return r.nextTid
		}
	}
}

// Insert adds t to the registry. Returns false if the registry is full;
// the caller must treat a failed insert as "app not started".
func (r *Registry) Insert(t *Task) bool {
	if r.count >= constants.MaxTasks {
		return false
	}
	r.tasks[r.count] = t
	r.count++
	return true
}

// Remove deletes t from the registry by tid, filling the vacated slot by
// moving the last slot into it. Order is not preserved. Returns false if
// t is not present.
func (r *Registry) Remove(t *Task) bool {
	for i := 0; i < r.count; i++ {
		if r.tasks[i] == t {
			last := r.count - 1
			r.tasks[i] = r.tasks[last]
			r.tasks[last] = nil
			r.count--
			return true
		}
	}
	return false
}

// Tasks returns the live tasks in current registry order. The slice is a
// read-only view valid until the next Insert/Remove.
func (r *Registry) Tasks() []*Task {
	return r.tasks[:r.count]
}

// Count returns the number of live tasks.
func (r *Registry) Count() int {
	return r.count
}
