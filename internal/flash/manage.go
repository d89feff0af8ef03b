package flash

import (
	"github.com/contexthub/seoshub/internal/constants"
	"github.com/contexthub/seoshub/internal/interfaces"
	"github.com/contexthub/seoshub/internal/kernel"
)

// Query selects which app id(s) a management pass should act on. A nil
// component means "any" for that half of the id.
type Query struct {
	Vendor *uint32
	SeqID  *uint32
}

func (q Query) matches(appID uint64) bool {
	if q.Vendor != nil && Vendor(appID) != *q.Vendor {
		return false
	}
	if q.SeqID != nil && SeqID(appID) != *q.SeqID {
		return false
	}
	return true
}

// Loader resolves a matched, valid app entry into a running task's
// platform state and App implementation. It stands in for the reference
// firmware's load_app/unload_app, which are platform/loader concerns
// external to the event kernel.
type Loader interface {
	LoadApp(hdr kernel.AppHeader, payload []byte) (platformInfo interface{}, app interfaces.App, err error)
	UnloadApp(platformInfo interface{})
}

// ManagementStatus is the unpacked result of a start/stop/erase pass.
// Prefer this over the packed form; Pack/UnpackManagementStatus exist
// only for wire/debug compatibility with the reference firmware's single
// packed u32 return value.
type ManagementStatus struct {
	AppCount   uint8
	TaskCount  uint8
	OpCount    uint8
	EraseCount uint8
}

// PackManagementStatus packs the four counters into one u32, one byte
// per field, most-significant first: app, task, op, erase.
func PackManagementStatus(s ManagementStatus) uint32 {
	return uint32(s.AppCount)<<24 | uint32(s.TaskCount)<<16 | uint32(s.OpCount)<<8 | uint32(s.EraseCount)
}

// UnpackManagementStatus is PackManagementStatus's inverse.
func UnpackManagementStatus(packed uint32) ManagementStatus {
	return ManagementStatus{
		AppCount:   uint8(packed >> 24),
		TaskCount:  uint8(packed >> 16),
		OpCount:    uint8(packed >> 8),
		EraseCount: uint8(packed),
	}
}

// resolved is one valid, query-matching flash entry together with its
// decoded header, kept while scanning for the most recent copy of a
// given app id.
type resolved struct {
	entry Entry
	hdr   AppHdr
}

// matchingEntries returns, for each distinct app id matching q, the most
// recent valid entry (last one seen while scanning forward) plus every
// older valid duplicate that should be erased as stale.
func matchingEntries(region []byte, q Query) (latest map[uint64]resolved, stale []resolved) {
	latest = make(map[uint64]resolved)

	for _, e := range Entries(region) {
		if !e.Valid() {
			continue
		}
		hdr, ok := DecodeAppHdr(e.Payload)
		if !ok {
			continue
		}
		if !q.matches(hdr.AppID) {
			continue
		}
		if prev, seen := latest[hdr.AppID]; seen {
			stale = append(stale, prev)
		}
		latest[hdr.AppID] = resolved{entry: e, hdr: hdr}
	}

	return latest, stale
}

// StartApps resolves every flash entry matching q to its most recent
// valid copy, erases older duplicates, skips app ids already represented
// in reg, and loads the rest via loader. Returns a status counting
// resolved apps, started tasks, and erase operations performed on stale
// duplicates.
func StartApps(reg *kernel.Registry, loader Loader, writer FlashWriter, region []byte, q Query) ManagementStatus {
	latest, stale := matchingEntries(region, q)

	status := ManagementStatus{}

	for _, r := range stale {
		if EraseEntry(writer, AppHdrMarkerOffset(r.entry), constants.AppHdrMarkerDeleted) == nil {
			status.EraseCount++
		}
	}

	for appID, r := range latest {
		status.AppCount++

		if reg.FindByAppID(appID) != nil {
			continue
		}

		regHdr := toRegistryHeader(r.hdr, len(r.entry.Payload))

		platformInfo, app, err := loader.LoadApp(regHdr, r.entry.Payload)
		if err != nil {
			continue
		}

		tid := reg.AllocateTid()
		task := &kernel.Task{Tid: tid, Header: regHdr, Platform: platformInfo, App: app}

		if !reg.Insert(task) {
			loader.UnloadApp(platformInfo)
			continue
		}

		if err := app.Init(tid); err != nil {
			reg.Remove(task)
			loader.UnloadApp(platformInfo)
			continue
		}

		status.TaskCount++
		status.OpCount++
	}

	return status
}

// StopApps tears down every live task whose header matches a valid flash
// entry selected by q: App.End is called, the task removed from reg, and
// its platform state released via loader. If doErase, the matched flash
// entry is additionally erased.
func StopApps(reg *kernel.Registry, loader Loader, writer FlashWriter, region []byte, q Query, doErase bool) ManagementStatus {
	latest, _ := matchingEntries(region, q)

	status := ManagementStatus{}

	for appID, r := range latest {
		status.AppCount++

		task := reg.FindByAppID(appID)
		if task == nil {
			continue
		}
		if task.Header.Marker != constants.AppHdrMarkerValid {
			continue
		}

		task.App.End()
		reg.Remove(task)
		loader.UnloadApp(task.Platform)
		status.TaskCount++
		status.OpCount++

		if doErase {
			if EraseEntry(writer, AppHdrMarkerOffset(r.entry), constants.AppHdrMarkerDeleted) == nil {
				status.EraseCount++
			}
		}
	}

	return status
}

// EraseApps erases every valid flash entry matching q, independent of
// whether a task is currently running for it.
func EraseApps(writer FlashWriter, region []byte, q Query) ManagementStatus {
	latest, _ := matchingEntries(region, q)

	status := ManagementStatus{}
	for _, r := range latest {
		status.AppCount++
		if EraseEntry(writer, AppHdrMarkerOffset(r.entry), constants.AppHdrMarkerDeleted) == nil {
			status.EraseCount++
		}
	}
	return status
}
