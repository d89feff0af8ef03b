package seoshub

import "github.com/contexthub/seoshub/internal/constants"

// Re-exported capacity and reserved-range constants, for callers that
// need them without importing internal/constants directly.
const (
	MaxTasks           = constants.MaxTasks
	FirstValidTid      = constants.FirstValidTid
	LastValidTid       = constants.LastValidTid
	MaxEmbeddedEvtSubs = constants.MaxEmbeddedEvtSubs
	QueueCapacity      = constants.QueueCapacity

	EvtNoFirstUserEvent     = constants.EvtNoFirstUserEvent
	EventTypeBitDiscardable = constants.EventTypeBitDiscardable
	AppFreeEvtData          = constants.AppFreeEvtData

	AppHdrMagic         = constants.AppHdrMagic
	AppHdrVerCur         = constants.AppHdrVerCur
	AppHdrMarkerValid   = constants.AppHdrMarkerValid
	AppHdrMarkerDeleted = constants.AppHdrMarkerDeleted
	AppHdrMarkerInvalid = constants.AppHdrMarkerInvalid
	BLFlashAppID        = constants.BLFlashAppID

	MaxGyroBias = constants.MaxGyroBias
)
