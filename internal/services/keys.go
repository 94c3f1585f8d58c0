package services

// Store keys, scoped per user by the per-user store itself.
const (
	keyGlucoseHistoric   = "glucose:historic"
	keyGlucoseScan       = "glucose:scan"
	keyLastUsedScan      = "last_used_scan"
	keyLastGlucoseUpdate = "last_just_updated_glucose_at"
	keyEpisode           = "episode"
	keyInstantGlucose    = "instant_glucose"
	keyInsulinSet        = "insulin:set"
	keyInsulinHash       = "insulin:hash"
	keyLowSet            = "low:set"
	keyLowHash           = "low:hash"
	keyFoodSet           = "food:set"
	keyFoodHash          = "food:hash"
	keyRevision          = "revision"
	keyRevisionChangedAt = "revision_changed_at"
	keyCgmProperties     = "userdata:cgm-current-device-properties"
)

// DefaultLastN is the default window for "latest records" queries, one day of
// five-minute samples.
const DefaultLastN = 288
