package application

import "expvar"

// Published under /debug/vars as "user_lifecycle".
var lifecycleStats = expvar.NewMap("user_lifecycle")

const (
	statCompensations        = "compensations"
	statCompensationFailures = "compensation_failures"
	statPhotoCleanupWarnings = "photo_cleanup_warnings"
	statNotifyFailures       = "notify_failures"
	statIndexFailures        = "index_failures"
	statPhotoOnlyWrites      = "photo_only_writes"
)

func incStat(name string) { lifecycleStats.Add(name, 1) }

func statValue(name string) int64 {
	if v, ok := lifecycleStats.Get(name).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}
