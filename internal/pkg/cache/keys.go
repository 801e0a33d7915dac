package cache

import "time"

// Key conventions per entity type. List caches embed an md5 of the filter set
// so any filter combination is invalidated by the per-scope pattern.
const (
	KeyInventoryItem    = "inventory:item:%s"       // inventory id
	KeyInventoryList    = "inventory:list:%s:%x"    // farm id, md5(filters)
	KeyInventoryMetrics = "inventory:metrics:%s"    // farm id
	KeyOrder            = "orders:order:%s"         // order id
	KeyOrderList        = "orders:list:%x"          // md5(filters)
	KeyMarketplaceList  = "marketplace:products:%x" // md5(filters)
	KeyFarmStats        = "farms:stats:%s"          // farm id

	KeyLockInventory = "lock:inventory:%s" // inventory id

	PatternInventoryByFarm = "inventory:*%s*"
	PatternOrders          = "orders:*"
	PatternMarketplace     = "marketplace:*"
)

var (
	TTLItem    = 5 * time.Minute
	TTLList    = 5 * time.Minute
	TTLMetrics = 10 * time.Minute
	TTLLock    = 5 * time.Second
)
