package enums

const (
	StoreDriverMemory = "memory"
	StoreDriverBolt   = "bolt"
	StoreDriverRedis  = "redis"
)
