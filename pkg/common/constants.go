package common

const (
	RedisKeyLastPrice = "last_price:%s:%s"
	RedisKeyRunLock   = "advisor:run_lock"

	CurrencyVND = "VND"
)
