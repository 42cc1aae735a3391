package game

// TimestampSpan reserves the low digits of an ordering key for a unix
// millisecond timestamp. Keys stay unambiguous while timestamps stay below
// 10^10 millis (roughly year 2286), a fixed assumption of this encoding.
const TimestampSpan = 10_000_000_000

// MaxEncodableScore is the largest score the ordering key can carry without
// overflowing int64. Config enforces MaxScoreAbs stays under this.
const MaxEncodableScore = 900_000_000

// OrderingKey packs a score and its unix-millisecond timestamp into a single
// totally-ordered scalar: higher score ranks higher, and among equal scores
// the more recent one ranks higher. A single comparable field means ranked
// pages and exact-rank counts need no compound sort.
func OrderingKey(score int, nowMillis int64) int64 {
	return int64(score)*TimestampSpan + nowMillis
}

// SplitOrderingKey recovers the score and timestamp from an ordering key.
func SplitOrderingKey(key int64) (score int, millis int64) {
	return int(key / TimestampSpan), key % TimestampSpan
}
