package repository

// Bucket is the resolution of aggregated history.
type Bucket string

const (
	BucketNone Bucket = ""
	Bucket1m   Bucket = "1m"
	Bucket5m   Bucket = "5m"
	Bucket1h   Bucket = "1h"
)

func IsValidBucket(b Bucket) bool {
	switch b {
	case BucketNone, Bucket1m, Bucket5m, Bucket1h:
		return true
	default:
		return false
	}
}

// NormalizeBucket maps unknown values to raw (unaggregated) history.
func NormalizeBucket(s string) Bucket {
	b := Bucket(s)
	if IsValidBucket(b) {
		return b
	}
	return BucketNone
}

// Seconds returns the bucket width for interval queries.
func (b Bucket) Seconds() int {
	switch b {
	case Bucket1m:
		return 60
	case Bucket5m:
		return 300
	case Bucket1h:
		return 3600
	default:
		return 0
	}
}
