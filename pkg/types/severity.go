package types

import (
	"strings"

	"golang.org/x/xerrors"
)

// SeverityBucket is a named range over the CVSSv3 score used for
// categorical filtering. The empty bucket means the record has no
// CVSSv3 score at all.
type SeverityBucket string

const (
	BucketEmpty    SeverityBucket = "empty"
	BucketLow      SeverityBucket = "low"
	BucketMedium   SeverityBucket = "medium"
	BucketHigh     SeverityBucket = "high"
	BucketCritical SeverityBucket = "critical"
)

var bucketRanges = map[SeverityBucket][2]float64{
	BucketLow:      {0, 3.9},
	BucketMedium:   {4.0, 6.9},
	BucketHigh:     {7.0, 8.9},
	BucketCritical: {9.0, 10.0},
}

// NewSeverityBucket parses a bucket name, case-insensitively matching the
// filter values accepted at the query boundary. The returned bucket is
// always the canonical lowercase form so range lookups work on it.
func NewSeverityBucket(s string) (SeverityBucket, error) {
	switch b := SeverityBucket(strings.ToLower(s)); b {
	case BucketEmpty, BucketLow, BucketMedium, BucketHigh, BucketCritical:
		return b, nil
	}
	return "", xerrors.Errorf("unknown severity bucket: %s", s)
}

// Range returns the inclusive score bounds of the bucket. The second return
// value is false for the empty bucket, which has no numeric range.
func (b SeverityBucket) Range() (min, max float64, ok bool) {
	r, ok := bucketRanges[b]
	if !ok {
		return 0, 0, false
	}
	return r[0], r[1], true
}

// Contains reports whether a nullable CVSSv3 score falls into the bucket.
func (b SeverityBucket) Contains(score *float64) bool {
	if b == BucketEmpty {
		return score == nil
	}
	min, max, ok := b.Range()
	if !ok || score == nil {
		return false
	}
	return *score >= min && *score <= max
}
