package gateway

import "strings"

type StatusBucket int

const (
	BucketPending StatusBucket = iota
	BucketSuccess
	BucketFailure
)

var successStatuses = map[string]struct{}{
	"SUCCESS":    {},
	"SUCCESSFUL": {},
	"COMPLETED":  {},
	"PAID":       {},
}

var failureStatuses = map[string]struct{}{
	"FAILED":    {},
	"CANCELED":  {},
	"CANCELLED": {},
	"EXPIRED":   {},
}

// Classify normalizes a raw gateway status case-insensitively into
// one of three buckets. Anything unrecognized is pending, including
// ok:false responses, which are transient rather than terminal.
func Classify(resp StatusResponse) StatusBucket {
	if !resp.OK {
		return BucketPending
	}
	st := strings.ToUpper(strings.TrimSpace(resp.Status))
	if _, ok := successStatuses[st]; ok {
		return BucketSuccess
	}
	if _, ok := failureStatuses[st]; ok {
		return BucketFailure
	}
	return BucketPending
}
