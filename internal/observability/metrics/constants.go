package metrics

// Shared histogram bucket parameters.
const (
	BucketStart1ms = 0.001
	BucketFactor2  = 2.0
	BucketCount10  = 10
)
