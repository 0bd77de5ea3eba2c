package culling

// CullerBuilderOption configures a Culler.
type CullerBuilderOption func(*culler)

// WithWorkerPool fans culling out over a worker pool with the given number of workers.
// Values below 2 keep culling on the calling goroutine.
//
// Parameters:
//   - workers: the number of pool workers
//
// Returns:
//   - CullerBuilderOption: the option
func WithWorkerPool(workers int) CullerBuilderOption {
	return func(c *culler) {
		if workers < 2 {
			workers = 0
		}
		c.workers = workers
	}
}

// WithParallelThreshold sets the candidate count at which the worker pool is used.
//
// Parameters:
//   - threshold: minimum candidates for the parallel path
//
// Returns:
//   - CullerBuilderOption: the option
func WithParallelThreshold(threshold int) CullerBuilderOption {
	return func(c *culler) {
		if threshold >= 0 {
			c.threshold = threshold
		}
	}
}
