package resolve

// downloadTask is one artifact that needs a remote fetch, bound to the
// repository chosen to serve it.
type downloadTask struct {
	pending    *pendingRequest
	repository Repository
}

// groupByRepository partitions tasks so every task sharing a repository ID
// is fetched as one batch, letting a single per-repository backoff/limiter
// sequence cover the whole group instead of per-artifact bookkeeping.
func groupByRepository(tasks []downloadTask) map[string][]downloadTask {
	groups := make(map[string][]downloadTask)
	for _, task := range tasks {
		groups[task.repository.ID] = append(groups[task.repository.ID], task)
	}
	return groups
}
