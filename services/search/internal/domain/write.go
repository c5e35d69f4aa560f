package domain

// Write outcomes reported per document.
const (
	ResultCreated = "created"
	ResultUpdated = "updated"
	ResultFailed  = "failed"
)

// WriteResult reports a single-document upsert. Refreshed is true once the
// store has made the write visible to subsequent searches.
type WriteResult struct {
	ID        string `json:"id"`
	Result    string `json:"result"`
	Refreshed bool   `json:"refreshed"`
}

// BulkItemResult is the outcome of one document of a bulk write.
type BulkItemResult struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Succeeded reports whether the item was stored.
func (r BulkItemResult) Succeeded() bool {
	return r.Status >= 200 && r.Status < 300
}

// BulkResult reports a bulk write item by item. A bulk write is atomic per
// document only: successful items stay stored when others fail.
type BulkResult struct {
	Items     []BulkItemResult `json:"items"`
	Refreshed bool             `json:"refreshed"`
}

// Indexed returns the number of stored items.
func (r *BulkResult) Indexed() int {
	n := 0
	for _, it := range r.Items {
		if it.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the items that were not stored, never nil.
func (r *BulkResult) Failed() []BulkItemResult {
	failed := make([]BulkItemResult, 0)
	for _, it := range r.Items {
		if !it.Succeeded() {
			failed = append(failed, it)
		}
	}
	return failed
}
