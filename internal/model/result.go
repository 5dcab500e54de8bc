package model

// Result pairs a query with its collected state or failure. Failures
// are isolated per query; a batch never aborts on a single bad entry.
type Result struct {
	Query PoolQuery
	State *PoolState
	Err   error
}

// CollectError is the serializable form of a per-query failure.
type CollectError struct {
	Address  string   `json:"address"`
	Protocol Protocol `json:"protocol"`
	PoolID   string   `json:"pool_id,omitempty"`
	Error    string   `json:"error"`
}

// NewCollectError builds the error record for a failed result.
func NewCollectError(res Result) CollectError {
	rec := CollectError{
		Address:  res.Query.Address.Hex(),
		Protocol: res.Query.Protocol,
	}
	if res.Query.PoolID != nil {
		rec.PoolID = res.Query.PoolID.Hex()
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	return rec
}
