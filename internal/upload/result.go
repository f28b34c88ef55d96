package upload

type StrategyKind string

const (
	StrategyDirect     StrategyKind = "direct"
	StrategySigned     StrategyKind = "signed"
	StrategyFilesystem StrategyKind = "filesystem"
)

// Remote reports whether the strategy talks to the remote object store.
func (k StrategyKind) Remote() bool {
	return k == StrategyDirect || k == StrategySigned
}

// Result is the outcome of one Store call. PublicURL and StrategyUsed are set
// only on success. Diagnostics holds one message per failed attempt, in order.
type Result struct {
	Success      bool         `json:"success"`
	PublicURL    string       `json:"public_url,omitempty"`
	StrategyUsed StrategyKind `json:"strategy_used,omitempty"`
	Path         string       `json:"path"`
	ContentType  string       `json:"content_type"`
	Diagnostics  []string     `json:"diagnostics"`
}
