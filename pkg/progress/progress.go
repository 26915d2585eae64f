// Package progress defines the JSON payloads exchanged with the remote
// snapshot batch service. The orchestrator treats them as read-only.
package progress

import "fmt"

// Network segment names reported by the remote service.
const (
	NetworkMainnet = "mainnet"
	NetworkPreprod = "preprod"
)

// BatchResponse is the envelope returned by a batch call.
type BatchResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message,omitempty"`
	Progress *BatchProgress `json:"progress,omitempty"`
}

// BatchProgress is the outcome of one batch as reported by the service.
type BatchProgress struct {
	BatchID      string `json:"batchId,omitempty"`
	BatchNumber  int    `json:"batchNumber,omitempty"`
	TotalBatches int    `json:"totalBatches"`

	// Processed items were attempted; Stored succeeded; Failed did not.
	Processed int `json:"walletsProcessed"`
	Failed    int `json:"walletsFailed"`
	Stored    int `json:"snapshotsStored"`

	Networks NetworkBreakdown `json:"networks"`
	Errors   []FailureRecord  `json:"errors,omitempty"`
}

// NetworkBreakdown splits the metrics by network segment.
type NetworkBreakdown struct {
	Mainnet NetworkTotals `json:"mainnet"`
	Preprod NetworkTotals `json:"preprod"`
}

// Add returns the element-wise sum of b and o.
func (b NetworkBreakdown) Add(o NetworkBreakdown) NetworkBreakdown {
	return NetworkBreakdown{
		Mainnet: b.Mainnet.Add(o.Mainnet),
		Preprod: b.Preprod.Add(o.Preprod),
	}
}

// NetworkTotals is the item count and accumulated balance of one segment.
type NetworkTotals struct {
	Wallets int     `json:"wallets"`
	Balance float64 `json:"totalBalance"`
}

// Add returns the sum of t and o.
func (t NetworkTotals) Add(o NetworkTotals) NetworkTotals {
	return NetworkTotals{
		Wallets: t.Wallets + o.Wallets,
		Balance: t.Balance + o.Balance,
	}
}

// FailureRecord describes one item the remote could not process.
type FailureRecord struct {
	ItemID   string          `json:"walletId"`
	Category string          `json:"errorType"`
	Message  string          `json:"message"`
	Details  *FailureDetails `json:"details,omitempty"`
}

// FailureDetails is the optional diagnostic shape of a failed item.
// Every field is optional; absent fields stay nil.
type FailureDetails struct {
	AddressLength  *int  `json:"addressLength,omitempty"`
	IsBech32       *bool `json:"isBech32,omitempty"`
	IsHex          *bool `json:"isHex,omitempty"`
	HasStakePrefix *bool `json:"hasStakePrefix,omitempty"`
	UTxOCount      *int  `json:"utxoCount,omitempty"`
	AssetCount     *int  `json:"assetCount,omitempty"`
}

// String renders the set fields as key=value pairs.
func (d *FailureDetails) String() string {
	if d == nil {
		return ""
	}

	var out string
	add := func(k string, v any) {
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%s=%v", k, v)
	}
	if d.AddressLength != nil {
		add("addressLength", *d.AddressLength)
	}
	if d.IsBech32 != nil {
		add("isBech32", *d.IsBech32)
	}
	if d.IsHex != nil {
		add("isHex", *d.IsHex)
	}
	if d.HasStakePrefix != nil {
		add("hasStakePrefix", *d.HasStakePrefix)
	}
	if d.UTxOCount != nil {
		add("utxoCount", *d.UTxOCount)
	}
	if d.AssetCount != nil {
		add("assetCount", *d.AssetCount)
	}
	return out
}
