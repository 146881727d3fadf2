package entity

import (
	"encoding/json"
	"fmt"
)

// Filing is one reported event from the EDGAR real-time stream or the
// query API. Field names follow the upstream payload.
type Filing struct {
	ID                  string `json:"id,omitempty"`
	AccessionNo         string `json:"accessionNo,omitempty"`
	Ticker              string `json:"ticker"`
	CompanyName         string `json:"companyName"`
	FormType            string `json:"formType"`
	FiledAt             string `json:"filedAt"`
	LinkToTxt           string `json:"linkToTxt,omitempty"`
	LinkToHTML          string `json:"linkToHtml,omitempty"`
	LinkToFilingDetails string `json:"linkToFilingDetails,omitempty"`
}

// Key returns a stable identifier for dedupe purposes.
func (f Filing) Key() string {
	if f.AccessionNo != "" {
		return f.AccessionNo
	}
	if f.ID != "" {
		return f.ID
	}
	return f.Ticker + "|" + f.FormType + "|" + f.FiledAt
}

// DecodeFilings parses a raw feed frame holding either one filing or
// an array of filings.
func DecodeFilings(data []byte) ([]Filing, error) {
	var many []Filing
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}
	var one Filing
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("failed to decode filing payload: %w", err)
	}
	return []Filing{one}, nil
}
