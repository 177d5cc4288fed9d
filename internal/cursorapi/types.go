package cursorapi

import "encoding/json"

// Profile is the subset of /api/auth/me we read.
type Profile struct {
	Email string `json:"email"`
}

// ModelUsage is one model's entry in the /api/usage response. Fields are nil
// when the API omits them.
type ModelUsage struct {
	NumRequests      *int `json:"numRequests"`
	NumRequestsTotal *int `json:"numRequestsTotal"`
	MaxRequestUsage  *int `json:"maxRequestUsage"`
	NumTokens        *int `json:"numTokens"`
	MaxTokenUsage    *int `json:"maxTokenUsage"`
}

// Requests returns the request count, 0 when absent.
func (m ModelUsage) Requests() int {
	return deref(m.NumRequests)
}

// RequestCap returns the request limit, 0 when absent.
func (m ModelUsage) RequestCap() int {
	return deref(m.MaxRequestUsage)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// UsageResponse is the /api/usage body: model entries keyed by model name plus
// the billing period start.
type UsageResponse struct {
	Models       map[string]ModelUsage
	StartOfMonth string
}

func (u *UsageResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.Models = make(map[string]ModelUsage, len(raw))
	for k, v := range raw {
		if k == "startOfMonth" {
			if err := json.Unmarshal(v, &u.StartOfMonth); err != nil {
				return err
			}
			continue
		}
		// Entries that are not objects (null, future scalar fields) are skipped.
		if len(v) == 0 || v[0] != '{' {
			continue
		}
		var m ModelUsage
		if err := json.Unmarshal(v, &m); err != nil {
			return err
		}
		u.Models[k] = m
	}
	return nil
}
