package model

// CheckItem is one prerequisite probe result.
type CheckItem struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// CheckReport aggregates prerequisite probes.
type CheckReport struct {
	Items []CheckItem `json:"items"`
}

// OK reports whether every probe passed.
func (r CheckReport) OK() bool {
	for _, item := range r.Items {
		if !item.OK {
			return false
		}
	}

	return true
}
