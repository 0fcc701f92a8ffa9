package model

// Overview holds the headline dashboard counters.
type Overview struct {
	Total          int     `json:"total"`
	New            int     `json:"new"`
	Interested     int     `json:"interested"`
	Contacted      int     `json:"contacted"`
	ConversionRate float64 `json:"conversionRate"`
	// ConversionLabel is ConversionRate rendered with one decimal, e.g. "33.3".
	ConversionLabel string `json:"conversionLabel"`
}

// IndustryCount is one bar of the prospects-by-industry chart.
type IndustryCount struct {
	Industry Industry `json:"industry"`
	Count    int      `json:"count"`
}

// StatusCount is one slice of the prospects-by-status chart.
type StatusCount struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Fill   string `json:"fill"`
}

// Dashboard is everything the dashboard page renders.
type Dashboard struct {
	Overview   Overview        `json:"overview"`
	ByIndustry []IndustryCount `json:"byIndustry"`
	ByStatus   []StatusCount   `json:"byStatus"`
}
