package models

// SeriesQuery is the parsed input of a series or comparison request
type SeriesQuery struct {
	Domain   string
	Sensor   string   // single-sensor mode
	Sensors  []string // multi-sensor mode; empty uses the domain default
	SourceID string
	Period   string // today, week, custom
	Start    string // YYYY-MM-DD, custom only
	End      string // YYYY-MM-DD, custom only
}

// ReadingQuery is the parsed input of a reading listing
type ReadingQuery struct {
	BoxID  string
	Sensor string // projects each row to this sensor when set
	Start  string // YYYY-MM-DD or timestamp
	End    string // YYYY-MM-DD or timestamp
	Page   int    // 1-based; 0 disables pagination
	Limit  int
}
