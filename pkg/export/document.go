package export

// Document is the renderer-independent shape of a schedule export.
type Document struct {
	Title    string
	Timezone string
	Days     []DaySection
}

// DaySection groups the meetings of one calendar date.
type DaySection struct {
	Date    string
	DayID   string
	Holiday bool
	Rows    []Row
}

// Row is a single meeting line.
type Row struct {
	PeriodKey string
	Start     string
	End       string
	Duration  string
}

var columnHeaders = []string{"Date", "Day", "Period", "Start", "End", "Duration"}

// flatten turns the day sections into uniform records for tabular renderers.
func flatten(doc Document) [][]string {
	records := make([][]string, 0)
	for _, day := range doc.Days {
		if day.Holiday {
			records = append(records, []string{day.Date, "-", "holiday", "", "", ""})
			continue
		}
		for _, row := range day.Rows {
			records = append(records, []string{
				day.Date,
				day.DayID,
				row.PeriodKey,
				row.Start,
				row.End,
				row.Duration,
			})
		}
	}
	return records
}
