package excel

// ReaderConfig controls how a DataReader locates and parses series
type ReaderConfig struct {
	// Sheet is the worksheet read from XLSX files. Ignored for CSV.
	Sheet string `json:"sheet" yaml:"sheet"`
	// MissingValues are cell contents treated as missing (NaN), compared case-insensitively.
	MissingValues []string `json:"missing_values" yaml:"missing_values"`
}

// DefaultReaderConfig returns sensible defaults for spreadsheet input
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		Sheet:         "Sheet1",
		MissingValues: []string{"", "na", "n/a", "nan", "null", "-"},
	}
}
