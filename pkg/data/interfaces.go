package data

import "time"

// Candle is one OHLCV bar used to derive volatility
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// CandleProvider loads candles from a source such as a file path
type CandleProvider interface {
	// LoadCandles returns the candles in chronological order plus
	// warnings for rows that were skipped
	LoadCandles(source string) ([]Candle, []string, error)

	// GetName returns the name of the provider
	GetName() string
}

// CSVColumnMapping defines the column positions for different CSV formats
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// Predefined CSV formats
var (
	DefaultCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02 15:04:05",
	}

	// BybitCSVFormat matches kline exports with millisecond timestamps
	BybitCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   EpochMillis,
	}
)

// EpochMillis as a DateFormat parses the timestamp column as Unix milliseconds
const EpochMillis = "epoch_ms"
