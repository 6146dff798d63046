package mos

import "fmt"

// Quality is the five-way ordered classification of a MOS value.
type Quality int

const (
	Bad Quality = iota
	Poor
	Acceptable
	Good
	Excellent
)

const (
	MinMOS = 1.0
	MaxMOS = 5.0
)

// qualityTable is scanned top-down; a score must be strictly above a
// threshold to reach its bucket.
var qualityTable = []struct {
	above   float64
	quality Quality
}{
	{4.2, Excellent},
	{3.6, Good},
	{3.0, Acceptable},
	{2.0, Poor},
}

// Classify maps a MOS value to its quality bucket.
func Classify(mos float64) Quality {
	for _, row := range qualityTable {
		if mos > row.above {
			return row.quality
		}
	}
	return Bad
}

func (q Quality) String() string {
	return EnglishLabels.Label(q)
}

func (q Quality) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// Labels holds the presentation strings of each quality bucket.
type Labels map[Quality]string

var (
	EnglishLabels = Labels{
		Excellent:  "Excellent",
		Good:       "Good",
		Acceptable: "Acceptable",
		Poor:       "Poor",
		Bad:        "Bad",
	}
	SpanishLabels = Labels{
		Excellent:  "Excelente",
		Good:       "Bueno",
		Acceptable: "Aceptable",
		Poor:       "Pobre",
		Bad:        "Malo",
	}
)

func (l Labels) Label(q Quality) string {
	if s, ok := l[q]; ok {
		return s
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// LabelsByName resolves a label set by language code.
func LabelsByName(name string) (Labels, error) {
	switch name {
	case "", "en":
		return EnglishLabels, nil
	case "es":
		return SpanishLabels, nil
	}
	return nil, fmt.Errorf("unknown label set %q (use en or es)", name)
}
