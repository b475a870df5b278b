package models

// ValueType identifies the declared type of a single result value.
type ValueType string

// Supported result value types.
const (
	ValueTypeInt   ValueType = "int"
	ValueTypeFloat ValueType = "float"
	ValueTypeImage ValueType = "image"
)

// Valid reports whether the value type is one of the supported kinds.
func (t ValueType) Valid() bool {
	switch t {
	case ValueTypeInt, ValueTypeFloat, ValueTypeImage:
		return true
	default:
		return false
	}
}

// InputFormat identifies the artifact encoding an evaluator consumes.
type InputFormat string

// Supported evaluator input formats.
const (
	InputFormatPNG  InputFormat = "png"
	InputFormatJPEG InputFormat = "jpg"
)

// Visualization identifies how a metric's results are rendered by clients.
type Visualization string

// Supported visualization types.
const (
	VisualizationTable Visualization = "table"
	VisualizationImage Visualization = "image"
)

// Speed ratings as declared in the metric catalog. Higher is faster.
const (
	SpeedSlow   = 0
	SpeedMedium = 1
	SpeedFast   = 2
)

// ScoreBand is a labelled numeric range used to classify a raw result value.
// A nil Min means unbounded low, a nil Max means unbounded high.
type ScoreBand struct {
	ID          string   `json:"id"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Judgment    string   `json:"judgment"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
}

// ResultDescriptor declares one value a metric produces. Scores may be empty,
// image results carry no bands at all.
type ResultDescriptor struct {
	ID          string      `json:"id"`
	Index       int         `json:"index"`
	Type        ValueType   `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Scores      []ScoreBand `json:"scores,omitempty"`
}

// MetricDescriptor is the immutable catalog entry for one metric.
type MetricDescriptor struct {
	ID            string             `json:"id"`
	CategoryID    string             `json:"category"`
	Name          string             `json:"name"`
	Description   string             `json:"description,omitempty"`
	Evidence      int                `json:"evidence"`
	Relevance     int                `json:"relevance"`
	Speed         int                `json:"speed"`
	Input         InputFormat        `json:"input"`
	Visualization Visualization      `json:"visualization"`
	Results       []ResultDescriptor `json:"results"`
}

// Category groups related metrics in the catalog.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
