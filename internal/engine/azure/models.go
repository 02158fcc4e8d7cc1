package azure

// recognitionResponse is the detailed-format reply of the short audio REST API.
type recognitionResponse struct {
	RecognitionStatus string `json:"RecognitionStatus"`
	DisplayText       string `json:"DisplayText,omitempty"`
	Offset            int64  `json:"Offset"`
	Duration          int64  `json:"Duration"`
	NBest             []struct {
		Confidence float64 `json:"Confidence"`
		Lexical    string  `json:"Lexical"`
		Display    string  `json:"Display"`
	} `json:"NBest"`
}
