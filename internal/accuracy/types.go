// internal/accuracy/types.go
package accuracy

// QuerySuite defines the retrieval test cases loaded from JSON.
type QuerySuite struct {
	Name  string      `json:"name,omitempty"`
	Tests []QueryTest `json:"tests"`
}

// QueryTest defines a single query and what its best match must look like.
// ExpectedText is a case-insensitive substring of the matched passage;
// ExpectedSubject is compared to the match's subject ignoring case. A test
// with neither only requires that something matches.
type QueryTest struct {
	ID              int    `json:"id"`
	Query           string `json:"query"`
	Subject         string `json:"subject,omitempty"`
	ExpectedSubject string `json:"expected_subject,omitempty"`
	ExpectedText    string `json:"expected_text,omitempty"`
	Category        string `json:"category,omitempty"`
}

// Result records one query's best match and whether it was the expected one.
type Result struct {
	Timestamp        string  `json:"timestamp"`
	TestID           int     `json:"testId"`
	Query            string  `json:"query"`
	Subject          string  `json:"subject,omitempty"`
	Category         string  `json:"category,omitempty"`
	ExpectedSubject  string  `json:"expectedSubject,omitempty"`
	ExpectedText     string  `json:"expectedText,omitempty"`
	Found            bool    `json:"found"`
	MatchedIndex     int     `json:"matchedIndex"`
	MatchedSubject   string  `json:"matchedSubject,omitempty"`
	MatchedText      string  `json:"matchedText,omitempty"`
	Score            float64 `json:"score"`
	Cosine           float64 `json:"cosine"`
	Boost            float64 `json:"boost"`
	Candidates       int     `json:"candidates"`
	Correct          bool    `json:"correct"`
	RetrievalMs      int64   `json:"retrieval_ms"`
	DeadlineExceeded bool    `json:"deadlineExceeded"`
	Error            string  `json:"error,omitempty"`
}

// CategorySummary counts outcomes within one category.
type CategorySummary struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// Summary aggregates a suite run.
type Summary struct {
	Total      int                        `json:"total"`
	Found      int                        `json:"found"`
	Correct    int                        `json:"correct"`
	Errors     int                        `json:"errors"`
	Categories map[string]CategorySummary `json:"categories"`
}

// Accuracy is Correct / Total, or 0 for an empty run.
func (s Summary) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}
