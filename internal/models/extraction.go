package models

// RequirementCategory groups the questions an RFP asks under one heading.
type RequirementCategory struct {
	CategoryName string   `json:"category_name"`
	Questions    []string `json:"questions"`
}

// ExtractionResult is the outcome of one extraction prompt run against one
// document. When the model call failed, Error holds the description and the
// data fields are empty.
type ExtractionResult struct {
	Document     string                `json:"document"`
	Prompt       string                `json:"prompt"`
	Fields       map[string]any        `json:"fields,omitempty"`
	Requirements []RequirementCategory `json:"categorized_requirements,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// Failed reports whether the result carries an error marker instead of data.
func (r ExtractionResult) Failed() bool {
	return r.Error != ""
}

// StringField returns a top-level string value extracted by the model.
func (r ExtractionResult) StringField(key string) string {
	if r.Fields == nil {
		return ""
	}
	s, _ := r.Fields[key].(string)
	return s
}

// SectionText is the generated narrative for one output section.
type SectionText struct {
	Title   string `json:"title"`
	Text    string `json:"text"`
	Failure string `json:"failure,omitempty"`
}
