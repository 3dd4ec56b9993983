package domain

import (
	"strings"
	"time"
)

// HistoricalExample pairs a past inquiry with the human-authored response it
// received. The embedding is computed once, at creation, from the inquiry
// text; it is never recomputed.
type HistoricalExample struct {
	ID            int64  `json:"id"`
	InquiryLeadID *int64 `json:"inquiry_lead_id,omitempty"`

	InquirySubject     string `json:"inquiry_subject"`
	InquiryBody        string `json:"inquiry_body"`
	InquirySenderEmail string `json:"inquiry_sender_email"`

	ResponseSubject string     `json:"response_subject"`
	ResponseBody    string     `json:"response_body"`
	ResponseDate    *time.Time `json:"response_date,omitempty"`

	Embedding []float32      `json:"-"`
	Traits    ResponseTraits `json:"traits"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
}

// ResponseTraits are derived characteristics of a human response, captured at
// example creation time for style analysis.
type ResponseTraits struct {
	WordCount      int    `json:"word_count"`
	SentenceCount  int    `json:"sentence_count"`
	ParagraphCount int    `json:"paragraph_count"`
	QuestionCount  int    `json:"question_count"`
	HasCallCTA     bool   `json:"has_call_cta"`
	HasEmailCTA    bool   `json:"has_email_cta"`
	LengthCategory string `json:"length_category"` // short, medium, long
}

var (
	callCTAPhrases  = []string{"call", "phone", "speak", "discuss"}
	emailCTAPhrases = []string{"reply", "let me know", "send", "email"}
)

// AnalyzeResponseTraits derives ResponseTraits from a response body.
func AnalyzeResponseTraits(responseBody string) ResponseTraits {
	words := strings.Fields(responseBody)
	lower := strings.ToLower(responseBody)

	traits := ResponseTraits{
		WordCount:      len(words),
		SentenceCount:  strings.Count(responseBody, ".") + 1,
		ParagraphCount: len(strings.Split(responseBody, "\n\n")),
		QuestionCount:  strings.Count(responseBody, "?"),
	}

	for _, phrase := range callCTAPhrases {
		if strings.Contains(lower, phrase) {
			traits.HasCallCTA = true
			break
		}
	}
	for _, phrase := range emailCTAPhrases {
		if strings.Contains(lower, phrase) {
			traits.HasEmailCTA = true
			break
		}
	}

	switch {
	case traits.WordCount < 100:
		traits.LengthCategory = "short"
	case traits.WordCount < 200:
		traits.LengthCategory = "medium"
	default:
		traits.LengthCategory = "long"
	}

	return traits
}
