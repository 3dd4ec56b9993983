package rag

import (
	"context"
	"fmt"
	"strings"

	"lead_server/core/domain"
	"lead_server/core/port/out"
	"lead_server/pkg/logger"
)

// knownProducts are the product keywords recognized when explaining why a
// historical example matched.
var knownProducts = []string{
	"probiotic", "protein", "vitamin", "electrolyte", "greens",
	"collagen", "omega", "creatine", "pre-workout", "multivitamin",
}

// HistoricalMatch is a retrieved example with a human-readable rationale for
// why it is relevant to the current inquiry.
type HistoricalMatch struct {
	Example    *domain.HistoricalExample `json:"example"`
	Similarity float64                   `json:"similarity"`
	Rationale  string                    `json:"rationale"`
}

// HistoricalRetriever finds past inquiry/response pairs similar to a new
// inquiry. Like the chunk retriever it degrades to empty results on failure.
type HistoricalRetriever struct {
	embedder      out.EmbeddingProvider
	store         ExampleStore
	topK          int
	minSimilarity float64
}

// NewHistoricalRetriever creates a historical example retriever.
func NewHistoricalRetriever(embedder out.EmbeddingProvider, store ExampleStore, topK int, minSimilarity float64) *HistoricalRetriever {
	if topK <= 0 {
		topK = 3
	}
	if minSimilarity <= 0 {
		minSimilarity = 0.6
	}
	return &HistoricalRetriever{
		embedder:      embedder,
		store:         store,
		topK:          topK,
		minSimilarity: minSimilarity,
	}
}

// FindSimilar retrieves the most similar historical examples for a lead.
// Results below the similarity floor are dropped after ranking, so fewer
// than topK matches can come back.
func (r *HistoricalRetriever) FindSimilar(ctx context.Context, lead *domain.Lead) []*HistoricalMatch {
	query := BuildExampleQuery(lead)
	if query == "" {
		logger.Warn("could not build historical query from lead %d", lead.ID)
		return nil
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		logger.WithError(err).Error("failed to embed historical query")
		return nil
	}

	scored, err := r.store.Search(ctx, embedding, r.topK)
	if err != nil {
		logger.WithError(err).Error("historical example search failed")
		return nil
	}

	var matches []*HistoricalMatch
	for _, s := range scored {
		if s.Similarity < r.minSimilarity {
			continue
		}
		matches = append(matches, &HistoricalMatch{
			Example:    s.Example,
			Similarity: s.Similarity,
			Rationale:  matchRationale(s.Example, lead),
		})
	}

	logger.Info("found %d similar historical responses (similarity >= %.2f)", len(matches), r.minSimilarity)
	return matches
}

// Count reports the number of active examples in the store.
func (r *HistoricalRetriever) Count(ctx context.Context) (int64, error) {
	return r.store.Count(ctx)
}

// BuildExampleQuery assembles the search text for a lead from its structured
// extraction fields, in fixed priority order. Only when no structured data
// exists does the raw body serve as the query.
func BuildExampleQuery(lead *domain.Lead) string {
	var parts []string

	parts = append(parts, lead.ProductTypes...)
	parts = append(parts, lead.DeliveryFormats...)
	parts = append(parts, lead.CertificationsRequested...)

	ingredients := lead.SpecificIngredients
	if len(ingredients) > 3 {
		ingredients = ingredients[:3]
	}
	parts = append(parts, ingredients...)

	if lead.EstimatedQuantity != "" {
		parts = append(parts, lead.EstimatedQuantity)
	}
	if lead.TimelineUrgency != "" {
		parts = append(parts, lead.TimelineUrgency)
	}

	if len(parts) == 0 {
		body := lead.Body
		if len(body) > 500 {
			body = body[:500]
		}
		if strings.TrimSpace(body) == "" {
			return ""
		}
		parts = append(parts, body)
	}

	return strings.Join(parts, " ")
}

// matchRationale explains the overlap between a historical inquiry and the
// current lead using cheap keyword heuristics.
func matchRationale(example *domain.HistoricalExample, lead *domain.Lead) string {
	exampleBody := strings.ToLower(example.InquiryBody)
	var reasons []string

	common := commonProducts(extractProducts(exampleBody), lead.ProductTypes)
	if len(common) > 0 {
		reasons = append(reasons, "both about "+strings.Join(common, ", "))
	}

	if strings.Contains(exampleBody, "urgent") && lead.TimelineUrgency == "urgent" {
		reasons = append(reasons, "both urgent inquiries")
	}

	if strings.Contains(exampleBody, "organic") && containsString(lead.CertificationsRequested, "organic") {
		reasons = append(reasons, "both request organic certification")
	}

	if strings.Contains(exampleBody, "moq") && strings.Contains(strings.ToLower(lead.Body), "quantity") {
		reasons = append(reasons, "both ask about minimum order quantities")
	}

	if len(reasons) == 0 {
		return "Similar inquiry pattern"
	}
	return "Similar: " + strings.Join(reasons, "; ")
}

// extractProducts returns the known product keywords present in text.
func extractProducts(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, product := range knownProducts {
		if strings.Contains(lower, product) {
			found = append(found, product)
		}
	}
	return found
}

// commonProducts intersects two product lists, preserving the order of the
// first so rationales stay deterministic.
func commonProducts(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, p := range b {
		set[strings.ToLower(p)] = struct{}{}
	}
	var common []string
	for _, p := range a {
		if _, ok := set[p]; ok {
			common = append(common, p)
		}
	}
	return common
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if strings.EqualFold(s, target) {
			return true
		}
	}
	return false
}

const exampleDivider = "═══════════════════════════════════════════════════════════════"
const exampleRule = "───────────────────────────────────────────────────────────────"

// FormatExamplesForAgent renders matches as a prompt block for the drafting
// agent. Inquiry bodies are truncated at 500 characters; responses are
// included in full since they are the material being imitated.
func FormatExamplesForAgent(matches []*HistoricalMatch, maxExamples int) string {
	if len(matches) == 0 {
		return "No similar historical examples found."
	}
	if maxExamples > 0 && len(matches) > maxExamples {
		matches = matches[:maxExamples]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "FOUND %d SIMILAR PAST INQUIRIES WITH YOUR RESPONSES\n\n", len(matches))
	sb.WriteString("Use these examples to understand your writing style and how you handle similar inquiries.\n")
	sb.WriteString("Adapt the tone, structure, and approach while addressing the current inquiry's specific needs.\n")

	for i, match := range matches {
		inquiryBody := match.Example.InquiryBody
		ellipsis := ""
		if len(inquiryBody) > 500 {
			inquiryBody = inquiryBody[:500]
			ellipsis = "..."
		}

		fmt.Fprintf(&sb, "\n%s\nHISTORICAL EXAMPLE #%d (Similarity: %.2f)\n%s\n%s\n\n",
			exampleDivider, i+1, match.Similarity, match.Rationale, exampleRule)
		fmt.Fprintf(&sb, "THEIR INQUIRY:\nSubject: %s\n\n%s%s\n\n%s\n\n",
			match.Example.InquirySubject, inquiryBody, ellipsis, exampleRule)
		fmt.Fprintf(&sb, "YOUR ACTUAL RESPONSE:\n\n%s\n%s\n",
			match.Example.ResponseBody, exampleDivider)
	}

	return sb.String()
}
