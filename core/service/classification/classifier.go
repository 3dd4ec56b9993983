// Package classification assigns inbound emails to exactly one of four
// categories: new_inquiry, reply_to_us, duplicate, follow_up_inquiry.
package classification

import (
	"context"
	"time"

	"lead_server/core/agent/rag"
	"lead_server/core/domain"
	"lead_server/core/port/out"
	"lead_server/pkg/logger"
)

// comparisonLimit caps the body text used for similarity comparison.
const comparisonLimit = 1000

// Config holds the classifier thresholds and lookback windows.
type Config struct {
	SimilarityThreshold float64
	DuplicateLookback   time.Duration
	FollowUpLookback    time.Duration
	DuplicateCandidates int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.85,
		DuplicateLookback:   30 * 24 * time.Hour,
		FollowUpLookback:    90 * 24 * time.Hour,
		DuplicateCandidates: 100,
	}
}

// Classifier runs the fixed-priority classification checks. It is stateless
// across calls: each classification is a function of the message plus a
// read-only snapshot of prior messages and leads. Checks that fail their
// reads degrade to "no match" so a storage hiccup yields a conservative
// new_inquiry rather than an error.
//
// Two concurrent messages from the same sender can race on the follow-up
// check's "most recent lead" read; callers needing determinism must
// serialize classification per sender address.
type Classifier struct {
	embedder out.EmbeddingProvider
	leads    out.LeadRepository
	messages out.MessageRepository
	cfg      Config
	now      func() time.Time
}

// NewClassifier creates a classifier with explicit dependencies.
func NewClassifier(embedder out.EmbeddingProvider, leads out.LeadRepository, messages out.MessageRepository, cfg Config) *Classifier {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.85
	}
	if cfg.DuplicateLookback <= 0 {
		cfg.DuplicateLookback = 30 * 24 * time.Hour
	}
	if cfg.FollowUpLookback <= 0 {
		cfg.FollowUpLookback = 90 * 24 * time.Hour
	}
	if cfg.DuplicateCandidates <= 0 {
		cfg.DuplicateCandidates = 100
	}
	return &Classifier{
		embedder: embedder,
		leads:    leads,
		messages: messages,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (c *Classifier) WithClock(now func() time.Time) *Classifier {
	c.now = now
	return c
}

// Classify runs the checks in priority order; the first match wins and later
// checks are never consulted. The default verdict is new_inquiry.
func (c *Classifier) Classify(ctx context.Context, email *domain.InboundEmail) *domain.Classification {
	log := logger.WithFields(map[string]any{
		"message_id": email.MessageID,
		"sender":     email.SenderEmail,
	})
	log.Info("classifying inbound email")

	result := &domain.Classification{Category: domain.CategoryNewInquiry}

	if c.checkReplyToUs(ctx, email, result) {
		log.Info("classified as reply to our message")
		return result
	}

	// The body embedding is computed once here and reused by both similarity
	// checks and by the caller at persistence time.
	queryEmbedding := c.embedBody(ctx, email.Body, result)

	if c.checkDuplicate(ctx, email, queryEmbedding, result) {
		log.WithField("similarity", result.SimilarityScore).Info("classified as duplicate")
		return result
	}

	if c.checkFollowUp(ctx, email, queryEmbedding, result) {
		log.WithField("parent_lead_id", result.ParentLeadID).Info("classified as follow-up inquiry")
		return result
	}

	log.Info("classified as new inquiry")
	return result
}

// checkReplyToUs matches the message's header chain against stored outbound
// messages. A pure key lookup, no similarity involved.
func (c *Classifier) checkReplyToUs(ctx context.Context, email *domain.InboundEmail, result *domain.Classification) bool {
	ids := email.Headers.ReferencedIDs()
	if len(ids) == 0 {
		return false
	}

	outbound, err := c.messages.FindOutboundByMessageIDs(ctx, ids)
	if err != nil {
		logger.WithError(err).Error("reply-to-us lookup failed")
		result.Signals = append(result.Signals, "reply_check_failed")
		return false
	}
	if outbound == nil {
		return false
	}

	result.Category = domain.CategoryReplyToUs
	result.OriginalMessageID = outbound.MessageID
	result.OriginalLeadID = outbound.LeadID
	result.ConversationID = outbound.ConversationID
	result.Signals = append(result.Signals, "header_chain_match")
	return true
}

// checkDuplicate looks for near-identical content from a different sender
// within the lookback window. Forward prefixes on the subject are noted in
// the metadata but content similarity alone decides the match.
func (c *Classifier) checkDuplicate(ctx context.Context, email *domain.InboundEmail, queryEmbedding []float32, result *domain.Classification) bool {
	if queryEmbedding == nil {
		return false
	}

	cutoff := c.now().Add(-c.cfg.DuplicateLookback)
	candidates, err := c.leads.RecentFromOtherSenders(ctx, email.SenderEmail, cutoff, c.cfg.DuplicateCandidates)
	if err != nil {
		logger.WithError(err).Error("duplicate candidate lookup failed")
		result.Signals = append(result.Signals, "duplicate_check_failed")
		return false
	}
	if len(candidates) == 0 {
		return false
	}

	similarities := c.candidateSimilarities(ctx, queryEmbedding, candidates)

	bestIdx := -1
	bestScore := 0.0
	for i, similarity := range similarities {
		if similarity > bestScore {
			bestIdx = i
			bestScore = similarity
		}
	}

	if bestIdx < 0 || bestScore < c.cfg.SimilarityThreshold {
		return false
	}

	original := candidates[bestIdx]
	isForward := email.Headers.IsLikelyForward || domain.IsForwardSubject(email.Subject)

	result.Category = domain.CategoryDuplicate
	result.DuplicateOfLeadID = &original.ID
	result.SimilarityScore = bestScore
	result.IsForward = isForward
	result.Signals = append(result.Signals, "content_similarity_match")
	return true
}

// checkFollowUp looks for a prior non-duplicate lead from the same sender.
// Near-duplicate content from the same sender declines here on the theory
// the duplicate check should own it; since that check is cross-sender only,
// such messages land on new_inquiry. Known ambiguity, kept as-is pending a
// product decision.
func (c *Classifier) checkFollowUp(ctx context.Context, email *domain.InboundEmail, queryEmbedding []float32, result *domain.Classification) bool {
	cutoff := c.now().Add(-c.cfg.FollowUpLookback)
	previous, err := c.leads.LatestFromSender(ctx, email.SenderEmail, cutoff)
	if err != nil {
		logger.WithError(err).Error("follow-up candidate lookup failed")
		result.Signals = append(result.Signals, "followup_check_failed")
		return false
	}
	if previous == nil {
		return false
	}

	if previous.Body != "" && queryEmbedding != nil {
		similarities := c.candidateSimilarities(ctx, queryEmbedding, []*domain.Lead{previous})
		if len(similarities) == 1 && similarities[0] >= c.cfg.SimilarityThreshold {
			result.Signals = append(result.Signals, "same_sender_near_duplicate")
			return false
		}
	}

	days := int(c.now().Sub(previous.ReceivedAt).Hours() / 24)

	result.Category = domain.CategoryFollowUpInquiry
	result.ParentLeadID = &previous.ID
	result.ConversationID = previous.ConversationID
	result.DaysSinceLastContact = days
	result.Signals = append(result.Signals, "prior_sender_lead")
	return true
}

// embedBody embeds the inbound body, truncated for comparison. A provider
// failure disables the similarity checks for this call.
func (c *Classifier) embedBody(ctx context.Context, body string, result *domain.Classification) []float32 {
	text := truncate(body, comparisonLimit)
	if text == "" {
		return nil
	}

	embedding, err := c.embedder.Embed(ctx, text)
	if err != nil {
		logger.WithError(err).Error("failed to embed inbound body")
		result.Signals = append(result.Signals, "embedding_unavailable")
		return nil
	}
	result.BodyEmbedding = embedding
	return embedding
}

// candidateSimilarities scores candidates against the query embedding.
// Stored lead embeddings are reused; only candidates missing one are sent
// to the provider, in a single batched call. A candidate whose embedding
// cannot be obtained scores 0.
func (c *Classifier) candidateSimilarities(ctx context.Context, queryEmbedding []float32, candidates []*domain.Lead) []float64 {
	similarities := make([]float64, len(candidates))

	var missing []int
	for i, lead := range candidates {
		if len(lead.Embedding) > 0 {
			similarities[i] = rag.CosineSimilarity(queryEmbedding, lead.Embedding)
			continue
		}
		if lead.Body != "" {
			missing = append(missing, i)
		}
	}

	if len(missing) == 0 {
		return similarities
	}

	texts := make([]string, len(missing))
	for j, idx := range missing {
		texts[j] = truncate(candidates[idx].Body, comparisonLimit)
	}

	embeddings, err := c.embedder.EmbedMany(ctx, texts)
	if err != nil {
		logger.WithError(err).Error("failed to embed comparison candidates")
		return similarities
	}

	for j, idx := range missing {
		if j < len(embeddings) && embeddings[j] != nil {
			similarities[idx] = rag.CosineSimilarity(queryEmbedding, embeddings[j])
		}
	}
	return similarities
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
