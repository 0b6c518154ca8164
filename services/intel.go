package services

import (
	"context"
	"fmt"
	"strings"

	"agent-optimus/metrics"
	"agent-optimus/models"
	"agent-optimus/storage"
	"agent-optimus/utils"
)

const (
	TagCashBuyer     = "cash-buyer"
	TagBondApplicant = "bond-applicant"
	TagHotLead       = "hot-lead"
)

type keywordRule struct {
	tag      string
	keywords []string
}

var intelRules = []keywordRule{
	{tag: TagCashBuyer, keywords: []string{"cash"}},
	{tag: TagBondApplicant, keywords: []string{"bond", "pre-approved"}},
	{tag: TagHotLead, keywords: []string{"asap", "urgent", "soon"}},
}

// ScanTags returns the tags whose keywords appear anywhere in the
// conversation, matched case-insensitively as substrings.
func ScanTags(conversation []models.Message) []string {
	var b strings.Builder
	for _, m := range conversation {
		b.WriteString(strings.ToLower(m.Content))
		b.WriteByte('\n')
	}
	text := b.String()

	var tags []string
	for _, rule := range intelRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}
	return tags
}

// TagUpdate is the write the reactor wants applied to a lead.
type TagUpdate struct {
	LeadID string
	Added  []string
}

// IntelReactor tags leads from keywords in their conversation.
type IntelReactor struct {
	leads  storage.LeadStore
	logger *utils.Logger
}

func NewIntelReactor(leads storage.LeadStore, logger *utils.Logger) *IntelReactor {
	return &IntelReactor{leads: leads, logger: logger}
}

// React decides what to write for one lead change. It returns false unless
// the conversation grew and the scan found a tag the lead does not have, so
// the reactor's own tag write never triggers another one.
func (r *IntelReactor) React(before, after *models.Lead) (*TagUpdate, bool) {
	if after == nil {
		return nil, false
	}
	beforeLen := 0
	if before != nil {
		beforeLen = len(before.Conversation)
	}
	if len(after.Conversation) <= beforeLen {
		return nil, false
	}

	var added []string
	for _, tag := range ScanTags(after.Conversation) {
		if !after.HasTag(tag) {
			added = append(added, tag)
		}
	}
	if len(added) == 0 {
		return nil, false
	}
	return &TagUpdate{LeadID: after.ID, Added: added}, true
}

// Handle applies React's decision to the lead store.
func (r *IntelReactor) Handle(ctx context.Context, change models.LeadChange) error {
	update, ok := r.React(change.Before, change.After)
	if !ok {
		metrics.ReactorEvents.WithLabelValues("noop").Inc()
		return nil
	}
	if err := r.leads.AddIntelTags(ctx, update.LeadID, update.Added); err != nil {
		metrics.ReactorEvents.WithLabelValues("error").Inc()
		return fmt.Errorf("intel: tag lead %s: %w", update.LeadID, err)
	}

	metrics.ReactorEvents.WithLabelValues("tagged").Inc()
	for _, tag := range update.Added {
		metrics.IntelTagsAdded.WithLabelValues(tag).Inc()
	}
	r.logger.Info("[intel] Lead %s tagged %s", update.LeadID, strings.Join(update.Added, ", "))
	return nil
}

// Observe adapts Handle to storage.LeadChangeFunc, logging failures.
func (r *IntelReactor) Observe(ctx context.Context, change models.LeadChange) {
	if err := r.Handle(ctx, change); err != nil {
		r.logger.Error("[intel] %v", err)
	}
}
