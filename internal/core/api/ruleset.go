package api

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	"github.com/Oyestore/receivables-sub031/internal/types"
)

// RuleLister lists a tenant's stored rules. *db.RuleStore satisfies it.
type RuleLister interface {
	ListRules(ctx context.Context, tenantID types.TenantID) ([]types.StoredRule, error)
}

// RuleSet is a tenant's rules plus a content-addressable ETag.
type RuleSet struct {
	TenantID types.TenantID     `json:"tenantId"`
	ETag     string             `json:"etag"`
	Rules    []types.StoredRule `json:"rules"`
}

// LoadRuleSet returns every rule for tenantID.
// Callers holding a matching ETag can skip reloading the rule bodies.
func LoadRuleSet(ctx context.Context, lister RuleLister, tenantID types.TenantID) (*RuleSet, error) {
	rules, err := lister.ListRules(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule set for %s: %w", tenantID, err)
	}
	return &RuleSet{
		TenantID: tenantID,
		ETag:     ComputeETag(rules),
		Rules:    rules,
	}, nil
}

// ComputeETag hashes sorted rule_id:created_at pairs.
// Same rules always produce the same ETag regardless of order.
func ComputeETag(rules []types.StoredRule) string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, string(r.RuleID)+":"+r.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
