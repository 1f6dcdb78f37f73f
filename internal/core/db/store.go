package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Oyestore/receivables-sub031/internal/types"
)

// ruleRow mirrors the rules table.
type ruleRow struct {
	RuleID     string         `db:"rule_id"`
	TenantID   string         `db:"tenant_id"`
	Name       string         `db:"name"`
	Kind       string         `db:"kind"`
	Conditions sql.NullString `db:"conditions"`
	Snippet    sql.NullString `db:"snippet"`
	CreatedAt  time.Time      `db:"created_at"`
}

// RuleStore reads and writes tenant rules. Every read is tenant-scoped.
type RuleStore struct {
	queries *Queries
}

// NewRuleStore creates a RuleStore over loaded queries.
func NewRuleStore(queries *Queries) *RuleStore {
	return &RuleStore{queries: queries}
}

// GetRule returns the tenant's rule or types.ErrRuleNotFound.
// A rule ID owned by another tenant is reported as not found.
func (s *RuleStore) GetRule(ctx context.Context, tenantID types.TenantID, ruleID types.RuleID) (*types.StoredRule, error) {
	var row ruleRow
	err := s.queries.GetContext(ctx, "get-rule", &row, string(tenantID), string(ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrRuleNotFound, ruleID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rule %s: %w", ruleID, err)
	}
	return row.toStored()
}

// ListRules returns the tenant's rules ordered by creation time.
func (s *RuleStore) ListRules(ctx context.Context, tenantID types.TenantID) ([]types.StoredRule, error) {
	var rows []ruleRow
	if err := s.queries.SelectContext(ctx, "list-rules", &rows, string(tenantID)); err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	out := make([]types.StoredRule, 0, len(rows))
	for _, row := range rows {
		rule, err := row.toStored()
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	return out, nil
}

// InsertRule stores rule, assigning RuleID and CreatedAt when unset.
func (s *RuleStore) InsertRule(ctx context.Context, rule *types.StoredRule) error {
	if rule.TenantID == "" {
		return fmt.Errorf("%w: tenant is required", types.ErrMalformedRule)
	}
	if rule.Name == "" {
		return fmt.Errorf("%w: name is required", types.ErrMalformedRule)
	}

	var conditions, snippet sql.NullString
	switch rule.Kind {
	case types.RuleKindConditions:
		data, err := json.Marshal(rule.Conditions)
		if err != nil {
			return fmt.Errorf("failed to encode conditions: %w", err)
		}
		conditions = sql.NullString{String: string(data), Valid: true}
	case types.RuleKindCustom:
		snippet = sql.NullString{String: rule.Snippet, Valid: true}
	default:
		return fmt.Errorf("%w: %q", types.ErrUnknownRuleKind, rule.Kind)
	}

	if rule.RuleID == "" {
		rule.RuleID = types.NewRuleID()
	}
	if rule.CreatedAt.IsZero() {
		// UUIDv7 IDs carry their creation time
		rule.CreatedAt = types.RuleIDTime(rule.RuleID).UTC()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	_, err := s.queries.ExecContext(ctx, "insert-rule",
		string(rule.RuleID), string(rule.TenantID), rule.Name, string(rule.Kind),
		conditions, snippet, rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule %s: %w", rule.Name, err)
	}
	return nil
}

// DeleteRule removes the tenant's rule or returns types.ErrRuleNotFound.
func (s *RuleStore) DeleteRule(ctx context.Context, tenantID types.TenantID, ruleID types.RuleID) error {
	res, err := s.queries.ExecContext(ctx, "delete-rule", string(tenantID), string(ruleID))
	if err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", ruleID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", ruleID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", types.ErrRuleNotFound, ruleID)
	}
	return nil
}

// toStored decodes a row. Conditions use decode-and-default, so only
// syntactically invalid JSON fails.
func (r ruleRow) toStored() (*types.StoredRule, error) {
	rule := &types.StoredRule{
		RuleID:    types.RuleID(r.RuleID),
		TenantID:  types.TenantID(r.TenantID),
		Name:      r.Name,
		Kind:      types.RuleKind(r.Kind),
		Snippet:   r.Snippet.String,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if r.Conditions.Valid {
		conds, err := types.DecodeConditionsJSON([]byte(r.Conditions.String))
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w: %v", r.RuleID, types.ErrMalformedRule, err)
		}
		rule.Conditions = conds
	}
	return rule, nil
}
