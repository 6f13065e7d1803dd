package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRule maps an application event to a recipient and a message
// template. Rules are configured per event key, highest priority first.
type NotificationRule struct {
	ID          int        `json:"id"`
	EventKey    string     `json:"event_key"`
	Recipient   string     `json:"recipient"`
	Template    string     `json:"template"`
	Priority    int        `json:"priority"`
	IsActive    bool       `json:"is_active"`
	EffectiveTo *time.Time `json:"effective_to,omitempty"`
}

// Notification is one dispatched message, stored for delivery by the
// (external) mail/ERP bridge.
type Notification struct {
	ID        int       `json:"id"`
	EventKey  string    `json:"event_key"`
	Recipient string    `json:"recipient"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// RuleEngine dispatches application events to configured recipients.
// It replaces hardcoded notification targets in domain services.
type RuleEngine interface {
	// ResolveRules returns the active rules for an event key, highest
	// priority first.
	ResolveRules(ctx context.Context, eventKey string) ([]NotificationRule, error)

	// Dispatch renders every matching rule's template with the payload
	// fields and appends one notification row per rule. An event with no
	// configured rules dispatches nothing and is not an error.
	Dispatch(ctx context.Context, eventKey string, payload map[string]string) ([]Notification, error)
}

type ruleEngine struct {
	pool *pgxpool.Pool
}

// NewRuleEngine constructs a RuleEngine backed by the notification_rules table.
func NewRuleEngine(pool *pgxpool.Pool) RuleEngine {
	return &ruleEngine{pool: pool}
}

func (r *ruleEngine) ResolveRules(ctx context.Context, eventKey string) ([]NotificationRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_key, recipient, template, priority, is_active, effective_to
		FROM notification_rules
		WHERE event_key = $1
		  AND is_active = true
		  AND (effective_to IS NULL OR effective_to >= CURRENT_DATE)
		ORDER BY priority DESC, id
	`, eventKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rules for event %q: %w", eventKey, err)
	}
	defer rows.Close()

	var rules []NotificationRule
	for rows.Next() {
		var rule NotificationRule
		if err := rows.Scan(&rule.ID, &rule.EventKey, &rule.Recipient, &rule.Template,
			&rule.Priority, &rule.IsActive, &rule.EffectiveTo); err != nil {
			return nil, fmt.Errorf("failed to scan notification rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *ruleEngine) Dispatch(ctx context.Context, eventKey string, payload map[string]string) ([]Notification, error) {
	rules, err := r.ResolveRules(ctx, eventKey)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}

	var out []Notification
	for _, rule := range rules {
		n := Notification{
			EventKey:  eventKey,
			Recipient: rule.Recipient,
			Message:   RenderTemplate(rule.Template, payload),
		}
		err := r.pool.QueryRow(ctx, `
			INSERT INTO notifications (event_key, recipient, message)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, n.EventKey, n.Recipient, n.Message).Scan(&n.ID, &n.CreatedAt)
		if err != nil {
			return out, fmt.Errorf("failed to store notification for %s: %w", rule.Recipient, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// RenderTemplate substitutes {key} placeholders with payload values.
// Unknown placeholders are left in place so misconfigured templates stay
// visible instead of silently losing fields. Substitution runs in sorted
// key order to keep output deterministic.
func RenderTemplate(template string, payload map[string]string) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := template
	for _, k := range keys {
		out = strings.ReplaceAll(out, "{"+k+"}", payload[k])
	}
	return out
}
