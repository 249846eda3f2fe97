package config

import (
	"fmt"

	"github.com/shopspring/decimal"

	"chainwatch/internal/alerting"
	"chainwatch/internal/explorer"
)

// EntryError reports one rejected query or alert definition. Rejections are
// collected, not fatal: the remaining valid entries still load.
type EntryError struct {
	Kind string // "query" or "alert"
	ID   string
	Err  error
}

func (e EntryError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.ID, e.Err)
}

// ResolveDefinitions turns the raw config entries into typed definitions,
// dropping malformed entries and alerts that reference unknown queries.
func (c *Config) ResolveDefinitions() ([]explorer.QueryDefinition, []alerting.Definition, []EntryError) {
	var errs []EntryError

	queries := make([]explorer.QueryDefinition, 0, len(c.Queries))
	seen := make(map[string]bool, len(c.Queries))
	for _, q := range c.Queries {
		if err := c.validateQuery(q, seen); err != nil {
			errs = append(errs, EntryError{Kind: "query", ID: q.ID, Err: err})
			continue
		}
		seen[q.ID] = true
		queries = append(queries, explorer.QueryDefinition{
			ID:        q.ID,
			ChainName: q.ChainName,
			Params:    q.Params,
		})
	}

	alerts := make([]alerting.Definition, 0, len(c.Alerts))
	seenAlerts := make(map[string]bool, len(c.Alerts))
	for _, a := range c.Alerts {
		def, err := c.resolveAlert(a, seen, seenAlerts)
		if err != nil {
			errs = append(errs, EntryError{Kind: "alert", ID: a.ID, Err: err})
			continue
		}
		seenAlerts[a.ID] = true
		alerts = append(alerts, def)
	}

	return queries, alerts, errs
}

func (c *Config) validateQuery(q QueryConfig, seen map[string]bool) error {
	if q.ID == "" {
		return fmt.Errorf("missing id")
	}
	if seen[q.ID] {
		return fmt.Errorf("duplicate query id")
	}
	if q.ChainName == "" {
		return fmt.Errorf("missing chain_name")
	}
	if _, ok := c.Chains[q.ChainName]; !ok {
		return fmt.Errorf("unknown chain %q", q.ChainName)
	}
	if len(q.Params) == 0 {
		return fmt.Errorf("missing params")
	}
	return nil
}

func (c *Config) resolveAlert(a AlertConfig, queries, seen map[string]bool) (alerting.Definition, error) {
	if a.ID == "" {
		return alerting.Definition{}, fmt.Errorf("missing id")
	}
	if seen[a.ID] {
		return alerting.Definition{}, fmt.Errorf("duplicate alert id")
	}
	if a.QueryID == "" {
		return alerting.Definition{}, fmt.Errorf("missing query_id")
	}
	if !queries[a.QueryID] {
		return alerting.Definition{}, fmt.Errorf("references unknown query %q", a.QueryID)
	}
	if a.RefQueryID != "" && !queries[a.RefQueryID] {
		return alerting.Definition{}, fmt.Errorf("references unknown ref query %q", a.RefQueryID)
	}
	typ, err := alerting.ParseType(a.Type)
	if err != nil {
		return alerting.Definition{}, err
	}
	op, err := alerting.ParseOperator(a.Operator)
	if err != nil {
		return alerting.Definition{}, err
	}
	urgency, err := alerting.ParseUrgency(a.Urgency)
	if err != nil {
		return alerting.Definition{}, err
	}
	if a.CooldownMinutes < 0 {
		return alerting.Definition{}, fmt.Errorf("cooldown_minutes cannot be negative")
	}

	return alerting.Definition{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		QueryID:     a.QueryID,
		RefQueryID:  a.RefQueryID,
		Type:        typ,
		Operator:    op,
		Threshold:   decimal.NewFromFloat(a.Threshold),
		Urgency:     urgency,
		Cooldown:    alerting.CooldownFromMinutes(a.CooldownMinutes),
	}, nil
}
