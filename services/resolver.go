package services

import (
	"errors"
	"fmt"
	"strings"

	"collection-kpi/config"
	"collection-kpi/models"
	"collection-kpi/utils"
)

// ErrColumnUnresolved is matched by every *UnresolvedColumnError.
var ErrColumnUnresolved = errors.New("column unresolved")

// UnresolvedColumnError reports that none of a field's candidate headers, nor
// its override, exists in the table.
type UnresolvedColumnError struct {
	Field      models.Field
	Candidates []string
}

func (e *UnresolvedColumnError) Error() string {
	cands := "<none>"
	if len(e.Candidates) > 0 {
		cands = strings.Join(e.Candidates, ", ")
	}
	return fmt.Sprintf("%s: %s (tried %s)", ErrColumnUnresolved, e.Field, cands)
}

func (e *UnresolvedColumnError) Unwrap() error { return ErrColumnUnresolved }

// Resolver maps loosely named sheet headers to semantic fields.
type Resolver struct {
	cfg    config.ColumnConfig
	logger *utils.Logger
}

// NewResolver creates a Resolver over the given column configuration.
func NewResolver(cfg config.ColumnConfig, logger *utils.Logger) *Resolver {
	return &Resolver{cfg: cfg, logger: logger}
}

// Resolve returns the header for field. An override wins when present;
// otherwise the first candidate found among the trimmed headers is used.
func (r *Resolver) Resolve(headers []string, field models.Field) (string, error) {
	present := make(map[string]string, len(headers))
	for _, h := range headers {
		trimmed := strings.TrimSpace(h)
		if _, dup := present[trimmed]; !dup {
			present[trimmed] = trimmed
		}
	}

	if override := strings.TrimSpace(r.cfg.Overrides[field]); override != "" {
		if h, ok := present[override]; ok {
			return h, nil
		}
		return "", &UnresolvedColumnError{Field: field, Candidates: []string{override}}
	}

	candidates := r.cfg.Candidates[field]
	for _, c := range candidates {
		if h, ok := present[strings.TrimSpace(c)]; ok && c != "" {
			return h, nil
		}
	}
	return "", &UnresolvedColumnError{Field: field, Candidates: candidates}
}

// ResolveAll resolves every known field. Fields that cannot be resolved are
// returned separately; they only fail the computations that need them.
func (r *Resolver) ResolveAll(headers []string) (models.ColumnMap, []models.Field) {
	cols := make(models.ColumnMap, len(models.AllFields))
	var unresolved []models.Field

	for _, f := range models.AllFields {
		h, err := r.Resolve(headers, f)
		if err != nil {
			unresolved = append(unresolved, f)
			if r.logger != nil {
				r.logger.Debug("[resolver] %v", err)
			}
			continue
		}
		cols[f] = h
	}

	if r.logger != nil && len(unresolved) > 0 {
		names := make([]string, len(unresolved))
		for i, f := range unresolved {
			names[i] = string(f)
		}
		r.logger.Warn("[resolver] %d field(s) not found in sheet: %s", len(unresolved), strings.Join(names, ", "))
	}
	return cols, unresolved
}
