/*
Package factory provides JSON to Go conversion of reference data.

PURPOSE:

	Converts JSON legal-rule tables and vacancy-group definitions into
	tempcontract types. Statutes differ between jurisdictions, so the term
	table is configuration, not code.

JSON SCHEMA (legal rules):

	[
	  {
	    "id": "substitute-teacher",
	    "label": "Substitute teacher",
	    "max_days": 730,
	    "law_reference": "Lei nº 8.745/1993",
	    "article_reference": "art. 4º, parágrafo único, I"
	  }
	]

JSON SCHEMA (vacancy groups):

	[
	  {
	    "id": "vg-prof-01",
	    "code": "PROF-001",
	    "legal_basis": "substitute-teacher",
	    "slot_count": 3,
	    "waiting_list_id": "wl-2024-prof"
	  }
	]

	max_term_days may be omitted; it then comes from the legal basis.

VALIDATION:

	Struct tags are checked with go-playground/validator. Failures surface
	as generic.ValidationError naming the JSON field.

SEE ALSO:
  - tempcontract/rules.go: built-in table and RuleIndex
  - configs/legal_rules.json: shipped table
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/tempcontract"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type LegalRuleJSON struct {
	ID               string `json:"id" validate:"required"`
	Label            string `json:"label" validate:"required"`
	MaxDays          int    `json:"max_days" validate:"required,gt=0"`
	LawReference     string `json:"law_reference"`
	ArticleReference string `json:"article_reference"`
}

type VacancyGroupJSON struct {
	ID            string `json:"id" validate:"required"`
	Code          string `json:"code" validate:"required"`
	LegalBasis    string `json:"legal_basis" validate:"required_without=MaxTermDays"`
	MaxTermDays   int    `json:"max_term_days,omitempty" validate:"gte=0"`
	SlotCount     int    `json:"slot_count" validate:"required,gte=1"`
	WaitingListID string `json:"waiting_list_id"`
	Description   string `json:"description,omitempty"`
}

// =============================================================================
// VALIDATION
// =============================================================================

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateStruct checks validate tags and reports the first failure as a
// generic.ValidationError keyed by JSON field name.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &generic.ValidationError{Field: fe.Field(), Message: describe(fe)}
	}
	return fmt.Errorf("validation: %w", err)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "required_without":
		return "required when " + toSnake(fe.Param()) + " is not set"
	case "gt", "gte", "lt", "lte", "min", "max":
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "invalid (" + fe.Tag() + ")"
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// =============================================================================
// LEGAL RULES
// =============================================================================

// ParseLegalRules parses a JSON rule table. IDs must be unique.
func ParseLegalRules(data []byte) ([]tempcontract.LegalTermRule, error) {
	var items []LegalRuleJSON
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse legal rules JSON: %w", err)
	}

	seen := make(map[string]bool, len(items))
	rules := make([]tempcontract.LegalTermRule, 0, len(items))
	for i, item := range items {
		if err := ValidateStruct(item); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("rule %d: %w", i, &generic.ValidationError{Field: "id", Message: fmt.Sprintf("duplicate %q", item.ID)})
		}
		seen[item.ID] = true
		rules = append(rules, item.toRule())
	}
	return rules, nil
}

// LoadLegalRules reads a rule table from path. An empty path yields the
// built-in table.
func LoadLegalRules(path string) ([]tempcontract.LegalTermRule, error) {
	if path == "" {
		return tempcontract.DefaultLegalTermRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read legal rules: %w", err)
	}
	return ParseLegalRules(data)
}

func (j LegalRuleJSON) toRule() tempcontract.LegalTermRule {
	return tempcontract.LegalTermRule{
		ID:               generic.RuleID(j.ID),
		Label:            j.Label,
		MaxDays:          j.MaxDays,
		LawReference:     j.LawReference,
		ArticleReference: j.ArticleReference,
	}
}

// LegalRuleToJSON is the inverse of the parser, for API responses.
func LegalRuleToJSON(r tempcontract.LegalTermRule) LegalRuleJSON {
	return LegalRuleJSON{
		ID:               string(r.ID),
		Label:            r.Label,
		MaxDays:          r.MaxDays,
		LawReference:     r.LawReference,
		ArticleReference: r.ArticleReference,
	}
}

// =============================================================================
// VACANCY GROUPS
// =============================================================================

// ParseVacancyGroups parses group definitions and resolves missing ceilings
// from rules.
func ParseVacancyGroups(data []byte, rules tempcontract.RuleIndex) ([]tempcontract.VacancyGroup, error) {
	var items []VacancyGroupJSON
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse vacancy groups JSON: %w", err)
	}

	groups := make([]tempcontract.VacancyGroup, 0, len(items))
	for i, item := range items {
		g, err := VacancyGroupFromJSON(item, rules)
		if err != nil {
			return nil, fmt.Errorf("vacancy group %d: %w", i, err)
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// VacancyGroupFromJSON validates one definition and converts it.
func VacancyGroupFromJSON(j VacancyGroupJSON, rules tempcontract.RuleIndex) (tempcontract.VacancyGroup, error) {
	if err := ValidateStruct(j); err != nil {
		return tempcontract.VacancyGroup{}, err
	}
	g, err := rules.ResolveMaxTerm(tempcontract.VacancyGroup{
		ID:            generic.VacancyGroupID(j.ID),
		Code:          strings.TrimSpace(j.Code),
		LegalBasis:    generic.RuleID(j.LegalBasis),
		MaxTermDays:   j.MaxTermDays,
		SlotCount:     j.SlotCount,
		WaitingListID: generic.WaitingListID(j.WaitingListID),
		Description:   j.Description,
	})
	if err != nil {
		return tempcontract.VacancyGroup{}, err
	}
	return g, g.Validate()
}
