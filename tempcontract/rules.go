/*
rules.go - Statutory maximum-term table

PURPOSE:

	Reference data mapping each legal basis for temporary hiring to the
	maximum cumulative days one slot may be occupied. The table ships with
	sensible defaults and can be replaced by a JSON file (factory package).

CUSTOMIZATION:

	Municipal and state statutes vary. Deployments load their own table:

	  rules, err := factory.ParseLegalRules(data)

SEE ALSO:
  - factory/factory.go: JSON loading and validation
  - service/service.go: resolves a group's MaxTermDays from its legal basis
*/
package tempcontract

import (
	"fmt"

	"github.com/warp/slot-engine/generic"
)

const lawTemporaryHiring = "Lei nº 8.745/1993"

// DefaultLegalTermRules returns the built-in table.
func DefaultLegalTermRules() []LegalTermRule {
	return []LegalTermRule{
		{ID: "calamity", Label: "Public calamity", MaxDays: 180, LawReference: lawTemporaryHiring, ArticleReference: "art. 4º, I"},
		{ID: "health-emergency", Label: "Public health emergency", MaxDays: 365, LawReference: lawTemporaryHiring, ArticleReference: "art. 4º, II"},
		{ID: "census", Label: "Census and statistical research", MaxDays: 1095, LawReference: lawTemporaryHiring, ArticleReference: "art. 4º, III"},
		{ID: "substitute-teacher", Label: "Substitute teacher", MaxDays: 730, LawReference: lawTemporaryHiring, ArticleReference: "art. 4º, parágrafo único, I"},
		{ID: "technical-specialist", Label: "Technical specialist", MaxDays: 1460, LawReference: lawTemporaryHiring, ArticleReference: "art. 4º, IV"},
	}
}

// RuleIndex keys a rule table by ID.
type RuleIndex map[generic.RuleID]LegalTermRule

// IndexRules builds a RuleIndex. Later duplicates win.
func IndexRules(rules []LegalTermRule) RuleIndex {
	idx := make(RuleIndex, len(rules))
	for _, r := range rules {
		idx[r.ID] = r
	}
	return idx
}

// Lookup returns the rule for a legal basis.
func (idx RuleIndex) Lookup(basis generic.RuleID) (LegalTermRule, error) {
	r, ok := idx[basis]
	if !ok {
		return LegalTermRule{}, &generic.NotFoundError{Kind: "legal term rule", ID: string(basis)}
	}
	return r, nil
}

// ResolveMaxTerm fills MaxTermDays from the group's legal basis when unset.
// A declared basis must exist in the table, and an explicit ceiling may not
// exceed the statutory one. Without a basis the explicit ceiling stands.
func (idx RuleIndex) ResolveMaxTerm(g VacancyGroup) (VacancyGroup, error) {
	if g.LegalBasis == "" {
		return g, nil
	}
	r, err := idx.Lookup(g.LegalBasis)
	if err != nil {
		return VacancyGroup{}, err
	}
	if g.MaxTermDays > r.MaxDays {
		return VacancyGroup{}, &generic.ValidationError{
			Field:   "max_term_days",
			Message: fmt.Sprintf("%d exceeds the %d days allowed by %s", g.MaxTermDays, r.MaxDays, r.ID),
		}
	}
	if g.MaxTermDays <= 0 {
		g.MaxTermDays = r.MaxDays
	}
	return g, nil
}
