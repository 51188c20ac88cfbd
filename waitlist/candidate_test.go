package waitlist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/slot-engine/generic"
	"github.com/warp/slot-engine/tempcontract"
	"github.com/warp/slot-engine/waitlist"
)

func TestMaskCPF(t *testing.T) {
	assert.Equal(t, waitlist.MaskedCPF("***.456.789-**"), waitlist.MaskCPF("123.456.789-09"))
	assert.Equal(t, waitlist.MaskedCPF("***.456.789-**"), waitlist.MaskCPF("12345678909"))
	assert.Equal(t, waitlist.MaskedCPF("***.***.***-**"), waitlist.MaskCPF("1234"))
	assert.False(t, waitlist.MaskCPF("").Known())
}

func TestMaskCPF_Idempotent(t *testing.T) {
	for _, raw := range []string{"123.456.789-09", "98765432100", "abc", ""} {
		once := waitlist.MaskCPF(raw)
		assert.Equal(t, once, waitlist.MaskCPF(string(once)), raw)
	}
}

func TestNewCandidate(t *testing.T) {
	// GIVEN: A raw candidate record with an unmasked CPF
	// WHEN: Admitting it
	// THEN: The CPF is masked, the category parsed, status Eligible

	c, err := waitlist.NewCandidate(waitlist.CandidateInput{
		ID:            "c-1",
		WaitingListID: "wl-1",
		CPF:           "123.456.789-09",
		Name:          "  Maria Souza ",
		QuotaCategory: "pcd",
		Rank:          3,
	})
	require.NoError(t, err)

	assert.Equal(t, waitlist.MaskedCPF("***.456.789-**"), c.CPF)
	assert.Equal(t, "Maria Souza", c.Name)
	assert.Equal(t, tempcontract.QuotaDisability, c.QuotaCategory)
	assert.Equal(t, waitlist.StatusEligible, c.Status)
}

func TestNewCandidate_Rejects(t *testing.T) {
	base := waitlist.CandidateInput{ID: "c-1", WaitingListID: "wl-1", CPF: "12345678909", Name: "Ana", Rank: 1}

	bad := base
	bad.CPF = "123"
	_, err := waitlist.NewCandidate(bad)
	assert.ErrorIs(t, err, generic.ErrValidation)

	bad = base
	bad.Rank = 0
	_, err = waitlist.NewCandidate(bad)
	assert.ErrorIs(t, err, generic.ErrValidation)

	bad = base
	bad.QuotaCategory = "XYZ"
	_, err = waitlist.NewCandidate(bad)
	assert.ErrorIs(t, err, generic.ErrValidation)

	// Already masked input is accepted as is.
	masked := base
	masked.CPF = "***.456.789-**"
	c, err := waitlist.NewCandidate(masked)
	require.NoError(t, err)
	assert.Equal(t, waitlist.MaskedCPF("***.456.789-**"), c.CPF)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "jose da silva", waitlist.NormalizeName("  José  da SILVA "))
	assert.Equal(t, "joao conceicao", waitlist.NormalizeName("João Conceição"))
}

func TestSameIdentity(t *testing.T) {
	c := waitlist.Candidate{ID: "c-1", CPF: "***.456.789-**", Name: "José da Silva"}

	assert.True(t, waitlist.SameIdentity(c, waitlist.CallNotice{CandidateID: "c-1"}))
	assert.True(t, waitlist.SameIdentity(c, waitlist.CallNotice{CandidateID: "legacy-7", CPF: "***.456.789-**", CandidateName: "JOSE DA SILVA"}))
	assert.False(t, waitlist.SameIdentity(c, waitlist.CallNotice{CandidateID: "legacy-7", CPF: "***.456.789-**", CandidateName: "José Santos"}))
	assert.False(t, waitlist.SameIdentity(c, waitlist.CallNotice{CandidateID: "legacy-7", CPF: "***.111.222-**", CandidateName: "José da Silva"}))
}
