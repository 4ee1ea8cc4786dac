package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInviteCode(t *testing.T) {
	cases := map[string]InviteCode{
		"AB12CD34":                        {Referrer: "AB12CD34"},
		"AB12CD34-forest":                 {Referrer: "AB12CD34", Realm: "forest"},
		"AB12CD34-forest-first_steps":     {Referrer: "AB12CD34", Realm: "forest", QuestType: "first_steps"},
		"AB12CD34--first_steps":           {Referrer: "AB12CD34", QuestType: "first_steps"},
		" AB12CD34-deep_sea-tide-pools  ": {Referrer: "AB12CD34", Realm: "deep_sea", QuestType: "tide-pools"},
	}
	for code, want := range cases {
		assert.Equal(t, want, ParseInviteCode(code), code)
	}
}

func TestBuildInviteCode(t *testing.T) {
	assert.Equal(t, "AB12CD34", BuildInviteCode("ab12cd34", "", ""))
	assert.Equal(t, "AB12CD34-forest_realm", BuildInviteCode("AB12CD34", "Forest Realm", ""))
	assert.Equal(t, "AB12CD34-forest_realm-first_steps", BuildInviteCode("AB12CD34", "Forest Realm", "First Steps!"))
	assert.Equal(t, "AB12CD34--first_steps", BuildInviteCode("AB12CD34", "", "first steps"))
}

func TestBuildInviteCode_RoundTrips(t *testing.T) {
	code := BuildInviteCode("AB12CD34", "Mountain Pass", "IRL Meetup")
	assert.Equal(t, InviteCode{Referrer: "AB12CD34", Realm: "mountain_pass", QuestType: "irl_meetup"}, ParseInviteCode(code))
}

func TestInviteLookup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.createAccount(t, "Ada", "")

	inv, err := env.invites.Lookup(ctx, acc.ReferralCode+"-forest-first_steps")
	require.NoError(t, err)
	assert.Equal(t, "Ada", inv.Name)
	assert.Equal(t, acc.ReferralCode, inv.ReferralCode)
	assert.Equal(t, acc.ID, inv.ReferrerID)
	assert.Equal(t, "forest", inv.Realm)
	assert.Equal(t, "first_steps", inv.QuestType)

	lower, err := env.invites.Lookup(ctx, strings.ToLower(acc.ReferralCode))
	require.NoError(t, err)
	assert.Equal(t, "Ada", lower.Name)
}

func TestInviteLookup_UnknownReferrer(t *testing.T) {
	env := newTestEnv(t)

	inv, err := env.invites.Lookup(context.Background(), "ZZZZZZZZ-forest")
	require.NoError(t, err)
	assert.Equal(t, GenericReferrerName, inv.Name)
	assert.Equal(t, "ZZZZZZZZ", inv.ReferralCode)
	assert.Empty(t, inv.ReferrerID)
}

func TestInviteLookup_AccountID(t *testing.T) {
	env := newTestEnv(t)
	acc := env.createAccount(t, "Ada", "")

	inv, err := env.invites.Lookup(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", inv.Name)
	assert.Equal(t, acc.ID, inv.ReferrerID)
	assert.Equal(t, acc.ReferralCode, inv.ReferralCode)
	assert.Empty(t, inv.Realm)
	assert.Empty(t, inv.QuestType)
}

func TestInviteLookup_Empty(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.invites.Lookup(context.Background(), "  ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestInviteGenerate(t *testing.T) {
	env := newTestEnv(t)
	acc := env.createAccount(t, "Ada", "")

	gen, err := env.invites.Generate(context.Background(), acc.ID, "Forest", "")
	require.NoError(t, err)
	assert.Equal(t, acc.ReferralCode+"-forest", gen.Code)
	assert.Equal(t, "/invite/"+gen.Code, gen.Path)

	_, err = env.invites.Generate(context.Background(), "missing", "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}
