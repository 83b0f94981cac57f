package ads

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ijara_backend/internal/model"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewAd(t *testing.T) {
	v, err := NewValidator().Validate(createPayload("Cozy flat in Mirzo Ulugbek"), owner, 0, false, "")
	require.NoError(t, err)

	ad := NewAd(owner, v, now)
	assert.Equal(t, model.AdStatusPending, ad.Status)
	assert.True(t, ad.IsActive)
	assert.Equal(t, owner.ID, ad.OwnerID)
	assert.Equal(t, now, ad.CreatedAt)
	assert.Regexp(t, `^cozy-flat-in-mirzo-ulugbek-[0-9a-f]{6}$`, ad.Slug)
}

func TestAssignSlug(t *testing.T) {
	ad := &model.Ad{Title: "Flat"}
	AssignSlug(ad)
	first := ad.Slug

	ad.Title = "Renamed"
	AssignSlug(ad)
	assert.Equal(t, first, ad.Slug)

	long := &model.Ad{Title: strings.Repeat("uy ", 150)}
	AssignSlug(long)
	assert.LessOrEqual(t, len(long.Slug), slugBaseLength+7)
	assert.NotContains(t, long.Slug, "--")

	blank := &model.Ad{Title: "!!!"}
	AssignSlug(blank)
	assert.Len(t, blank.Slug, 6)

	a, b := &model.Ad{Title: "Same"}, &model.Ad{Title: "Same"}
	AssignSlug(a)
	AssignSlug(b)
	assert.NotEqual(t, a.Slug, b.Slug)
}

func TestApprove(t *testing.T) {
	for _, from := range []model.AdStatus{model.AdStatusDraft, model.AdStatusPending, model.AdStatusRejected, model.AdStatusArchived} {
		ad := &model.Ad{Status: from, ModerationNote: "old"}
		require.NoError(t, Approve(ad, staff, "  looks good ", now))
		assert.Equal(t, model.AdStatusApproved, ad.Status)
		assert.Equal(t, "looks good", ad.ModerationNote)
	}

	ad := &model.Ad{OwnerID: owner.ID, Status: model.AdStatusPending}
	assert.ErrorIs(t, Approve(ad, owner, "", now), ErrForbidden)
	assert.Equal(t, model.AdStatusPending, ad.Status)
}

func TestReject(t *testing.T) {
	ad := &model.Ad{Status: model.AdStatusApproved}

	err := Reject(ad, staff, "   ", now)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{MsgRequired}, verr.Fields["moderation_note"])
	assert.Equal(t, model.AdStatusApproved, ad.Status)

	require.NoError(t, Reject(ad, staff, "Wrong address", now))
	assert.Equal(t, model.AdStatusRejected, ad.Status)
	assert.Equal(t, "Wrong address", ad.ModerationNote)

	assert.ErrorIs(t, Reject(ad, stranger, "nope", now), ErrForbidden)
}

func TestPrepareUpdate(t *testing.T) {
	val := NewValidator()
	rent := int64(3000000)
	title := "New title"

	approved := &model.Ad{OwnerID: owner.ID, Status: model.AdStatusApproved}
	_, err := PrepareUpdate(approved, owner, &Payload{Title: &title}, val, 0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{MsgFieldNotEditable}, verr.Fields["title"])

	v, err := PrepareUpdate(approved, owner, &Payload{MonthlyRent: &rent}, val, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"monthly_rent"}, v.Columns)

	rejected := &model.Ad{OwnerID: owner.ID, Status: model.AdStatusRejected}
	_, err = PrepareUpdate(rejected, owner, &Payload{MonthlyRent: &rent}, val, 0)
	assert.ErrorIs(t, err, ErrForbidden)

	pending := &model.Ad{OwnerID: owner.ID, Status: model.AdStatusPending, Slug: "keep-me"}
	v, err = PrepareUpdate(pending, owner, &Payload{Title: &title}, val, 0)
	require.NoError(t, err)
	ApplyUpdate(pending, v, now)
	assert.Equal(t, "New title", pending.Title)
	assert.Equal(t, "keep-me", pending.Slug)
	assert.Equal(t, now, pending.UpdatedAt)
}

func TestSoftDelete(t *testing.T) {
	pending := &model.Ad{OwnerID: owner.ID, Status: model.AdStatusPending, IsActive: true}
	require.NoError(t, SoftDelete(pending, owner, now))
	assert.False(t, pending.IsActive)
	assert.Equal(t, model.AdStatusPending, pending.Status)

	approved := &model.Ad{OwnerID: owner.ID, Status: model.AdStatusApproved, IsActive: true}
	assert.ErrorIs(t, SoftDelete(approved, owner, now), ErrForbidden)
	assert.True(t, approved.IsActive)

	require.NoError(t, SoftDelete(approved, staff, now))
	assert.False(t, approved.IsActive)
}
