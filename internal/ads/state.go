package ads

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"ijara_backend/internal/model"
)

const slugBaseLength = 180

// mutableStatuses are the states in which an owner may change anything.
var mutableStatuses = map[model.AdStatus]struct{}{
	model.AdStatusDraft:   {},
	model.AdStatusPending: {},
}

// IsOwnerMutable reports whether the owner may freely edit or delete an ad
// in status s.
func IsOwnerMutable(s model.AdStatus) bool {
	_, ok := mutableStatuses[s]
	return ok
}

// NewAd builds a freshly created ad owned by actor. Creation always
// produces PENDING; DRAFT is never produced here.
func NewAd(actor *Actor, v *Validated, now time.Time) *model.Ad {
	ad := &model.Ad{
		OwnerID:   actor.ID,
		Status:    model.AdStatusPending,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	v.ApplyTo(ad)
	AssignSlug(ad)
	return ad
}

// AssignSlug sets the slug once, when it is still empty.
func AssignSlug(ad *model.Ad) {
	if ad.Slug != "" {
		return
	}
	base := slug.Make(ad.Title)
	if len(base) > slugBaseLength {
		base = strings.TrimRight(base[:slugBaseLength], "-")
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	if base == "" {
		ad.Slug = suffix
		return
	}
	ad.Slug = base + "-" + suffix
}

// Approve moves ad to APPROVED from any status.
func Approve(ad *model.Ad, actor *Actor, note string, now time.Time) error {
	if !actor.Staff() {
		return ErrForbidden
	}
	ad.Status = model.AdStatusApproved
	ad.ModerationNote = strings.TrimSpace(note)
	ad.UpdatedAt = now
	return nil
}

// Reject moves ad to REJECTED; the note is mandatory.
func Reject(ad *model.Ad, actor *Actor, note string, now time.Time) error {
	if !actor.Staff() {
		return ErrForbidden
	}
	note = strings.TrimSpace(note)
	if note == "" {
		return MissingField("moderation_note")
	}
	ad.Status = model.AdStatusRejected
	ad.ModerationNote = note
	ad.UpdatedAt = now
	return nil
}

// PrepareUpdate authorizes actor to update ad and validates the payload
// against the ad's current state. Field restrictions for APPROVED ads are
// reported as validation errors, not authorization failures.
func PrepareUpdate(ad *model.Ad, actor *Actor, p *Payload, val *Validator, existingImages int) (*Validated, error) {
	if !CanAccess(ad, actor, MethodPatch) {
		return nil, ErrForbidden
	}
	return val.Validate(p, actor, existingImages, true, ad.Status)
}

// ApplyUpdate writes validated fields onto ad. The slug is never
// regenerated.
func ApplyUpdate(ad *model.Ad, v *Validated, now time.Time) {
	v.ApplyTo(ad)
	ad.UpdatedAt = now
}

// SoftDelete deactivates ad. Owners may only delete DRAFT or PENDING ads;
// staff may always delete. Status is left unchanged.
func SoftDelete(ad *model.Ad, actor *Actor, now time.Time) error {
	if !CanAccess(ad, actor, MethodDelete) {
		return ErrForbidden
	}
	ad.IsActive = false
	ad.UpdatedAt = now
	return nil
}
