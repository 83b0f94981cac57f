package ads

import (
	"net/http"

	"ijara_backend/internal/model"
)

const (
	MethodGet    = http.MethodGet
	MethodHead   = http.MethodHead
	MethodPost   = http.MethodPost
	MethodPut    = http.MethodPut
	MethodPatch  = http.MethodPatch
	MethodDelete = http.MethodDelete
)

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// CanAccess is the object-level permission check evaluated per request.
// Whether mutating endpoints are reachable at all (authenticated or not) is
// decided earlier by the auth gate.
func CanAccess(ad *model.Ad, actor *Actor, method string) bool {
	if isSafeMethod(method) {
		return true
	}
	if actor.Staff() {
		return true
	}
	if !actor.Owns(ad.OwnerID) {
		return false
	}
	if method == http.MethodDelete {
		return IsOwnerMutable(ad.Status)
	}
	if IsOwnerMutable(ad.Status) {
		return true
	}
	if ad.Status == model.AdStatusApproved && (method == http.MethodPut || method == http.MethodPatch) {
		return true
	}
	return false
}
