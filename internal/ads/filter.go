package ads

import (
	"strings"

	"ijara_backend/internal/model"
)

// Filter holds the user-supplied listing filters. All set fields are
// combined with AND semantics.
type Filter struct {
	PropertyType *model.PropertyType
	Bedrooms     *int
	Bathrooms    *int
	Amenities    []uint
	MinPrice     *int64
	MaxPrice     *int64
	MinArea      *float64
	MaxArea      *float64
	Search       string
	Ordering     string
}

func (f Filter) Predicates() []Predicate {
	var preds []Predicate
	if f.PropertyType != nil {
		preds = append(preds, PropertyTypeIs(*f.PropertyType))
	}
	if f.Bedrooms != nil {
		n := *f.Bedrooms
		preds = append(preds, Predicate{
			SQL:   "bedrooms = ?",
			Args:  []interface{}{n},
			Match: func(ad *model.Ad) bool { return ad.Bedrooms == n },
		})
	}
	if f.Bathrooms != nil {
		n := *f.Bathrooms
		preds = append(preds, Predicate{
			SQL:   "bathrooms = ?",
			Args:  []interface{}{n},
			Match: func(ad *model.Ad) bool { return ad.Bathrooms == n },
		})
	}
	if len(f.Amenities) > 0 {
		preds = append(preds, HasAllAmenities(f.Amenities))
	}
	if f.MinPrice != nil {
		v := *f.MinPrice
		preds = append(preds, Predicate{
			SQL:   "monthly_rent >= ?",
			Args:  []interface{}{v},
			Match: func(ad *model.Ad) bool { return ad.MonthlyRent >= v },
		})
	}
	if f.MaxPrice != nil {
		v := *f.MaxPrice
		preds = append(preds, Predicate{
			SQL:   "monthly_rent <= ?",
			Args:  []interface{}{v},
			Match: func(ad *model.Ad) bool { return ad.MonthlyRent <= v },
		})
	}
	if f.MinArea != nil {
		v := *f.MinArea
		preds = append(preds, Predicate{
			SQL:   "area_m2 >= ?",
			Args:  []interface{}{v},
			Match: func(ad *model.Ad) bool { return ad.AreaM2 >= v },
		})
	}
	if f.MaxArea != nil {
		v := *f.MaxArea
		preds = append(preds, Predicate{
			SQL:   "area_m2 <= ?",
			Args:  []interface{}{v},
			Match: func(ad *model.Ad) bool { return ad.AreaM2 <= v },
		})
	}
	for _, term := range strings.Fields(f.Search) {
		preds = append(preds, SearchTerm(term))
	}
	return preds
}

// Query builds the full query for f within the given visibility scope.
func (f Filter) Query(scope Predicate) Query {
	return Query{
		Where:   append([]Predicate{scope}, f.Predicates()...),
		OrderBy: ParseOrdering(f.Ordering),
	}
}

// HasAllAmenities matches ads linked to every id in ids.
func HasAllAmenities(ids []uint) Predicate {
	uniq := make(map[uint]struct{}, len(ids))
	list := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := uniq[id]; ok {
			continue
		}
		uniq[id] = struct{}{}
		list = append(list, id)
	}
	return Predicate{
		SQL:  "id IN (SELECT ad_id FROM ad_amenities WHERE amenity_id IN ? GROUP BY ad_id HAVING COUNT(DISTINCT amenity_id) = ?)",
		Args: []interface{}{list, len(list)},
		Match: func(ad *model.Ad) bool {
			have := make(map[uint]struct{}, len(ad.Amenities))
			for _, am := range ad.Amenities {
				have[am.ID] = struct{}{}
			}
			for id := range uniq {
				if _, ok := have[id]; !ok {
					return false
				}
			}
			return true
		},
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchTerm matches term case-insensitively in title, description or
// address.
func SearchTerm(term string) Predicate {
	pattern := "%" + likeEscaper.Replace(term) + "%"
	needle := strings.ToLower(term)
	return Predicate{
		SQL:  "title ILIKE ? OR description ILIKE ? OR address ILIKE ?",
		Args: []interface{}{pattern, pattern, pattern},
		Match: func(ad *model.Ad) bool {
			return strings.Contains(strings.ToLower(ad.Title), needle) ||
				strings.Contains(strings.ToLower(ad.Description), needle) ||
				strings.Contains(strings.ToLower(ad.Address), needle)
		},
	}
}
