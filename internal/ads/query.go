package ads

import (
	"math"
	"strings"

	"ijara_backend/internal/model"
)

// Predicate is one filter condition, expressed both as a SQL fragment for
// relational stores and as a Go matcher for in-memory evaluation.
type Predicate struct {
	SQL   string
	Args  []interface{}
	Match func(ad *model.Ad) bool
}

// Or combines predicates with OR semantics.
func Or(preds ...Predicate) Predicate {
	sqls := make([]string, 0, len(preds))
	var args []interface{}
	for _, p := range preds {
		sqls = append(sqls, "("+p.SQL+")")
		args = append(args, p.Args...)
	}
	return Predicate{
		SQL:  strings.Join(sqls, " OR "),
		Args: args,
		Match: func(ad *model.Ad) bool {
			for _, p := range preds {
				if p.Match(ad) {
					return true
				}
			}
			return false
		},
	}
}

// And combines predicates with AND semantics.
func And(preds ...Predicate) Predicate {
	sqls := make([]string, 0, len(preds))
	var args []interface{}
	for _, p := range preds {
		sqls = append(sqls, "("+p.SQL+")")
		args = append(args, p.Args...)
	}
	return Predicate{
		SQL:  strings.Join(sqls, " AND "),
		Args: args,
		Match: func(ad *model.Ad) bool {
			for _, p := range preds {
				if !p.Match(ad) {
					return false
				}
			}
			return true
		},
	}
}

// All matches every ad.
func All() Predicate {
	return Predicate{SQL: "1 = 1", Match: func(*model.Ad) bool { return true }}
}

func Active() Predicate {
	return Predicate{
		SQL:   "is_active = ?",
		Args:  []interface{}{true},
		Match: func(ad *model.Ad) bool { return ad.IsActive },
	}
}

func StatusIs(s model.AdStatus) Predicate {
	return Predicate{
		SQL:   "status = ?",
		Args:  []interface{}{s},
		Match: func(ad *model.Ad) bool { return ad.Status == s },
	}
}

func OwnedBy(ownerID uint) Predicate {
	return Predicate{
		SQL:   "owner_id = ?",
		Args:  []interface{}{ownerID},
		Match: func(ad *model.Ad) bool { return ad.OwnerID == ownerID },
	}
}

func IDIs(id uint) Predicate {
	return Predicate{
		SQL:   "id = ?",
		Args:  []interface{}{id},
		Match: func(ad *model.Ad) bool { return ad.ID == id },
	}
}

func ExcludeID(id uint) Predicate {
	return Predicate{
		SQL:   "id <> ?",
		Args:  []interface{}{id},
		Match: func(ad *model.Ad) bool { return ad.ID != id },
	}
}

func PropertyTypeIs(t model.PropertyType) Predicate {
	return Predicate{
		SQL:   "property_type = ?",
		Args:  []interface{}{t},
		Match: func(ad *model.Ad) bool { return ad.PropertyType == t },
	}
}

func HasLocation() Predicate {
	return Predicate{
		SQL:   "latitude IS NOT NULL AND longitude IS NOT NULL",
		Match: func(ad *model.Ad) bool { return ad.HasLocation() },
	}
}

// ListVisibility is the listing scope for actor:
// staff see every active ad, authenticated users see active ads that are
// approved or their own, anonymous callers see every active ad.
func ListVisibility(actor *Actor) Predicate {
	switch {
	case actor.Staff():
		return Active()
	case actor.Authenticated():
		return And(Active(), Or(StatusIs(model.AdStatusApproved), OwnedBy(actor.ID)))
	default:
		return Active()
	}
}

// DetailVisibility is the single-item retrieval scope for actor.
func DetailVisibility(actor *Actor) Predicate {
	switch {
	case actor.Staff():
		return All()
	case actor.Authenticated():
		return Or(And(StatusIs(model.AdStatusApproved), Active()), OwnedBy(actor.ID))
	default:
		return Active()
	}
}

// BoundingBox approximates a radius search with a lat/lng box using
// radiusKm/111 degrees.
func BoundingBox(lat, lng, radiusKm float64) Predicate {
	delta := radiusKm / 111
	minLat, maxLat := lat-delta, lat+delta
	minLng, maxLng := lng-delta, lng+delta
	return Predicate{
		SQL:  "latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?",
		Args: []interface{}{minLat, maxLat, minLng, maxLng},
		Match: func(ad *model.Ad) bool {
			if !ad.HasLocation() {
				return false
			}
			la, lo := *ad.Latitude, *ad.Longitude
			return la >= minLat && la <= maxLat && lo >= minLng && lo <= maxLng
		},
	}
}

// OrderField is one ordering key.
type OrderField struct {
	Column string
	Desc   bool
}

var DefaultOrdering = []OrderField{{Column: "created_at", Desc: true}}

var orderable = map[string]bool{"created_at": true, "monthly_rent": true, "area_m2": true}

// ParseOrdering reads a comma-separated ordering parameter such as
// "-monthly_rent,created_at". Unknown columns are ignored.
func ParseOrdering(raw string) []OrderField {
	var out []OrderField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		col := strings.TrimPrefix(part, "-")
		if orderable[col] {
			out = append(out, OrderField{Column: col, Desc: desc})
		}
	}
	if len(out) == 0 {
		return DefaultOrdering
	}
	return out
}

// Query is a complete store-agnostic ad query.
type Query struct {
	Where   []Predicate
	OrderBy []OrderField
	Limit   int
	Offset  int
}

func (q Query) Matches(ad *model.Ad) bool {
	for _, p := range q.Where {
		if !p.Match(ad) {
			return false
		}
	}
	return true
}

// Less orders a before b according to q.OrderBy, newest id last as a
// tiebreaker.
func (q Query) Less(a, b *model.Ad) bool {
	order := q.OrderBy
	if len(order) == 0 {
		order = DefaultOrdering
	}
	for _, o := range order {
		c := compareColumn(a, b, o.Column)
		if c == 0 {
			continue
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	}
	return a.ID > b.ID
}

func compareColumn(a, b *model.Ad, col string) int {
	switch col {
	case "monthly_rent":
		return cmpNum(float64(a.MonthlyRent), float64(b.MonthlyRent))
	case "area_m2":
		return cmpNum(a.AreaM2, b.AreaM2)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func cmpNum(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPageNumber keeps (Number-1)*Size well inside int range.
	MaxPageNumber = math.MaxInt32 / MaxPageSize
)

func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if number > MaxPageNumber {
		number = MaxPageNumber
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) Apply(q Query) Query {
	q.Limit = p.Size
	q.Offset = (p.Number - 1) * p.Size
	return q
}
