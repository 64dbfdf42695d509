package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Hard caps on candidate sets handed to the model. There is no pagination
// within a single pipeline run.
const (
	maxHotels      = 5
	maxSpots       = 8
	maxActivities  = 8
	maxRestaurants = 15
	maxDocuments   = 50
)

// View is a visibility-bound, read-only query adapter over the Store. All
// reads apply the owner/public filter derived from the caller identity;
// anonymous views additionally mask every price to null. Ranking is by true
// price regardless of masking.
type View struct {
	store *Store
	ident *Identity
}

func (v *View) anonymous() bool {
	return v.ident == nil || v.ident.Username == ""
}

// visibility returns the SQL clause restricting rows to what the caller may
// see, with its arguments.
func (v *View) visibility() (string, []any) {
	if v.anonymous() {
		return "is_public = 1", nil
	}
	return "(is_public = 1 OR owner_id = ?)", []any{v.ident.Username}
}

// FindHotels returns up to 5 cheapest hotels in cities matching the name.
// priceMax <= 0 disables the cap; anonymous callers never price-filter since
// they cannot see prices.
func (v *View) FindHotels(ctx context.Context, city string, priceMax float64) ([]HotelSummary, error) {
	vis, args := v.visibility()
	query := `SELECT h.id, h.name, h.room_type, h.price
		FROM hotels h JOIN cities c ON h.city_id = c.id
		WHERE instr(c.name, ?) > 0 AND ` + vis + `
		ORDER BY h.price IS NULL, h.price ASC`
	rows, err := v.store.db.QueryContext(ctx, query, append([]any{city}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("querying hotels: %w", err)
	}
	defer rows.Close()

	var out []HotelSummary
	for rows.Next() {
		var h HotelSummary
		var price sql.NullFloat64
		if err := rows.Scan(&h.ID, &h.Name, &h.RoomType, &price); err != nil {
			return nil, err
		}
		if v.anonymous() {
			h.Price = nil
		} else {
			if price.Valid {
				p := price.Float64
				if priceMax > 0 && p > priceMax {
					continue
				}
				h.Price = &p
			} else if priceMax > 0 {
				continue
			}
		}
		out = append(out, h)
		if len(out) == maxHotels {
			break
		}
	}
	return out, rows.Err()
}

// FindSpots returns up to 8 cheapest spots in cities matching the name.
func (v *View) FindSpots(ctx context.Context, city string) ([]ResourceSummary, error) {
	return v.findCityResources(ctx, "spots", city, maxSpots)
}

// FindActivities returns up to 8 cheapest activities in cities matching the name.
func (v *View) FindActivities(ctx context.Context, city string) ([]ResourceSummary, error) {
	return v.findCityResources(ctx, "activities", city, maxActivities)
}

func (v *View) findCityResources(ctx context.Context, table, city string, limit int) ([]ResourceSummary, error) {
	vis, args := v.visibility()
	query := `SELECT r.id, r.name, r.price
		FROM ` + table + ` r JOIN cities c ON r.city_id = c.id
		WHERE instr(c.name, ?) > 0 AND ` + vis + `
		ORDER BY r.price IS NULL, r.price ASC LIMIT ?`
	queryArgs := append([]any{city}, args...)
	queryArgs = append(queryArgs, limit)
	rows, err := v.store.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	var out []ResourceSummary
	for rows.Next() {
		var r ResourceSummary
		var price sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Name, &price); err != nil {
			return nil, err
		}
		if !v.anonymous() && price.Valid {
			p := price.Float64
			r.Price = &p
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindRestaurants returns up to 15 restaurants in cities matching the name,
// optionally filtered by cuisine type.
func (v *View) FindRestaurants(ctx context.Context, city, cuisine string) ([]RestaurantSummary, error) {
	vis, args := v.visibility()
	query := `SELECT r.id, r.name, r.cuisine_type, r.avg_price, r.dietary_tags, r.meal_type
		FROM restaurants r JOIN cities c ON r.city_id = c.id
		WHERE instr(c.name, ?) > 0 AND ` + vis
	queryArgs := append([]any{city}, args...)
	if cuisine != "" {
		query += ` AND r.cuisine_type = ?`
		queryArgs = append(queryArgs, cuisine)
	}
	query += ` ORDER BY r.avg_price IS NULL, r.avg_price ASC LIMIT ?`
	queryArgs = append(queryArgs, maxRestaurants)

	rows, err := v.store.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("querying restaurants: %w", err)
	}
	defer rows.Close()

	var out []RestaurantSummary
	for rows.Next() {
		var r RestaurantSummary
		var price sql.NullFloat64
		if err := rows.Scan(&r.ID, &r.Name, &r.CuisineType, &price, &r.DietaryTags, &r.MealType); err != nil {
			return nil, err
		}
		if !v.anonymous() && price.Valid {
			p := price.Float64
			r.AvgPrice = &p
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FindTransports returns transports serving the region with capacity for the
// party. Region matching is substring containment in either direction, since
// catalog regions may be broader or narrower than the inferred one.
func (v *View) FindTransports(ctx context.Context, region string, passengers int) ([]TransportSummary, error) {
	vis, args := v.visibility()
	query := `SELECT id, region, car_model, service_type, passengers, price_low, price_high
		FROM transports WHERE ` + vis + ` ORDER BY price_low IS NULL, price_low ASC`
	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying transports: %w", err)
	}
	defer rows.Close()

	var out []TransportSummary
	for rows.Next() {
		var t TransportSummary
		var low, high sql.NullFloat64
		if err := rows.Scan(&t.ID, &t.Region, &t.CarModel, &t.ServiceType, &t.Passengers, &low, &high); err != nil {
			return nil, err
		}
		if region != "" && t.Region != "" &&
			!strings.Contains(t.Region, region) && !strings.Contains(region, t.Region) {
			continue
		}
		if passengers > 0 && t.Passengers > 0 && t.Passengers < passengers {
			continue
		}
		if !v.anonymous() {
			if low.Valid {
				p := low.Float64
				t.PriceLow = &p
			}
			if high.Valid {
				p := high.Float64
				t.PriceHigh = &p
			}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// FindDocuments returns up to 50 most recent documents scoped to the given
// country and city ids. Documents with no city restriction are always
// included; an empty country disables country scoping.
func (v *View) FindDocuments(ctx context.Context, country string, cityIDs []string) ([]DocumentSummary, error) {
	vis, args := v.visibility()
	query := `SELECT id, category, country, COALESCE(city_id, ''), title, content_text
		FROM documents WHERE ` + vis
	if country != "" {
		query += ` AND (country = '' OR country = ?)`
		args = append(args, country)
	}
	if len(cityIDs) > 0 {
		placeholders := strings.Repeat(",?", len(cityIDs)-1)
		query += ` AND (city_id IS NULL OR city_id = '' OR city_id IN (?` + placeholders + `))`
		for _, id := range cityIDs {
			args = append(args, id)
		}
	} else {
		query += ` AND (city_id IS NULL OR city_id = '')`
	}
	query += ` ORDER BY uploaded_at DESC LIMIT ?`
	args = append(args, maxDocuments)

	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentSummary
	for rows.Next() {
		var d DocumentSummary
		if err := rows.Scan(&d.ID, &d.Category, &d.Country, &d.CityID, &d.Title, &d.Content); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PricesByID returns a batched id→price map for the given kind. Rows without
// a positive price are omitted, so absent keys mean "unpriced".
func (v *View) PricesByID(ctx context.Context, kind Kind, ids []string) (map[string]float64, error) {
	if len(ids) == 0 {
		return map[string]float64{}, nil
	}
	table, priceCol := kindTable(kind)
	vis, args := v.visibility()
	placeholders := strings.Repeat(",?", len(ids)-1)
	query := `SELECT id, ` + priceCol + ` FROM ` + table +
		` WHERE ` + vis + ` AND id IN (?` + placeholders + `)`
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s prices: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]float64, len(ids))
	for rows.Next() {
		var id string
		var price sql.NullFloat64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, err
		}
		if price.Valid && price.Float64 > 0 {
			out[id] = price.Float64
		}
	}
	return out, rows.Err()
}

// PricedNames returns all positively priced entries of the kind as
// (id, name, price) triples for fuzzy name matching. Transports contribute
// one entry per service type and car model, priced at price_low.
func (v *View) PricedNames(ctx context.Context, kind Kind) ([]PricedName, error) {
	vis, args := v.visibility()

	var query string
	switch kind {
	case KindTransport:
		query = `SELECT id, service_type, car_model, price_low FROM transports WHERE ` + vis
	default:
		table, priceCol := kindTable(kind)
		query = `SELECT id, name, '', ` + priceCol + ` FROM ` + table + ` WHERE ` + vis
	}

	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s names: %w", kind, err)
	}
	defer rows.Close()

	var out []PricedName
	for rows.Next() {
		var id, name, altName string
		var price sql.NullFloat64
		if err := rows.Scan(&id, &name, &altName, &price); err != nil {
			return nil, err
		}
		if !price.Valid || price.Float64 <= 0 {
			continue
		}
		if name != "" {
			out = append(out, PricedName{ID: id, Name: name, Price: price.Float64})
		}
		if altName != "" {
			out = append(out, PricedName{ID: id, Name: altName, Price: price.Float64})
		}
	}
	return out, rows.Err()
}

// CheapestByName resolves a display name to the cheapest catalog entry whose
// normalized name contains (or is contained by) the normalized pattern.
func (v *View) CheapestByName(ctx context.Context, kind Kind, name string) (PricedName, bool, error) {
	key := NormalizeName(name)
	if key == "" {
		return PricedName{}, false, nil
	}
	entries, err := v.PricedNames(ctx, kind)
	if err != nil {
		return PricedName{}, false, err
	}

	var best PricedName
	found := false
	for _, e := range entries {
		ek := NormalizeName(e.Name)
		if ek == "" {
			continue
		}
		if ek != key && !strings.Contains(ek, key) && !strings.Contains(key, ek) {
			continue
		}
		if !found || e.Price < best.Price {
			best = e
			found = true
		}
	}
	return best, found, nil
}

// CountryOfCity resolves a city name to its country, preferring an exact
// match over substring containment. Returns ErrNotFound when no city matches.
func (v *View) CountryOfCity(ctx context.Context, name string) (string, error) {
	var country string
	err := v.store.db.QueryRowContext(ctx,
		`SELECT country FROM cities WHERE name = ? LIMIT 1`, name).Scan(&country)
	if err == nil && country != "" {
		return country, nil
	}
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}
	err = v.store.db.QueryRowContext(ctx,
		`SELECT country FROM cities WHERE instr(name, ?) > 0 OR instr(?, name) > 0 LIMIT 1`,
		name, name).Scan(&country)
	if err == sql.ErrNoRows || (err == nil && country == "") {
		return "", ErrNotFound
	}
	return country, err
}

// CityIDs resolves destination names to catalog city ids.
func (v *View) CityIDs(ctx context.Context, names []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, name := range names {
		if name == "" {
			continue
		}
		rows, err := v.store.db.QueryContext(ctx,
			`SELECT id FROM cities WHERE name = ? OR instr(name, ?) > 0 OR instr(?, name) > 0`,
			name, name, name)
		if err != nil {
			return nil, fmt.Errorf("querying city ids: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

func kindTable(kind Kind) (table, priceCol string) {
	switch kind {
	case KindHotel:
		return "hotels", "price"
	case KindSpot:
		return "spots", "price"
	case KindActivity:
		return "activities", "price"
	case KindTransport:
		return "transports", "price_low"
	}
	return "", ""
}

var bracketRe = regexp.MustCompile(`[(（\[【][^)）\]】]*[)）\]】]`)

// NormalizeName produces the key used for fuzzy price matching: bracketed
// qualifiers removed, full-width characters folded, lowercased, and every
// character outside [0-9a-z] and Han dropped.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}
	s := bracketRe.ReplaceAllString(name, "")
	s = width.Fold.String(s)
	s = strings.ToLower(s)
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || unicode.Is(unicode.Han, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
