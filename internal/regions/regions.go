// Package regions maps well-known cities to the neighbourhoods used to widen
// a search when the city-wide results run out.
package regions

import "strings"

type city struct {
	name          string
	neighbourhood []string
}

// table is ordered: the first city found in a query wins.
var table = []city{
	{"New York", []string{
		"Manhattan", "Brooklyn", "Queens", "The Bronx", "Staten Island",
		"Upper East Side", "Upper West Side", "Midtown", "Lower Manhattan", "Harlem",
		"Williamsburg", "Bushwick", "DUMBO", "Astoria", "Flushing", "Long Island City",
	}},
	{"Los Angeles", []string{
		"Downtown LA", "Hollywood", "Santa Monica", "Venice", "Beverly Hills",
		"Silver Lake", "Echo Park", "Koreatown", "Westwood", "Sherman Oaks",
	}},
	{"Chicago", []string{
		"The Loop", "Lincoln Park", "Wicker Park", "Logan Square", "River North",
		"Hyde Park", "West Loop", "Lakeview",
	}},
	{"London", []string{
		"Westminster", "Camden", "Islington", "Hackney", "Southwark", "Lambeth",
		"Greenwich", "Chelsea", "Kensington", "Soho", "Shoreditch",
	}},
	{"Moscow", []string{
		"Центральный округ", "Северный округ", "Северо-Восточный округ", "Восточный округ",
		"Юго-Восточный округ", "Южный округ", "Юго-Западный округ", "Западный округ",
		"Северо-Западный округ", "Зеленоград", "Хамовники", "Пресненский", "Арбат",
	}},
}

// Lookup returns the neighbourhoods of the first city whose name appears in
// query, compared case-insensitively. It returns nil when none matches.
// Example: "Pizza New York" returns the New York neighbourhoods.
func Lookup(query string) []string {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	for _, c := range table {
		if strings.Contains(q, strings.ToLower(c.name)) {
			return append([]string(nil), c.neighbourhood...)
		}
	}
	return nil
}

// City returns the name of the city Lookup would match, or "".
func City(query string) string {
	q := strings.ToLower(query)
	if q == "" {
		return ""
	}
	for _, c := range table {
		if strings.Contains(q, strings.ToLower(c.name)) {
			return c.name
		}
	}
	return ""
}

// Cities lists the known cities in lookup order.
func Cities() []string {
	names := make([]string, len(table))
	for i, c := range table {
		names[i] = c.name
	}
	return names
}
