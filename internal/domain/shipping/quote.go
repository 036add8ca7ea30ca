package shipping

import "errors"

var ErrNoCourierMatch = errors.New("no rate matches the selected courier service")

// Quote is one rate offer returned by the freight-rate lookup.
type Quote struct {
	Carrier     string
	Service     string
	Description string
	Cost        int64
	ETD         string
}

// Selection is the courier service the customer picked.
type Selection struct {
	Carrier string
	Service string
	Price   int64
	ETD     string
	Note    string
}

func (s Selection) Matches(q Quote) bool {
	return q.Carrier == s.Carrier && q.Service == s.Service
}

// Match returns the first quote whose carrier and service equal the selection exactly.
func Match(quotes []Quote, sel Selection) (Quote, error) {
	for _, q := range quotes {
		if sel.Matches(q) {
			return q, nil
		}
	}
	return Quote{}, ErrNoCourierMatch
}

// Route is a rate lookup key.
type Route struct {
	Origin      string
	Destination string
	WeightGrams int
	Carrier     string
}
