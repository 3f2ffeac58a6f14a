package models

// Continent is a continent together with its complete membership, in the
// order the reference data lists it.
type Continent struct {
	Code    string
	Name    string
	Members []string
}

// Country is a resolved country code and the continent it belongs to.
type Country struct {
	Code      string
	Name      string
	Continent Continent
}

// ContinentGroup is one element of a lookup response. Countries holds the
// requested codes of the continent and OtherCountries the remaining members;
// the two never overlap.
type ContinentGroup struct {
	Countries      []string `json:"countries"`
	Name           string   `json:"name"`
	OtherCountries []string `json:"otherCountries"`
}

// ContinentRecord is the reference-data shape shared by the GraphQL source and
// the embedded fixture.
type ContinentRecord struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Countries []CountryRecord `json:"countries"`
}

type CountryRecord struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Continent flattens the record into a Continent.
func (r ContinentRecord) Continent() Continent {
	members := make([]string, 0, len(r.Countries))
	for _, c := range r.Countries {
		members = append(members, c.Code)
	}
	return Continent{Code: r.Code, Name: r.Name, Members: members}
}
