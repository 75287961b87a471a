// FilePath: internal/models/models.ranking.go
package models

import "encoding/json"

type RankingItemCity struct {
	Country string `json:"country" db:"country"`
	City    string `json:"city" db:"city"`
	Count   int64  `json:"count" db:"count"`
}

type RankingItemCountry struct {
	Country string `json:"country" db:"country"`
	Count   int64  `json:"count" db:"count"`
}

// RankingItemCityCompressed encodes as [country, city, count]
type RankingItemCityCompressed RankingItemCity

func (r RankingItemCityCompressed) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Country, r.City, r.Count})
}

// RankingItemCountryCompressed encodes as [country, count]
type RankingItemCountryCompressed RankingItemCountry

func (r RankingItemCountryCompressed) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Country, r.Count})
}
