package domain

import (
	"encoding/json"
	"strings"
)

// MediaDetail is the backend's media record. Fields the client does not show
// are ignored.
type MediaDetail struct {
	Tconst         string  `json:"tconst"`
	TitleType      string  `json:"titleType,omitempty"`
	PrimaryTitle   string  `json:"primaryTitle"`
	OriginalTitle  string  `json:"originalTitle,omitempty"`
	IsAdult        bool    `json:"isAdult,omitempty"`
	StartYear      int     `json:"startYear,omitempty"`
	EndYear        *int    `json:"endYear,omitempty"`
	RuntimeMinutes *int    `json:"runtimeMinutes,omitempty"`
	Genres         Genres  `json:"genres,omitempty"`
	AverageRating  float64 `json:"averageRating,omitempty"`
	NumVotes       int     `json:"numVotes,omitempty"`
	Poster         string  `json:"poster,omitempty"`
	Plot           string  `json:"plot,omitempty"`
}

// Genres accepts both a JSON array and a comma separated string.
type Genres []string

func (g *Genres) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*g = list
		return nil
	}

	var joined *string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}

	*g = nil
	if joined == nil || *joined == "" {
		return nil
	}

	for _, genre := range strings.Split(*joined, ",") {
		if genre = strings.TrimSpace(genre); genre != "" {
			*g = append(*g, genre)
		}
	}

	return nil
}

type Preference struct {
	Tconst string  `json:"tconst"`
	Rating float64 `json:"rating"`
}

type User struct {
	Id    int    `json:"id"`
	Email string `json:"email"`
}
