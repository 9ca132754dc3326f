package models

// LocationData is a normalized reverse-geocoding result.
type LocationData struct {
	Lat                float64  `json:"lat"`
	Lng                float64  `json:"lng"`
	Address            string   `json:"address"`
	Panchayat          string   `json:"panchayat"`
	District           string   `json:"district,omitempty"`
	PossiblePanchayats []string `json:"possible_panchayats,omitempty"`
}
