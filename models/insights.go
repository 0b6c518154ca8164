package models

// InsightReport holds analytics over an agent's property catalogue.
type InsightReport struct {
	TotalProperties  int               `json:"totalProperties"`
	ActiveProperties int               `json:"activeProperties"`
	AIEnabled        int               `json:"aiEnabled"`
	AveragePrice     float64           `json:"averagePrice"`
	MinPrice         int64             `json:"minPrice"`
	MaxPrice         int64             `json:"maxPrice"`
	MostExpensive    *PropertyRecord   `json:"mostExpensive,omitempty"`
	LargestHomes     []*PropertyRecord `json:"largestHomes"`
	BySuburb         map[string]int    `json:"bySuburb"`
}
