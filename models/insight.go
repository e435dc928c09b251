package models

// RegionAffordability is the most recent affordability figure for one region.
type RegionAffordability struct {
	RegionName string
	Date       string
	Price      float64
	Ratio      float64
}

// InsightReport holds the computed analytics over the committed table.
type InsightReport struct {
	TotalRows       int
	TotalRegions    int
	RowsWithSalary  int
	FirstDate       string
	LastDate        string
	AverageRatio    float64
	MostAffordable  []RegionAffordability
	LeastAffordable []RegionAffordability
	RowsByRegion    map[string]int
}
