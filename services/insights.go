package services

import (
	"fmt"
	"sort"
	"strings"

	"hpi-affordability/models"
	"hpi-affordability/utils"
)

const rankedRegions = 5

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarises a committed snapshot. Rows may be in any order.
func (s *InsightService) Generate(rows []models.AffordabilityRow) *models.InsightReport {
	report := &models.InsightReport{
		RowsByRegion: make(map[string]int),
	}

	if len(rows) == 0 {
		s.logger.Warn("[insights] No rows to summarise")
		return report
	}

	report.TotalRows = len(rows)

	latest := make(map[string]models.AffordabilityRow)
	var ratioTotal float64
	var ratioCount int

	for _, r := range rows {
		report.RowsByRegion[r.RegionName]++

		d := r.DateString()
		if report.FirstDate == "" || d < report.FirstDate {
			report.FirstDate = d
		}
		if d > report.LastDate {
			report.LastDate = d
		}

		if r.AverageAnnualSalary != nil {
			report.RowsWithSalary++
		}
		if r.AffordabilityRatio == nil {
			continue
		}
		ratioTotal += *r.AffordabilityRatio
		ratioCount++

		if cur, ok := latest[r.RegionName]; !ok || r.Date.After(cur.Date) {
			latest[r.RegionName] = r
		}
	}

	report.TotalRegions = len(report.RowsByRegion)
	if ratioCount > 0 {
		report.AverageRatio = round2(ratioTotal / float64(ratioCount))
	}

	ranked := make([]models.RegionAffordability, 0, len(latest))
	for name, r := range latest {
		ranked = append(ranked, models.RegionAffordability{
			RegionName: name,
			Date:       r.DateString(),
			Price:      r.AveragePrice,
			Ratio:      round2(*r.AffordabilityRatio),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Ratio != ranked[j].Ratio {
			return ranked[i].Ratio < ranked[j].Ratio
		}
		return ranked[i].RegionName < ranked[j].RegionName
	})

	n := min(rankedRegions, len(ranked))
	report.MostAffordable = append([]models.RegionAffordability(nil), ranked[:n]...)
	for i := len(ranked) - 1; i >= len(ranked)-n; i-- {
		report.LeastAffordable = append(report.LeastAffordable, ranked[i])
	}

	s.logger.Info("[insights] %d rows across %d regions (%s to %s), %d ranked by latest ratio",
		report.TotalRows, report.TotalRegions, report.FirstDate, report.LastDate, len(ranked))

	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  🏠 UK HOUSE PRICE AFFORDABILITY\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Rows committed     : \033[1m%d\033[0m\n", r.TotalRows)
	fmt.Printf("  Regions            : \033[1m%d\033[0m\n", r.TotalRegions)
	fmt.Printf("  Rows with salary   : \033[1m%d\033[0m\n", r.RowsWithSalary)
	if r.FirstDate != "" {
		fmt.Printf("  Period             : %s → %s\n", r.FirstDate, r.LastDate)
	}
	if r.AverageRatio > 0 {
		fmt.Printf("  Mean price/salary  : \033[1;32m%.2f×\033[0m\n", r.AverageRatio)
	}
	fmt.Println()

	printRanking("Most Affordable (latest month)", r.MostAffordable, thin, "32")
	printRanking("Least Affordable (latest month)", r.LeastAffordable, thin, "31")

	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)
}

func printRanking(title string, entries []models.RegionAffordability, thin, colour string) {
	fmt.Printf("\033[1;33m  %s\033[0m\n", title)
	fmt.Printf("  %s\n", thin)
	if len(entries) == 0 {
		fmt.Printf("  No affordability data\n\n")
		return
	}
	for i, e := range entries {
		fmt.Printf("  \033[1m%d.\033[0m %-28s %s £%-9.0f \033[1;%sm%6.2f×\033[0m\n",
			i+1, truncate(e.RegionName, 26), e.Date, e.Price, colour, e.Ratio)
	}
	fmt.Println()
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
