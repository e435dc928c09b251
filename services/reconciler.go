package services

import (
	"sort"

	"hpi-affordability/models"
	"hpi-affordability/utils"
)

type salaryKey struct {
	year   int
	region string
}

// Reconciler joins monthly prices to annual salaries and derives the
// affordability ratio.
type Reconciler struct {
	logger *utils.Logger
}

// NewReconciler creates a Reconciler with the given logger.
func NewReconciler(logger *utils.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

type mergedRow struct {
	price  models.PriceObservation
	salary *float64
}

// Reconcile left-joins prices to salaries on (year, parent region), fills
// salary gaps within each parent region and computes the ratio. Output is
// ordered by (region name, date). Salary data is expected to be unique per
// (year, region); when it is not, the first row wins.
func (r *Reconciler) Reconcile(prices []models.PriceObservation, salaries []models.SalaryObservation) []models.AffordabilityRow {
	index := r.indexSalaries(salaries)

	merged := make([]mergedRow, len(prices))
	matched := 0
	for i, p := range prices {
		merged[i] = mergedRow{price: p}
		if s, ok := index[salaryKey{p.Year, NormaliseRegion(p.ParentRegion)}]; ok {
			v := s
			merged[i].salary = &v
			matched++
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i].price, merged[j].price
		if a.RegionName != b.RegionName {
			return a.RegionName < b.RegionName
		}
		return a.Date.Before(b.Date)
	})

	filled := fillByParent(merged)

	out := make([]models.AffordabilityRow, len(merged))
	withRatio := 0
	for i, m := range merged {
		out[i] = models.AffordabilityRow{
			Date:                m.price.Date,
			RegionName:          m.price.RegionName,
			AveragePrice:        m.price.AveragePrice,
			Index:               m.price.Index,
			AverageAnnualSalary: m.salary,
			AffordabilityRatio:  ratio(m.price.AveragePrice, m.salary),
		}
		if out[i].AffordabilityRatio != nil {
			withRatio++
		}
	}

	r.logger.Info("[reconciler] %d price rows: %d joined directly, %d filled, %d with a ratio",
		len(prices), matched, filled, withRatio)
	return out
}

func (r *Reconciler) indexSalaries(salaries []models.SalaryObservation) map[salaryKey]float64 {
	index := make(map[salaryKey]float64, len(salaries))
	for _, s := range salaries {
		key := salaryKey{s.Year, NormaliseRegion(s.RegionName)}
		if _, dup := index[key]; dup {
			r.logger.Warn("[reconciler] Duplicate salary for %s/%d ignored", key.region, key.year)
			continue
		}
		index[key] = s.AverageAnnualSalary
	}
	return index
}

// fillByParent forward-fills then back-fills salary within each parent
// region, walking rows in their current order. Returns the number of rows filled.
func fillByParent(rows []mergedRow) int {
	groups := make(map[string][]int)
	var order []string
	for i, m := range rows {
		p := m.price.ParentRegion
		if _, ok := groups[p]; !ok {
			order = append(order, p)
		}
		groups[p] = append(groups[p], i)
	}

	filled := 0
	for _, p := range order {
		idx := groups[p]

		var last *float64
		for _, i := range idx {
			if rows[i].salary != nil {
				last = rows[i].salary
			} else if last != nil {
				rows[i].salary = copyFloat(last)
				filled++
			}
		}

		var next *float64
		for k := len(idx) - 1; k >= 0; k-- {
			i := idx[k]
			if rows[i].salary != nil {
				next = rows[i].salary
			} else if next != nil {
				rows[i].salary = copyFloat(next)
				filled++
			}
		}
	}
	return filled
}

func ratio(price float64, salary *float64) *float64 {
	if salary == nil || *salary == 0 {
		return nil
	}
	v := price / *salary
	return &v
}

func copyFloat(v *float64) *float64 {
	c := *v
	return &c
}
