package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"agent-optimus/models"
	"agent-optimus/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(properties []*models.PropertyRecord) *models.InsightReport {
	report := &models.InsightReport{
		BySuburb: make(map[string]int),
	}

	if len(properties) == 0 {
		return report
	}

	report.TotalProperties = len(properties)

	var priced []*models.PropertyRecord
	var withBedrooms []*models.PropertyRecord

	for _, p := range properties {
		if p.Status == models.PropertyStatusActive {
			report.ActiveProperties++
		}
		if p.IsAIEnabled {
			report.AIEnabled++
		}
		if p.Price > 0 {
			priced = append(priced, p)
		}
		if p.Bedrooms != nil {
			withBedrooms = append(withBedrooms, p)
		}
		if p.Suburb != "" {
			report.BySuburb[p.Suburb]++
		}
	}

	// Price stats (only properties with a price)
	if len(priced) > 0 {
		report.MinPrice = priced[0].Price
		report.MaxPrice = priced[0].Price
		report.MostExpensive = priced[0]
		var total float64
		for _, p := range priced {
			total += float64(p.Price)
			if p.Price < report.MinPrice {
				report.MinPrice = p.Price
			}
			if p.Price > report.MaxPrice {
				report.MaxPrice = p.Price
				report.MostExpensive = p
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
	}

	// Top 5 by bedrooms, price breaks ties
	sort.SliceStable(withBedrooms, func(i, j int) bool {
		bi, bj := *withBedrooms[i].Bedrooms, *withBedrooms[j].Bedrooms
		if bi != bj {
			return bi > bj
		}
		return withBedrooms[i].Price > withBedrooms[j].Price
	})
	if len(withBedrooms) > 5 {
		report.LargestHomes = withBedrooms[:5]
	} else {
		report.LargestHomes = withBedrooms
	}

	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  PROPERTY CATALOGUE INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total properties : \033[1m%d\033[0m\n", r.TotalProperties)
	fmt.Fprintf(w, "  Active           : \033[1m%d\033[0m\n", r.ActiveProperties)
	fmt.Fprintf(w, "  AI enabled       : \033[1m%d\033[0m\n", r.AIEnabled)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average price : \033[1;32mR %s\033[0m\n", formatRand(int64(r.AveragePrice+0.5)))
		fmt.Fprintf(w, "  Minimum price : \033[1;32mR %s\033[0m\n", formatRand(r.MinPrice))
		fmt.Fprintf(w, "  Maximum price : \033[1;32mR %s\033[0m\n", formatRand(r.MaxPrice))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Fprintf(w, "  Suburb : %s\n", r.MostExpensive.Suburb)
		fmt.Fprintf(w, "  Price  : \033[1;31mR %s\033[0m\n", formatRand(r.MostExpensive.Price))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Largest Homes\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.LargestHomes) == 0 {
		fmt.Fprintf(w, "  No bedroom data\n")
	} else {
		for i, p := range r.LargestHomes {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%d bed\033[0m\n",
				i+1, truncate(p.Title, 38), *p.Bedrooms)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings by Suburb\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.BySuburb) == 0 {
		fmt.Fprintf(w, "  No suburb data\n")
	} else {
		type suburbCount struct {
			suburb string
			count  int
		}
		var suburbs []suburbCount
		for suburb, cnt := range r.BySuburb {
			suburbs = append(suburbs, suburbCount{suburb, cnt})
		}
		sort.Slice(suburbs, func(i, j int) bool {
			if suburbs[i].count != suburbs[j].count {
				return suburbs[i].count > suburbs[j].count
			}
			return suburbs[i].suburb < suburbs[j].suburb
		})
		for _, sc := range suburbs {
			bar := strings.Repeat("█", sc.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(sc.suburb, 28), bar, sc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// formatRand groups thousands with spaces: 1500000 → "1 500 000".
func formatRand(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		return "-" + formatRand(-n)
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
	}
	return b.String()
}
