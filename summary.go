package main

import "sort"

// Summarize aggregates assignments into per-category counts and
// percentages. Sentinel labels count like any other category. Entries
// come out sorted by count descending, ties broken by name.
func Summarize(assignments []Assignment) Summary {
	if len(assignments) == 0 {
		return Summary{TotalComplaints: 0, CategoryDistribution: []DistributionEntry{}}
	}

	counts := make(map[string]int)
	for _, a := range assignments {
		counts[a.Category]++
	}

	total := len(assignments)
	distribution := make([]DistributionEntry, 0, len(counts))
	for category, count := range counts {
		distribution = append(distribution, DistributionEntry{
			Category:   category,
			Count:      count,
			Percentage: roundTo(float64(count)/float64(total)*100, 2),
		})
	}
	sort.SliceStable(distribution, func(i, j int) bool {
		if distribution[i].Count != distribution[j].Count {
			return distribution[i].Count > distribution[j].Count
		}
		return distribution[i].Category < distribution[j].Category
	})

	return Summary{TotalComplaints: total, CategoryDistribution: distribution}
}
