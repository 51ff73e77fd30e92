package products

import (
	"sort"
	"strings"
)

// SortByRelevance: сначала названия, начинающиеся с запроса, затем по алфавиту.
func SortByRelevance(list []Product, query string) {
	q := strings.ToLower(query)
	sort.SliceStable(list, func(i, j int) bool {
		a := strings.ToLower(list[i].Name)
		b := strings.ToLower(list[j].Name)
		ap, bp := strings.HasPrefix(a, q), strings.HasPrefix(b, q)
		if ap != bp {
			return ap
		}
		return a < b
	})
}
