package post

import (
	"sort"

	"github.com/hitoshi/mdpress/internal/model"
)

// Filter は記事一覧の絞り込み条件。ゼロ値のフィールドは条件に含めない。
type Filter struct {
	Year  int
	Month string
	Tag   string
}

// IsZero は条件が1つも指定されていないかを返す。
func (f Filter) IsZero() bool {
	return f.Year == 0 && f.Month == "" && f.Tag == ""
}

// ApplyFilter は条件に完全一致する記事のみを元の順序のまま返す。
func ApplyFilter(posts []model.Post, f Filter) []model.Post {
	if f.IsZero() {
		return posts
	}

	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if f.Year != 0 && p.Year != f.Year {
			continue
		}
		if f.Month != "" && p.Month != f.Month {
			continue
		}
		if f.Tag != "" && !hasTag(p.Tags, f.Tag) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Facets は一覧画面の絞り込み候補。
type Facets struct {
	Years  []int    `json:"years"`  // 降順
	Months []string `json:"months"` // 出現順
	Tags   []string `json:"tags"`   // 出現順
}

// BuildFacets は記事一覧から年・月・タグの一意な候補を集める。
// 日付を解釈できなかった記事の年・月は含めない。
func BuildFacets(posts []model.Post) Facets {
	facets := Facets{
		Years:  []int{},
		Months: []string{},
		Tags:   []string{},
	}

	seenYears := make(map[int]struct{})
	seenMonths := make(map[string]struct{})
	seenTags := make(map[string]struct{})

	for _, p := range posts {
		if p.Year != 0 {
			if _, ok := seenYears[p.Year]; !ok {
				seenYears[p.Year] = struct{}{}
				facets.Years = append(facets.Years, p.Year)
			}
		}
		if p.Month != "" {
			if _, ok := seenMonths[p.Month]; !ok {
				seenMonths[p.Month] = struct{}{}
				facets.Months = append(facets.Months, p.Month)
			}
		}
		for _, t := range p.Tags {
			if _, ok := seenTags[t]; !ok {
				seenTags[t] = struct{}{}
				facets.Tags = append(facets.Tags, t)
			}
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(facets.Years)))
	return facets
}
