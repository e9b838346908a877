package analysis

import (
	"sort"

	"civitai/harvester/internal/domain"
)

// Table names, in menu order.
const (
	TableBaseModel           = "base_model"
	TableResources           = "resources"
	TableCivitaiResources    = "civitai_resources"
	TableAdditionalResources = "additional_resources"
)

// Row is one line of the two-column projection of a FrequencyTable.
type Row struct {
	Key   domain.Field
	Count int
}

// FrequencyTable counts occurrences of a categorical key. Null keys are a
// bucket of their own.
type FrequencyTable struct {
	Name   string
	Column string

	counts map[domain.Field]int
	order  []domain.Field
}

func NewFrequencyTable(name, column string) *FrequencyTable {
	return &FrequencyTable{
		Name:   name,
		Column: column,
		counts: make(map[domain.Field]int),
	}
}

func (t *FrequencyTable) Add(key domain.Field) {
	if _, seen := t.counts[key]; !seen {
		t.order = append(t.order, key)
	}
	t.counts[key]++
}

func (t *FrequencyTable) Count(key domain.Field) int {
	return t.counts[key]
}

// Len is the number of distinct keys.
func (t *FrequencyTable) Len() int {
	return len(t.order)
}

// Total is the sum of all counts.
func (t *FrequencyTable) Total() int {
	n := 0
	for _, c := range t.counts {
		n += c
	}
	return n
}

// Map returns the counts keyed by display label.
func (t *FrequencyTable) Map() map[string]int {
	out := make(map[string]int, len(t.counts))
	for k, c := range t.counts {
		out[k.String()] += c
	}
	return out
}

// Rows returns the table in first-seen order.
func (t *FrequencyTable) Rows() []Row {
	rows := make([]Row, 0, len(t.order))
	for _, k := range t.order {
		rows = append(rows, Row{Key: k, Count: t.counts[k]})
	}
	return rows
}

// MostCommon returns rows by descending count, ties in first-seen order.
func (t *FrequencyTable) MostCommon() []Row {
	rows := t.Rows()
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})
	return rows
}

// Filter returns the rows whose count is at least threshold, in first-seen order.
func (t *FrequencyTable) Filter(threshold int) []Row {
	rows := make([]Row, 0)
	for _, r := range t.Rows() {
		if r.Count >= threshold {
			rows = append(rows, r)
		}
	}
	return rows
}

// Counts is the numeric count column, in first-seen order.
func (t *FrequencyTable) Counts() []int {
	out := make([]int, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, t.counts[k])
	}
	return out
}

// Tables is the result of one aggregation run.
type Tables struct {
	BaseModel           *FrequencyTable
	Resources           *FrequencyTable
	CivitaiResources    *FrequencyTable
	AdditionalResources *FrequencyTable
}

// Ordered lists the tables in menu order.
func (t *Tables) Ordered() []*FrequencyTable {
	return []*FrequencyTable{t.BaseModel, t.Resources, t.CivitaiResources, t.AdditionalResources}
}

// BuildTables counts base models and the three resource lists. Base models
// are only counted when present; resource entries are counted under their
// raw key, null included.
func BuildTables(items []domain.Item) *Tables {
	tables := &Tables{
		BaseModel:           NewFrequencyTable(TableBaseModel, "model_name"),
		Resources:           NewFrequencyTable(TableResources, "resource"),
		CivitaiResources:    NewFrequencyTable(TableCivitaiResources, "civitai_resource"),
		AdditionalResources: NewFrequencyTable(TableAdditionalResources, "additional_resource"),
	}

	for _, item := range items {
		if item.BaseModel.Present() {
			tables.BaseModel.Add(item.BaseModel)
		}

		if item.Meta == nil {
			continue
		}
		for _, r := range item.Meta.Resources {
			tables.Resources.Add(r.Name)
		}
		for _, r := range item.Meta.CivitaiResources {
			tables.CivitaiResources.Add(r.ModelVersionID)
		}
		for _, r := range item.Meta.AdditionalResources {
			tables.AdditionalResources.Add(r.Name)
		}
	}

	return tables
}
