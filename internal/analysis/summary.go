package analysis

import (
	"civitai/harvester/internal/domain"
)

const unknownType = "unknown"

// Summary holds the distributions printed before the viewer starts.
type Summary struct {
	NSFWLevels       *FrequencyTable
	BaseModels       *FrequencyTable
	ResourceTypes    *FrequencyTable
	CivitaiResources *FrequencyTable
	LikeScores       []int64
}

// Summarize computes the viewer's overview. Items without a base model are
// left out of that distribution; resources without a type count as unknown.
func Summarize(items []domain.Item) *Summary {
	s := &Summary{
		NSFWLevels:       NewFrequencyTable("nsfw", "nsfw_level"),
		BaseModels:       NewFrequencyTable("base_model", "base_model"),
		ResourceTypes:    NewFrequencyTable("resources", "type"),
		CivitaiResources: NewFrequencyTable("civitai_resources", "type"),
		LikeScores:       make([]int64, 0, len(items)),
	}

	for _, item := range items {
		s.NSFWLevels.Add(item.NSFWLevel)
		if item.BaseModel.Valid {
			s.BaseModels.Add(item.BaseModel)
		}
		s.LikeScores = append(s.LikeScores, item.LikeScore())

		if item.Meta == nil {
			continue
		}
		for _, r := range item.Meta.Resources {
			s.ResourceTypes.Add(typeOf(r))
		}
		for _, r := range item.Meta.CivitaiResources {
			s.CivitaiResources.Add(typeOf(r))
		}
	}

	return s
}

func typeOf(r domain.ResourceRef) domain.Field {
	if !r.Type.Valid {
		return domain.Some(unknownType)
	}
	return r.Type
}
