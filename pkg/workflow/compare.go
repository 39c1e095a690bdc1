package workflow

import (
	"cmp"

	"github.com/science-periodicals/librarian-sub000/pkg/models"
)

// typePriority orders action types along a typical stage timeline.
var typePriority = map[models.ActionType]int{
	models.ActionTypeCreateRelease: 0,
	models.ActionTypeDeclare:       1,
	models.ActionTypePay:           2,
	models.ActionTypeBuy:           3,
	models.ActionTypeReview:        4,
	models.ActionTypeEndorse:       5,
	models.ActionTypeTypesetting:   6,
	models.ActionTypeAuthorize:     7,
	models.ActionTypeDeauthorize:   8,
	models.ActionTypeSchedule:      9,
	models.ActionTypeAssess:        10,
	models.ActionTypePublish:       11,
	models.ActionTypeInform:        12,
	models.ActionTypeReject:        13,
}

func priority(t models.ActionType) int {
	if p, ok := typePriority[t]; ok {
		return p
	}

	return len(typePriority)
}

func instanceIndex(a *models.Action) int {
	if a.InstanceIndex == nil {
		return 0
	}

	return *a.InstanceIndex
}

// CompareActions is a total order over the actions of a stage: by type
// priority, then instance index, then template, then identifier.
func CompareActions(a, b *models.Action) int {
	if c := cmp.Compare(priority(a.Type), priority(b.Type)); c != 0 {
		return c
	}

	if c := cmp.Compare(instanceIndex(a), instanceIndex(b)); c != 0 {
		return c
	}

	if c := cmp.Compare(a.InstanceOf, b.InstanceOf); c != 0 {
		return c
	}

	return cmp.Compare(a.ID, b.ID)
}
