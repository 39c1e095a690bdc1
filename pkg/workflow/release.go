package workflow

import (
	"fmt"

	"github.com/science-periodicals/librarian-sub000/pkg/models"
	"github.com/science-periodicals/librarian-sub000/pkg/version"
)

var revisionReleaseTypes = map[models.RevisionType]version.ReleaseType{
	models.RevisionTypePatch: version.PrePatch,
	models.RevisionTypeMinor: version.PreMinor,
	models.RevisionTypeMajor: version.PreMajor,
}

// releaseType returns the increment a CreateReleaseAction template applies.
// The template may name one in `result.version`; the editor's revision
// decision on the AssessAction that started the stage takes precedence.
func releaseType(tmpl, resultOf *models.Action) version.ReleaseType {
	rt := version.PreMajor

	if release := tmpl.Release(); release != nil {
		if t, ok := version.ParseReleaseType(release.Version); ok {
			rt = t
		}
	}

	if resultOf.Is(models.ActionTypeAssess) {
		if t, ok := revisionReleaseTypes[resultOf.RevisionType]; ok {
			rt = t
		}
	}

	return rt
}

// nextReleaseVersion is the version a CreateReleaseAction instantiated from
// tmpl produces. The first release of a Graph is version.Initial.
func nextReleaseVersion(tmpl *models.Action, graphVersion string, resultOf *models.Action) (string, error) {
	if graphVersion == "" {
		return version.Initial, nil
	}

	next, err := version.Inc(graphVersion, releaseType(tmpl, resultOf))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	return next, nil
}

// publishVersion is the public version a PublishAction releases: the patch
// increment of the current pre-release.
func publishVersion(current string) (string, error) {
	if current == "" {
		current = version.Initial
	}

	v, err := version.Inc(current, version.Patch)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	return v, nil
}

// stageRelease returns the CreateReleaseAction template of a stage, if any.
func (m Map) stageRelease(stage *models.Action) *models.Action {
	for _, ref := range stage.StageActions() {
		if tmpl := m.Resolve(ref); tmpl.Is(models.ActionTypeCreateRelease) {
			return tmpl
		}
	}

	return nil
}
