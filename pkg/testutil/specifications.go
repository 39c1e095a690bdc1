package testutil

import (
	"github.com/science-periodicals/librarian-sub000/pkg/models"
)

// Template identifiers of the test specifications.
const (
	SubmissionStageID   = "workflow:submission"
	SubmissionReleaseID = "workflow:submission-release"
	SubmissionAssessID  = "workflow:submission-assess"
	RejectID            = "workflow:reject"
	ProductionStageID   = "workflow:production"
	PublishID           = "workflow:publish"
	ReviewID            = "workflow:review"
	DeclareID           = "workflow:declare"
	ReviseInformID      = "workflow:inform-revise"
	RejectInformID      = "workflow:inform-reject"
	ReviseEmailID       = "workflow:email-revise"
	RejectEmailID       = "workflow:email-reject"
	ReviewQuestionID    = "workflow:question-review"
	DeclareQuestionID   = "workflow:question-declare"
)

// TwoStageSpecification is a submission stage (an author creates a release,
// an editor assesses it) that either rejects the submission or moves to a
// production stage where the editor publishes.
func TwoStageSpecification() *models.WorkflowSpecification {
	production := CreateTestAction(
		WithID(ProductionStageID),
		WithName("Production"),
		WithStageActions(models.Embed(CreateTestAction(
			WithID(PublishID),
			WithType(models.ActionTypePublish),
			WithAgent("editor"),
		))),
	)

	assess := CreateTestAction(
		WithID(SubmissionAssessID),
		WithType(models.ActionTypeAssess),
		WithAgent("editor"),
		WithRequires(SubmissionReleaseID),
		WithPotentialResult(
			models.Embed(CreateTestAction(WithID(RejectID), WithType(models.ActionTypeReject), WithAgent(""))),
			models.Embed(production),
		),
	)

	submission := CreateTestAction(
		WithID(SubmissionStageID),
		WithName("Submission"),
		WithStageActions(models.Embed(CreateTestAction(
			WithID(SubmissionReleaseID),
			WithAgent("author"),
			WithRelease("", models.Embed(assess)),
		))),
	)

	return CreateTestSpecification(models.Embed(submission))
}

// PeerReviewSpecification extends the two stage workflow with three
// reviewers, an author declaration, a revision loop back to the submission
// stage and notification emails conditioned on the editor's decision.
func PeerReviewSpecification() *models.WorkflowSpecification {
	production := CreateTestAction(
		WithID(ProductionStageID),
		WithName("Production"),
		WithStageActions(models.Embed(CreateTestAction(
			WithID(PublishID),
			WithType(models.ActionTypePublish),
			WithAgent("editor"),
		))),
	)

	declare := CreateTestAction(
		WithID(DeclareID),
		WithType(models.ActionTypeDeclare),
		WithAgent("author"),
		WithQuestions(DeclareQuestionID),
	)

	review := CreateTestAction(
		WithID(ReviewID),
		WithType(models.ActionTypeReview),
		WithAgent("reviewer"),
		WithInstances(0, 3),
		WithRequires(DeclareID),
		WithReviewQuestion(ReviewQuestionID),
	)

	assess := CreateTestAction(
		WithID(SubmissionAssessID),
		WithType(models.ActionTypeAssess),
		WithAgent("editor"),
		WithRequires(ReviewID),
		WithPotentialResult(
			models.Embed(CreateTestAction(WithID(RejectID), WithType(models.ActionTypeReject), WithAgent(""))),
			models.RefTo(SubmissionStageID),
			models.Embed(production),
		),
		WithPotentialAction(
			models.Embed(CreateTestAction(
				WithID(ReviseInformID),
				WithAgent("editor"),
				WithIfMatch(SubmissionStageID),
				WithEmail(ReviseEmailID, SubmissionAssessID, ReviewID),
			)),
			models.Embed(CreateTestAction(
				WithID(RejectInformID),
				WithAgent("editor"),
				WithIfMatch(RejectID),
				WithEmail(RejectEmailID, SubmissionAssessID),
			)),
		),
	)

	submission := CreateTestAction(
		WithID(SubmissionStageID),
		WithName("Submission"),
		WithStageActions(models.Embed(CreateTestAction(
			WithID(SubmissionReleaseID),
			WithAgent("author"),
			WithRelease("", models.Embed(declare), models.Embed(review), models.Embed(assess)),
		))),
	)

	return CreateTestSpecification(models.Embed(submission))
}
