package autoblog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lightnindragon/listgenius/pkg/model"
)

type stubLocker struct {
	acquired bool
	err      error
	acquires int
	releases int
}

func (s *stubLocker) Acquire(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	s.acquires++
	return s.acquired, s.err
}

func (s *stubLocker) Release(ctx context.Context, ownerID uuid.UUID) error {
	s.releases++
	return nil
}

type stubGuard struct {
	published bool
	err       error
	calls     int
}

func (s *stubGuard) HasPublishedToday(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	s.calls++
	return s.published, s.err
}

type stubTopics struct {
	topic *TopicPackage
	err   error
	calls int
}

func (s *stubTopics) SelectTopic(ctx context.Context, ownerID uuid.UUID) (*TopicPackage, error) {
	s.calls++
	return s.topic, s.err
}

type stubWriter struct {
	content *GeneratedContent
	err     error
	calls   int
}

func (s *stubWriter) GenerateContent(ctx context.Context, ownerID uuid.UUID, topic *TopicPackage) (*GeneratedContent, error) {
	s.calls++
	return s.content, s.err
}

// stubGate pops one verdict per call and keeps returning the last one when
// the scripted verdicts run out.
type stubGate struct {
	verdicts []Assessment
	err      error
	calls    int
}

func (s *stubGate) Assess(ctx context.Context, postID string) (*Assessment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	verdict := s.verdicts[0]
	if len(s.verdicts) > 1 {
		s.verdicts = s.verdicts[1:]
	}
	return &verdict, nil
}

type stubReviser struct {
	err   error
	calls int
}

func (s *stubReviser) Revise(ctx context.Context, postID string) (int, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.calls, nil
}

type stubPublisher struct {
	url   string
	err   error
	calls int
}

func (s *stubPublisher) Publish(ctx context.Context, postID string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.url, nil
}

type stubReviews struct {
	err    error
	marked []string
}

func (s *stubReviews) MarkForManualReview(ctx context.Context, postID string) error {
	if s.err != nil {
		return s.err
	}
	s.marked = append(s.marked, postID)
	return nil
}

type stubRunStore struct {
	saved *model.PipelineRun
}

func (s *stubRunStore) SaveRun(ctx context.Context, run *model.PipelineRun) error {
	s.saved = run
	return nil
}

type fixture struct {
	locker    *stubLocker
	guard     *stubGuard
	topics    *stubTopics
	writer    *stubWriter
	gate      *stubGate
	reviser   *stubReviser
	publisher *stubPublisher
	reviews   *stubReviews
	runs      *stubRunStore
}

// newFixture wires stubs for a run that publishes on the first quality check.
func newFixture() *fixture {
	postID := uuid.NewString()
	return &fixture{
		locker: &stubLocker{acquired: true},
		guard:  &stubGuard{},
		topics: &stubTopics{topic: &TopicPackage{
			PrimaryKeyword:    "reseller listing tips",
			SecondaryKeywords: []string{"cross listing strategy"},
			Category:          "reselling",
			InternalLink:      "/blog/reseller-listing-tips",
			Source:            "trending",
		}},
		writer:    &stubWriter{content: &GeneratedContent{PostID: postID, WordCount: 1200}},
		gate:      &stubGate{verdicts: []Assessment{{Score: 92, Approved: true}}},
		reviser:   &stubReviser{},
		publisher: &stubPublisher{url: "https://example.com/blog/reseller-listing-tips"},
		reviews:   &stubReviews{},
		runs:      &stubRunStore{},
	}
}

func (f *fixture) pipeline(maxRevisions int) *Pipeline {
	return NewPipeline(PipelineParams{
		Guard:               f.guard,
		Locker:              f.locker,
		Topics:              f.topics,
		Writer:              f.writer,
		Gate:                f.gate,
		Reviser:             f.reviser,
		Publisher:           f.publisher,
		Reviews:             f.reviews,
		Runs:                f.runs,
		Logger:              zap.NewNop(),
		MaxRevisionAttempts: maxRevisions,
	})
}

func requireStages(t *testing.T, steps []Step, want ...Stage) {
	t.Helper()
	if len(steps) != len(want) {
		t.Fatalf("expected %d steps, got %d: %v", len(want), len(steps), stageNames(steps))
	}
	for i, stage := range want {
		if steps[i].Stage != stage {
			t.Fatalf("step %d: expected stage %s, got %s", i, stage, steps[i].Stage)
		}
	}
}

func stageNames(steps []Step) []Stage {
	names := make([]Stage, 0, len(steps))
	for _, step := range steps {
		names = append(names, step.Stage)
	}
	return names
}

func TestRunPublishesOnFirstApproval(t *testing.T) {
	f := newFixture()
	result := f.pipeline(3).Run(context.Background(), uuid.New())

	if !result.Success {
		t.Fatalf("expected success, got outcome %s error %q", result.Outcome, result.Error)
	}
	if result.Outcome != model.RunPublished {
		t.Fatalf("expected outcome %s, got %s", model.RunPublished, result.Outcome)
	}
	if result.PostID != f.writer.content.PostID {
		t.Fatalf("expected post id %s, got %s", f.writer.content.PostID, result.PostID)
	}
	requireStages(t, result.Steps,
		StageCheckExisting,
		StageGenerateTopic,
		StageGenerateContent,
		StageQualityCheck,
		StagePublishPost,
	)
	for i, step := range result.Steps {
		if step.Status != model.StepCompleted {
			t.Fatalf("step %d (%s): expected completed, got %s", i, step.Stage, step.Status)
		}
	}
	if f.reviser.calls != 0 {
		t.Fatalf("expected no revisions, got %d", f.reviser.calls)
	}
	if f.locker.releases != 1 {
		t.Fatalf("expected lock released once, got %d", f.locker.releases)
	}
	if f.runs.saved == nil {
		t.Fatal("expected run to be persisted")
	}
	if len(f.runs.saved.Steps) != len(result.Steps) {
		t.Fatalf("persisted %d steps, expected %d", len(f.runs.saved.Steps), len(result.Steps))
	}
	for i, step := range f.runs.saved.Steps {
		if step.Position != i {
			t.Fatalf("persisted step %d has position %d", i, step.Position)
		}
	}
}

func TestRunSkipsWhenAlreadyPublishedToday(t *testing.T) {
	f := newFixture()
	f.guard.published = true

	p := f.pipeline(3)
	for i := 0; i < 3; i++ {
		result := p.Run(context.Background(), uuid.New())

		if result.Success {
			t.Fatal("expected skip, got success")
		}
		if result.Outcome != model.RunSkipped {
			t.Fatalf("expected outcome %s, got %s", model.RunSkipped, result.Outcome)
		}
		requireStages(t, result.Steps, StageCheckExisting)
		if result.Steps[0].Status != model.StepCompleted {
			t.Fatalf("expected completed step, got %s", result.Steps[0].Status)
		}
	}

	if f.topics.calls != 0 || f.writer.calls != 0 || f.gate.calls != 0 || f.reviser.calls != 0 || f.publisher.calls != 0 {
		t.Fatalf("expected no collaborator calls, got topics=%d writer=%d gate=%d reviser=%d publisher=%d",
			f.topics.calls, f.writer.calls, f.gate.calls, f.reviser.calls, f.publisher.calls)
	}
}

func TestRunSkipsWhenLockHeldByOther(t *testing.T) {
	f := newFixture()
	f.locker.acquired = false

	result := f.pipeline(3).Run(context.Background(), uuid.New())

	if result.Outcome != model.RunSkipped {
		t.Fatalf("expected outcome %s, got %s", model.RunSkipped, result.Outcome)
	}
	requireStages(t, result.Steps, StageCheckExisting)
	if f.guard.calls != 0 {
		t.Fatalf("expected guard untouched, got %d calls", f.guard.calls)
	}
	if f.locker.releases != 0 {
		t.Fatalf("lock was never acquired but released %d times", f.locker.releases)
	}
}

func TestRunAbortsWhenGuardUnavailable(t *testing.T) {
	f := newFixture()
	f.guard.err = errors.New("store unreachable")

	result := f.pipeline(3).Run(context.Background(), uuid.New())

	if result.Outcome != model.RunAborted {
		t.Fatalf("expected outcome %s, got %s", model.RunAborted, result.Outcome)
	}
	requireStages(t, result.Steps, StageCheckExisting)
	if result.Steps[0].Status != model.StepFailed {
		t.Fatalf("expected failed step, got %s", result.Steps[0].Status)
	}
	if f.topics.calls != 0 || f.publisher.calls != 0 {
		t.Fatal("expected no collaborator calls after guard failure")
	}
}

func TestRunEndsWithoutErrorWhenNoTopicSurvives(t *testing.T) {
	f := newFixture()
	f.topics.topic = nil

	result := f.pipeline(3).Run(context.Background(), uuid.New())

	if result.Outcome != model.RunAborted {
		t.Fatalf("expected outcome %s, got %s", model.RunAborted, result.Outcome)
	}
	requireStages(t, result.Steps, StageCheckExisting, StageGenerateTopic)
	// An empty selection is an expected outcome, so the step itself succeeded.
	if result.Steps[1].Status != model.StepCompleted {
		t.Fatalf("expected completed step, got %s", result.Steps[1].Status)
	}
	if result.Error == "" {
		t.Fatal("expected an explanatory error message")
	}
	if f.writer.calls != 0 {
		t.Fatalf("expected no content generation, got %d calls", f.writer.calls)
	}
}

func TestRunFailsFastWhenContentGenerationFails(t *testing.T) {
	f := newFixture()
	f.writer.content = nil
	f.writer.err = errors.New("writer rejected the topic")

	result := f.pipeline(3).Run(context.Background(), uuid.New())

	if result.Outcome != model.RunAborted {
		t.Fatalf("expected outcome %s, got %s", model.RunAborted, result.Outcome)
	}
	requireStages(t, result.Steps, StageCheckExisting, StageGenerateTopic, StageGenerateContent)
	if result.Steps[2].Status != model.StepFailed {
		t.Fatalf("expected failed step, got %s", result.Steps[2].Status)
	}
	if f.gate.calls != 0 || f.reviser.calls != 0 || f.publisher.calls != 0 {
		t.Fatalf("expected no later stages, got gate=%d reviser=%d publisher=%d",
			f.gate.calls, f.reviser.calls, f.publisher.calls)
	}
}

func TestRunPublishesAfterOneRevision(t *testing.T) {
	f := newFixture()
	f.gate.verdicts = []Assessment{
		{Score: 61, Approved: false},
		{Score: 88, Approved: true},
	}

	result := f.pipeline(3).Run(context.Background(), uuid.New())

	if !result.Success {
		t.Fatalf("expected success, got outcome %s error %q", result.Outcome, result.Error)
	}
	requireStages(t, result.Steps,
		StageCheckExisting,
		StageGenerateTopic,
		StageGenerateContent,
		StageQualityCheck,
		StageReviseContent,
		StageQualityCheck,
		StagePublishPost,
	)
	if f.reviser.calls != 1 {
		t.Fatalf("expected 1 revision, got %d", f.reviser.calls)
	}
}

func TestRunSavesDraftWhenRevisionsExhausted(t *testing.T) {
	f := newFixture()
	f.gate.verdicts = []Assessment{{Score: 40, Approved: false}}

	result := f.pipeline(3).Run(context.Background(), uuid.New())

	if result.Success {
		t.Fatal("expected failure, got success")
	}
	if result.Outcome != model.RunDraft {
		t.Fatalf("expected outcome %s, got %s", model.RunDraft, result.Outcome)
	}
	requireStages(t, result.Steps,
		StageCheckExisting,
		StageGenerateTopic,
		StageGenerateContent,
		StageQualityCheck,
		StageReviseContent,
		StageQualityCheck,
		StageReviseContent,
		StageQualityCheck,
		StageReviseContent,
		StageQualityCheck,
	)
	if f.reviser.calls != 3 {
		t.Fatalf("expected exactly 3 revisions, got %d", f.reviser.calls)
	}
	if f.gate.calls != 4 {
		t.Fatalf("expected 4 quality checks, got %d", f.gate.calls)
	}
	if f.publisher.calls != 0 {
		t.Fatalf("unapproved content must never publish, got %d calls", f.publisher.calls)
	}
	if len(f.reviews.marked) != 1 || f.reviews.marked[0] != f.writer.content.PostID {
		t.Fatalf("expected post %s parked for review, got %v", f.writer.content.PostID, f.reviews.marked)
	}
	if result.PostID != f.writer.content.PostID {
		t.Fatalf("expected draft post id in result, got %q", result.PostID)
	}
}

func TestRunAbortsWhenRevisionFails(t *testing.T) {
	f := newFixture()
	f.gate.verdicts = []Assessment{{Score: 40, Approved: false}}
	f.reviser.err = errors.New("reviser unavailable")

	result := f.pipeline(3).Run(context.Background(), uuid.New())

	if result.Outcome != model.RunAborted {
		t.Fatalf("expected outcome %s, got %s", model.RunAborted, result.Outcome)
	}
	last := result.Steps[len(result.Steps)-1]
	if last.Stage != StageReviseContent || last.Status != model.StepFailed {
		t.Fatalf("expected failed revise_content step, got %s/%s", last.Stage, last.Status)
	}
	if f.publisher.calls != 0 {
		t.Fatalf("expected no publish, got %d calls", f.publisher.calls)
	}
}

func TestRunAbortsWhenQualityGateFails(t *testing.T) {
	f := newFixture()
	f.gate.err = errors.New("scoring service down")

	result := f.pipeline(3).Run(context.Background(), uuid.New())

	if result.Outcome != model.RunAborted {
		t.Fatalf("expected outcome %s, got %s", model.RunAborted, result.Outcome)
	}
	last := result.Steps[len(result.Steps)-1]
	if last.Stage != StageQualityCheck || last.Status != model.StepFailed {
		t.Fatalf("expected failed quality_check step, got %s/%s", last.Stage, last.Status)
	}
	if f.reviser.calls != 0 || f.publisher.calls != 0 {
		t.Fatal("expected no later stages after gate failure")
	}
}

func TestRunAbortsWhenPublishFails(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("duplicate publish rejected")

	result := f.pipeline(3).Run(context.Background(), uuid.New())

	if result.Outcome != model.RunAborted {
		t.Fatalf("expected outcome %s, got %s", model.RunAborted, result.Outcome)
	}
	last := result.Steps[len(result.Steps)-1]
	if last.Stage != StagePublishPost || last.Status != model.StepFailed {
		t.Fatalf("expected failed publish_post step, got %s/%s", last.Stage, last.Status)
	}
	if result.PostID != f.writer.content.PostID {
		t.Fatalf("expected artifact reference preserved, got %q", result.PostID)
	}
}

func TestRunStepSequenceIsAlwaysAPrefix(t *testing.T) {
	cases := map[string]func(*fixture){
		"happy path":          func(f *fixture) {},
		"guard error":         func(f *fixture) { f.guard.err = errors.New("down") },
		"no topic":            func(f *fixture) { f.topics.topic = nil },
		"writer error":        func(f *fixture) { f.writer.err = errors.New("down") },
		"gate error":          func(f *fixture) { f.gate.err = errors.New("down") },
		"never approved":      func(f *fixture) { f.gate.verdicts = []Assessment{{Approved: false}} },
		"approved second try": func(f *fixture) { f.gate.verdicts = []Assessment{{Approved: false}, {Approved: true}} },
		"publish error":       func(f *fixture) { f.publisher.err = errors.New("down") },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			mutate(f)
			result := f.pipeline(3).Run(context.Background(), uuid.New())

			if got := stageNames(result.Steps); !isStagePrefix(got) {
				t.Fatalf("step sequence %v is not a valid prefix", got)
			}
		})
	}
}

// isStagePrefix checks the recorded stages against the grammar
// check_existing, generate_topic, generate_content, quality_check,
// (revise_content, quality_check)*, publish_post.
func isStagePrefix(got []Stage) bool {
	head := []Stage{StageCheckExisting, StageGenerateTopic, StageGenerateContent, StageQualityCheck}
	i := 0
	for _, stage := range head {
		if i == len(got) {
			return true
		}
		if got[i] != stage {
			return false
		}
		i++
	}
	for i < len(got) && got[i] == StageReviseContent {
		i++
		if i == len(got) {
			return true
		}
		if got[i] != StageQualityCheck {
			return false
		}
		i++
	}
	if i < len(got) {
		if got[i] != StagePublishPost {
			return false
		}
		i++
	}
	return i == len(got)
}

func TestRunRespectsConfiguredRevisionBudget(t *testing.T) {
	f := newFixture()
	f.gate.verdicts = []Assessment{{Approved: false}}

	result := f.pipeline(1).Run(context.Background(), uuid.New())

	if result.Outcome != model.RunDraft {
		t.Fatalf("expected outcome %s, got %s", model.RunDraft, result.Outcome)
	}
	if f.reviser.calls != 1 {
		t.Fatalf("expected 1 revision with budget 1, got %d", f.reviser.calls)
	}
	if f.gate.calls != 2 {
		t.Fatalf("expected 2 quality checks with budget 1, got %d", f.gate.calls)
	}
}
