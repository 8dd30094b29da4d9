package interview

import (
	"sort"
	"strings"
	"time"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusCreated    Status = "created"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// SkippedAnswerText is stored as the text of a skipped answer.
const SkippedAnswerText = "[Question skipped by interviewer]"

// Question is immutable once planned.
type Question struct {
	ID        string   `json:"id" yaml:"id"`
	SessionID string   `json:"session_id" yaml:"session_id"`
	Text      string   `json:"text" yaml:"text"`
	Context   string   `json:"context,omitempty" yaml:"context,omitempty"`
	Category  Category `json:"category" yaml:"category"`
	Order     int      `json:"order" yaml:"order"`
}

// Answer is append-only: at most one per question.
type Answer struct {
	QuestionID   string        `json:"question_id" yaml:"question_id"`
	Text         string        `json:"text" yaml:"text"`
	ResponseTime time.Duration `json:"response_time" yaml:"response_time"`
	Skipped      bool          `json:"skipped" yaml:"skipped"`
	Evaluation   *Evaluation   `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
	AnsweredAt   time.Time     `json:"answered_at" yaml:"answered_at"`
}

// Scored reports whether the answer counts towards category scores.
func (a *Answer) Scored() bool {
	return a != nil && !a.Skipped && a.Evaluation != nil
}

// Session holds the planned questions of one interview and the answers given so far.
type Session struct {
	ID             string             `json:"id" yaml:"id"`
	Role           string             `json:"role" yaml:"role"`
	JobDescription string             `json:"job_description" yaml:"job_description"`
	Resume         string             `json:"resume" yaml:"resume"`
	Status         Status             `json:"status" yaml:"status"`
	Questions      []Question         `json:"questions" yaml:"questions"`
	Answers        map[string]*Answer `json:"answers" yaml:"answers"`
	CreatedAt      time.Time          `json:"created_at" yaml:"created_at"`
	StartedAt      *time.Time         `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Report         *Report            `json:"report,omitempty" yaml:"report,omitempty"`
}

// NewSession returns a created session with questions sorted by order.
func NewSession(id, role, jobDescription, resume string, questions []Question, now time.Time) *Session {
	s := &Session{
		ID:             id,
		Role:           strings.TrimSpace(role),
		JobDescription: jobDescription,
		Resume:         resume,
		Status:         StatusCreated,
		Questions:      append([]Question(nil), questions...),
		Answers:        make(map[string]*Answer),
		CreatedAt:      now,
	}
	for i := range s.Questions {
		s.Questions[i].SessionID = id
	}
	s.SortQuestions()
	return s
}

// SortQuestions restores presentation order after loading from storage.
func (s *Session) SortQuestions() {
	sort.SliceStable(s.Questions, func(i, j int) bool {
		return s.Questions[i].Order < s.Questions[j].Order
	})
}

// Question looks up a question by id.
func (s *Session) Question(id string) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// Current returns the first question in order that has no answer.
func (s *Session) Current() (*Question, bool) {
	for i := range s.Questions {
		if _, answered := s.Answers[s.Questions[i].ID]; !answered {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// Progress returns the number of answered (including skipped) and total questions.
func (s *Session) Progress() (answered, total int) {
	return len(s.Answers), len(s.Questions)
}

// CompletionRate is the fraction of planned questions with an answer, 0 without questions.
func (s *Session) CompletionRate() float64 {
	answered, total := s.Progress()
	if total == 0 {
		return 0
	}
	return float64(answered) / float64(total)
}

// Ready reports whether every question has an answer. Completion stays explicit.
func (s *Session) Ready() bool {
	answered, total := s.Progress()
	return total > 0 && answered >= total
}

// Begin moves a created session into progress. It is a no-op in any other state.
func (s *Session) Begin(now time.Time) {
	if s.Status != StatusCreated {
		return
	}
	s.Status = StatusInProgress
	s.StartedAt = &now
}

// CanAnswer checks that questionID may receive an answer or a skip.
// Questions are consumed in order, so only the current question qualifies.
func (s *Session) CanAnswer(op, questionID string) error {
	if s.Status == StatusCompleted {
		return s.stateError(op, questionID, "session is completed")
	}
	if _, ok := s.Question(questionID); !ok {
		return s.stateError(op, questionID, "question does not belong to the session")
	}
	if _, answered := s.Answers[questionID]; answered {
		return s.stateError(op, questionID, "question is already answered")
	}
	if current, ok := s.Current(); ok && current.ID != questionID {
		return s.stateError(op, questionID, "question is not the current question")
	}
	return nil
}

// Record stores an answer after validating the state machine.
func (s *Session) Record(op string, answer Answer, now time.Time) error {
	if err := s.CanAnswer(op, answer.QuestionID); err != nil {
		return err
	}
	if answer.ResponseTime < 0 {
		answer.ResponseTime = 0
	}
	if s.Answers == nil {
		s.Answers = make(map[string]*Answer)
	}
	s.Begin(now)
	s.Answers[answer.QuestionID] = &answer
	return nil
}

// Complete marks the session completed. At least one answer is required.
func (s *Session) Complete(now time.Time) error {
	if s.Status == StatusCompleted {
		return s.stateError("complete", "", "session is already completed")
	}
	if len(s.Answers) == 0 {
		return s.stateError("complete", "", "answer at least one question before ending the interview")
	}
	s.Begin(now)
	s.Status = StatusCompleted
	s.CompletedAt = &now
	return nil
}

// Duration is the time between the first question and completion (or now while running).
func (s *Session) Duration(now time.Time) time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	end := now
	if s.CompletedAt != nil {
		end = *s.CompletedAt
	}
	return end.Sub(*s.StartedAt)
}

// ScoredAnswers counts non-skipped answers with an evaluation.
func (s *Session) ScoredAnswers() int {
	n := 0
	for _, a := range s.Answers {
		if a.Scored() {
			n++
		}
	}
	return n
}

// TranscriptEntry pairs a question with its answer, if any.
type TranscriptEntry struct {
	Question Question `json:"question" yaml:"question"`
	Answer   *Answer  `json:"answer,omitempty" yaml:"answer,omitempty"`
}

// Transcript lists every question in order with its answer.
func (s *Session) Transcript() []TranscriptEntry {
	entries := make([]TranscriptEntry, 0, len(s.Questions))
	for _, q := range s.Questions {
		entries = append(entries, TranscriptEntry{Question: q, Answer: s.Answers[q.ID]})
	}
	return entries
}

func (s *Session) stateError(op, questionID, reason string) error {
	return &StateError{Op: op, SessionID: s.ID, QuestionID: questionID, Reason: reason}
}
