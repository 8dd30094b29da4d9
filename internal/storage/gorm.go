package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/spigell/interview-scorer/internal/interview"
)

type sessionModel struct {
	ID             string `gorm:"primaryKey;size:64"`
	Role           string `gorm:"size:255"`
	JobDescription string `gorm:"type:text"`
	Resume         string `gorm:"type:text"`
	Status         string `gorm:"size:20;index"`
	CreatedAt      time.Time
	StartedAt      *time.Time
	CompletedAt    *time.Time
	Report         datatypes.JSON

	Questions []questionModel `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	Answers   []answerModel   `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
}

func (sessionModel) TableName() string { return "interview_sessions" }

type questionModel struct {
	ID        string `gorm:"primaryKey;size:64"`
	SessionID string `gorm:"size:64;index"`
	Text      string `gorm:"type:text"`
	Context   string `gorm:"type:text"`
	Category  string `gorm:"size:32"`
	Position  int
}

func (questionModel) TableName() string { return "interview_questions" }

type answerModel struct {
	ID             uint   `gorm:"primaryKey"`
	SessionID      string `gorm:"size:64;index"`
	QuestionID     string `gorm:"size:64;uniqueIndex"`
	Text           string `gorm:"type:text"`
	ResponseTimeMS int64
	Skipped        bool
	Evaluation     datatypes.JSON
	AnsweredAt     time.Time
}

func (answerModel) TableName() string { return "interview_answers" }

// GormStore persists sessions in a SQL database through gorm.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenPostgres connects to PostgreSQL and migrates the schema.
func OpenPostgres(dsn string, debug bool, logger *zap.Logger) (*GormStore, error) {
	level := gormlogger.Silent
	if debug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return NewGormStore(db, logger)
}

// NewGormStore wraps an open connection and runs the migrations.
func NewGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&sessionModel{}, &questionModel{}, &answerModel{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	logger.Debug("database schema migrated")
	return &GormStore{db: db, logger: logger}, nil
}

func (g *GormStore) CreateSession(ctx context.Context, s *interview.Session) error {
	model := sessionModel{
		ID:             s.ID,
		Role:           s.Role,
		JobDescription: s.JobDescription,
		Resume:         s.Resume,
		Status:         string(s.Status),
		CreatedAt:      s.CreatedAt,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
	}
	for _, q := range s.Questions {
		model.Questions = append(model.Questions, questionModel{
			ID:        q.ID,
			SessionID: s.ID,
			Text:      q.Text,
			Context:   q.Context,
			Category:  string(q.Category),
			Position:  q.Order,
		})
	}

	if err := g.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("create session %s: %w", s.ID, err)
	}
	return nil
}

func (g *GormStore) GetSession(ctx context.Context, id string) (*interview.Session, error) {
	var model sessionModel
	err := g.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Answers").
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	return model.toSession()
}

func (g *GormStore) ListQuestions(ctx context.Context, sessionID string) ([]interview.Question, error) {
	var models []questionModel
	if err := g.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("position").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list questions of %s: %w", sessionID, err)
	}

	questions := make([]interview.Question, 0, len(models))
	for _, m := range models {
		questions = append(questions, m.toQuestion())
	}
	return questions, nil
}

func (g *GormStore) ListAnswers(ctx context.Context, sessionID string) ([]interview.Answer, error) {
	var models []answerModel
	if err := g.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list answers of %s: %w", sessionID, err)
	}

	answers := make([]interview.Answer, 0, len(models))
	for _, m := range models {
		a, err := m.toAnswer()
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, nil
}

// SaveAnswer locks the session row so concurrent writers for one session are serialized.
func (g *GormStore) SaveAnswer(ctx context.Context, sessionID string, a interview.Answer) error {
	var evaluation datatypes.JSON
	if a.Evaluation != nil {
		raw, err := json.Marshal(a.Evaluation)
		if err != nil {
			return fmt.Errorf("marshal evaluation: %w", err)
		}
		evaluation = raw
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session sessionModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status", "started_at").
			First(&session, "id = ?", sessionID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(sessionID)
			}
			return fmt.Errorf("lock session %s: %w", sessionID, err)
		}

		if interview.Status(session.Status) == interview.StatusCompleted {
			return &interview.StateError{Op: "save answer", SessionID: sessionID, QuestionID: a.QuestionID, Reason: "session is completed"}
		}

		var question questionModel
		err = tx.Select("id", "position").
			Where("id = ? AND session_id = ?", a.QuestionID, sessionID).
			Take(&question).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &interview.StateError{Op: "save answer", SessionID: sessionID, QuestionID: a.QuestionID, Reason: "question does not belong to the session"}
			}
			return fmt.Errorf("check question %s: %w", a.QuestionID, err)
		}

		answered := tx.Model(&answerModel{}).Select("question_id").Where("session_id = ?", sessionID)
		var pending int64
		err = tx.Model(&questionModel{}).
			Where("session_id = ? AND position < ? AND id NOT IN (?)", sessionID, question.Position, answered).
			Count(&pending).Error
		if err != nil {
			return fmt.Errorf("check order of %s: %w", a.QuestionID, err)
		}
		if pending > 0 {
			return &interview.StateError{Op: "save answer", SessionID: sessionID, QuestionID: a.QuestionID, Reason: "question is not the current question"}
		}

		responseTime := a.ResponseTime
		if responseTime < 0 {
			responseTime = 0
		}

		err = tx.Create(&answerModel{
			SessionID:      sessionID,
			QuestionID:     a.QuestionID,
			Text:           a.Text,
			ResponseTimeMS: responseTime.Milliseconds(),
			Skipped:        a.Skipped,
			Evaluation:     evaluation,
			AnsweredAt:     a.AnsweredAt,
		}).Error
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAnswerExists
			}
			return fmt.Errorf("insert answer for %s: %w", a.QuestionID, err)
		}

		if interview.Status(session.Status) == interview.StatusCreated {
			return tx.Model(&sessionModel{}).Where("id = ?", sessionID).Updates(map[string]any{
				"status":     string(interview.StatusInProgress),
				"started_at": a.AnsweredAt,
			}).Error
		}
		return nil
	})
}

func (g *GormStore) UpdateStatus(ctx context.Context, id string, status interview.Status, at time.Time) error {
	updates := map[string]any{"status": string(status)}
	query := g.db.WithContext(ctx).Model(&sessionModel{}).Where("id = ?", id)

	switch status {
	case interview.StatusInProgress:
		// keep the first start time
		if err := g.db.WithContext(ctx).Model(&sessionModel{}).
			Where("id = ? AND started_at IS NULL", id).
			Update("started_at", at).Error; err != nil {
			return fmt.Errorf("set start time of %s: %w", id, err)
		}
	case interview.StatusCompleted:
		updates["completed_at"] = at
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update status of %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

func (g *GormStore) SaveReport(ctx context.Context, id string, r *interview.Report) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	result := g.db.WithContext(ctx).Model(&sessionModel{}).Where("id = ?", id).Update("report", datatypes.JSON(raw))
	if result.Error != nil {
		return fmt.Errorf("save report of %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

type countRow struct {
	SessionID string
	Total     int
}

func (g *GormStore) ListSessions(ctx context.Context, status interview.Status) ([]Summary, error) {
	db := g.db.WithContext(ctx)

	query := db.Model(&sessionModel{}).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var models []sessionModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(models) == 0 {
		return []Summary{}, nil
	}

	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}

	questions, err := countBySession(db.Model(&questionModel{}), ids)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	answers, err := countBySession(db.Model(&answerModel{}), ids)
	if err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}

	summaries := make([]Summary, 0, len(models))
	for _, m := range models {
		summary := Summary{
			ID:          m.ID,
			Role:        m.Role,
			Status:      interview.Status(m.Status),
			Answered:    answers[m.ID],
			Total:       questions[m.ID],
			CreatedAt:   m.CreatedAt,
			CompletedAt: m.CompletedAt,
		}
		if report, err := decodeReport(m.Report); err != nil {
			g.logger.Warn("stored report is unreadable", zap.String("session_id", m.ID), zap.Error(err))
		} else if report != nil {
			summary.Recommendation = report.Recommendation
			summary.OverallScore = report.OverallScore
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (g *GormStore) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func countBySession(query *gorm.DB, ids []string) (map[string]int, error) {
	var rows []countRow
	err := query.Select("session_id, count(*) AS total").
		Where("session_id IN ?", ids).
		Group("session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.SessionID] = row.Total
	}
	return counts, nil
}

func (m sessionModel) toSession() (*interview.Session, error) {
	s := &interview.Session{
		ID:             m.ID,
		Role:           m.Role,
		JobDescription: m.JobDescription,
		Resume:         m.Resume,
		Status:         interview.Status(m.Status),
		Questions:      make([]interview.Question, 0, len(m.Questions)),
		Answers:        make(map[string]*interview.Answer, len(m.Answers)),
		CreatedAt:      m.CreatedAt,
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
	}

	for _, q := range m.Questions {
		s.Questions = append(s.Questions, q.toQuestion())
	}
	s.SortQuestions()

	for _, am := range m.Answers {
		a, err := am.toAnswer()
		if err != nil {
			return nil, err
		}
		s.Answers[a.QuestionID] = &a
	}

	report, err := decodeReport(m.Report)
	if err != nil {
		return nil, fmt.Errorf("decode report of %s: %w", m.ID, err)
	}
	s.Report = report

	return s, nil
}

func (q questionModel) toQuestion() interview.Question {
	return interview.Question{
		ID:        q.ID,
		SessionID: q.SessionID,
		Text:      q.Text,
		Context:   q.Context,
		Category:  interview.Category(q.Category),
		Order:     q.Position,
	}
}

func (a answerModel) toAnswer() (interview.Answer, error) {
	answer := interview.Answer{
		QuestionID:   a.QuestionID,
		Text:         a.Text,
		ResponseTime: time.Duration(a.ResponseTimeMS) * time.Millisecond,
		Skipped:      a.Skipped,
		AnsweredAt:   a.AnsweredAt,
	}
	if len(a.Evaluation) > 0 && string(a.Evaluation) != "null" {
		var eval interview.Evaluation
		if err := json.Unmarshal(a.Evaluation, &eval); err != nil {
			return interview.Answer{}, fmt.Errorf("decode evaluation of %s: %w", a.QuestionID, err)
		}
		answer.Evaluation = &eval
	}
	return answer, nil
}

func decodeReport(raw datatypes.JSON) (*interview.Report, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var report interview.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
