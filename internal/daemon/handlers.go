package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
	"github.com/felixgeelhaar/prepcoach/internal/session"
	"github.com/felixgeelhaar/prepcoach/internal/strategy"
)

type sectionPayload struct {
	Name             string `json:"name"`
	TimeLimitSeconds int    `json:"time_limit_seconds"`
	TotalQuestions   int    `json:"total_questions"`
}

type startRequest struct {
	StudentID string           `json:"student_id"`
	TestType  string           `json:"test_type"`
	Sections  []sectionPayload `json:"sections"`
	Resume    bool             `json:"resume"`
}

type attemptRequest struct {
	QuestionID     string                   `json:"question_id"`
	SkillID        string                   `json:"skill_id"`
	Correct        bool                     `json:"correct"`
	ResponseTimeMs int64                    `json:"response_time_ms"`
	Confidence     float64                  `json:"confidence"`
	Difficulty     float64                  `json:"difficulty"`
	Stress         domain.StressIndicators  `json:"stress"`
}

type recommendRequest struct {
	Profile   strategy.Profile         `json:"profile"`
	Available []domain.QuestionProfile `json:"available_questions"`
}

type personalizeRequest struct {
	Profile   strategy.Profile                `json:"profile"`
	Overrides map[string][]strategy.Condition `json:"strategy_overrides"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid student_id"})
		return
	}

	sections := make([]session.Section, 0, len(req.Sections))
	for _, sec := range req.Sections {
		sections = append(sections, session.Section{
			Name:           sec.Name,
			TimeLimit:      time.Duration(sec.TimeLimitSeconds) * time.Second,
			TotalQuestions: sec.TotalQuestions,
		})
	}

	sess, err := s.svc.Start(r.Context(), studentID, req.TestType, sections)
	if err != nil {
		s.fail(w, err)
		return
	}

	if req.Resume && s.repo != nil {
		skills, err := s.repo.LoadMastery(r.Context(), studentID)
		if err != nil {
			s.logger.Error("loading stored mastery failed", "error", err, "student_id", studentID)
		} else if len(skills) > 0 {
			if err := s.svc.RestoreMastery(sess.ID, skills); err != nil {
				s.logger.Error("restoring mastery failed", "error", err, "session_id", sess.ID)
			}
		}

		profile, overrides, err := s.repo.GetProfile(r.Context(), studentID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// returning student without a stored profile; nothing to apply
		case err != nil:
			s.logger.Error("loading stored profile failed", "error", err, "student_id", studentID)
		default:
			if err := s.svc.Personalize(sess.ID, profile, overrides); err != nil {
				s.logger.Error("applying stored profile failed", "error", err, "session_id", sess.ID)
			}
		}
	}

	s.respond(w, http.StatusCreated, sess)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	sess, err := s.svc.Get(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, sess)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Pause(id); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": string(session.StatusPaused)})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Resume(id); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, map[string]string{"status": string(session.StatusActive)})
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	summary, err := s.svc.End(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}

	if s.repo != nil {
		if skills, err := s.svc.Mastery(id); err == nil {
			if err := s.repo.SaveMastery(r.Context(), summary.StudentID, skills); err != nil {
				s.logger.Error("persisting mastery failed", "error", err, "student_id", summary.StudentID)
			}
		}
	}

	s.respond(w, http.StatusOK, summary)
}

func (s *Server) handleAttempt(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	var req attemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	mastery, err := s.svc.ProcessAttempt(id, domain.AttemptEvent{
		QuestionID:   req.QuestionID,
		SkillID:      req.SkillID,
		Correct:      req.Correct,
		ResponseTime: time.Duration(req.ResponseTimeMs) * time.Millisecond,
		Confidence:   req.Confidence,
		Difficulty:   req.Difficulty,
		Stress:       req.Stress,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, mastery)
}

func (s *Server) handleStress(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	var ind domain.StressIndicators
	if err := json.NewDecoder(r.Body).Decode(&ind); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.svc.StressSample(id, ind); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusAccepted, map[string]float64{"score": ind.Score()})
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	rec, err := s.svc.Recommend(id, req.Profile, req.Available)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, rec)
}

func (s *Server) handlePersonalize(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	var req personalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.svc.Personalize(id, req.Profile, req.Overrides); err != nil {
		s.fail(w, err)
		return
	}

	if s.repo != nil {
		sess, err := s.svc.Get(id)
		if err == nil {
			if err := s.repo.SaveProfile(r.Context(), sess.StudentID, req.Profile, req.Overrides); err != nil {
				s.logger.Error("persisting profile failed", "error", err, "student_id", sess.StudentID)
			}
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	state, err := s.svc.State(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, state)
}

func (s *Server) handleMastery(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	skills, err := s.svc.Mastery(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, skills)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	metrics, err := s.svc.Metrics(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, metrics)
}

func (s *Server) handlePacing(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	pacing, err := s.svc.Pacing(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, pacing)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	msgs, err := s.svc.Messages(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, msgs)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	messageID, err := uuid.Parse(r.PathValue("message_id"))
	if err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid message id"})
		return
	}
	if err := s.svc.Dismiss(id, messageID); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}
