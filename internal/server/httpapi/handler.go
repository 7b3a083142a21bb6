package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tourmate-app/backend/internal/server/models"
)

type joinRequest struct {
	TourID    string `json:"tour_id"`
	SessionID string `json:"session_id"`
}

type reportRequest struct {
	StopID      string    `json:"stop_id"`
	CompletedAt time.Time `json:"completed_at"`
}

type membershipDTO struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}

type sessionDTO struct {
	ID             string     `json:"id"`
	TourID         string     `json:"tour_id"`
	State          string     `json:"state"`
	Stale          bool       `json:"stale"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`
}

type snapshotDTO struct {
	SessionID   string              `json:"session_id"`
	State       string              `json:"state"`
	Fraction    float64             `json:"fraction"`
	TotalStops  int                 `json:"total_stops"`
	PerStop     map[string][]string `json:"per_stop"`
	Version     int64               `json:"version"`
	GeneratedAt time.Time           `json:"generated_at"`
}

type unlockDTO struct {
	MilestoneID string    `json:"milestone_id"`
	UnlockedAt  time.Time `json:"unlocked_at"`
	TriggeredBy string    `json:"triggered_by,omitempty"`
}

type reportResponse struct {
	snapshotDTO
	Unlocked []unlockDTO `json:"unlocked"`
}

type snapshotResponse struct {
	snapshotDTO
	Unlocks []unlockDTO `json:"unlocks"`
}

func toSessionDTO(s *models.TourSession) sessionDTO {
	return sessionDTO{
		ID:             s.ID,
		TourID:         s.TourID,
		State:          string(s.State),
		Stale:          s.Stale,
		CreatedAt:      s.CreatedAt,
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
		LastActivityAt: s.LastActivityAt,
	}
}

func toSnapshotDTO(s *models.TeamProgressSnapshot) snapshotDTO {
	return snapshotDTO{
		SessionID:   s.SessionID,
		State:       string(s.State),
		Fraction:    s.Fraction,
		TotalStops:  s.TotalStops,
		PerStop:     s.PerStop,
		Version:     s.Version,
		GeneratedAt: s.GeneratedAt,
	}
}

func toUnlockDTOs(unlocks []*models.MilestoneUnlock) []unlockDTO {
	out := make([]unlockDTO, 0, len(unlocks))
	for _, u := range unlocks {
		out = append(out, unlockDTO{
			MilestoneID: u.MilestoneID,
			UnlockedAt:  u.UnlockedAt,
			TriggeredBy: u.TriggeringUserID,
		})
	}
	return out
}

// join puts the caller into a lobby: by session id, or by tour id with
// lobby creation when no open one exists.
func (s *HTTPServer) join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.TourID == "" && req.SessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tour_id or session_id is required"})
		return
	}

	m, err := s.lobby.Join(c.Request.Context(), req.TourID, req.SessionID, callerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "member joined",
		"session_id", m.SessionID, "user_id", m.UserID, "role", string(m.Role))
	c.JSON(http.StatusOK, membershipDTO{
		SessionID: m.SessionID,
		UserID:    m.UserID,
		Role:      string(m.Role),
		JoinedAt:  m.JoinedAt,
	})
}

func (s *HTTPServer) leave(c *gin.Context) {
	sessionID := c.Param("id")

	if err := s.lobby.Leave(c.Request.Context(), sessionID, callerID(c)); err != nil {
		s.writeError(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "member left", "session_id", sessionID, "user_id", callerID(c))
	c.Status(http.StatusNoContent)
}

func (s *HTTPServer) start(c *gin.Context) {
	sessionID := c.Param("id")

	ctx := c.Request.Context()
	session, err := s.lobby.Start(ctx, sessionID, callerID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}

	// Milestones are re-checked on start so tours whose predicates hold
	// from the beginning unlock without waiting for a report.
	if snap, snapErr := s.progress.Snapshot(ctx, sessionID); snapErr == nil {
		if _, evalErr := s.evaluator.Evaluate(ctx, session, snap, ""); evalErr != nil {
			s.logger.Error(ctx, "milestone evaluation", "session_id", sessionID, "error", evalErr)
		}
	}

	s.logger.Info(ctx, "session started",
		"session_id", session.ID, "tour_id", session.TourID)
	c.JSON(http.StatusOK, toSessionDTO(session))
}

// report accepts one stop-completion report and returns the merged team
// snapshot plus any milestones this report unlocked.
func (s *HTTPServer) report(c *gin.Context) {
	sessionID := c.Param("id")

	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.StopID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stop_id is required"})
		return
	}
	completedAt := req.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	ctx := c.Request.Context()
	snap, err := s.progress.Report(ctx, sessionID, callerID(c), req.StopID, completedAt)
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := reportResponse{snapshotDTO: toSnapshotDTO(snap), Unlocked: []unlockDTO{}}

	// Milestone evaluation is best-effort: a failure here must not turn an
	// accepted report into an error response.
	session, err := s.sessions.Get(ctx, sessionID)
	if err == nil {
		unlocked, evalErr := s.evaluator.Evaluate(ctx, session, snap, callerID(c))
		if evalErr != nil {
			s.logger.Error(ctx, "milestone evaluation", "session_id", sessionID, "error", evalErr)
		}
		resp.Unlocked = toUnlockDTOs(unlocked)
	}

	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) snapshot(c *gin.Context) {
	sessionID := c.Param("id")
	ctx := c.Request.Context()

	snap, err := s.progress.Snapshot(ctx, sessionID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	unlocks, err := s.unlocks.ListBySession(ctx, sessionID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshotResponse{
		snapshotDTO: toSnapshotDTO(snap),
		Unlocks:     toUnlockDTOs(unlocks),
	})
}
