package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"finplan/internal/core"
	flog "finplan/internal/log"
	"finplan/internal/services"
)

type createGoalRequest struct {
	Name              string            `json:"name"`
	Method            string            `json:"method"`
	CustomPercentages map[string]string `json:"custom_percentages"`
	TargetAmount      *string           `json:"target_amount"`
	CurrentAmount     string            `json:"current_amount"`
	StartDate         string            `json:"start_date"`
	TargetDate        *string           `json:"target_date"`
	AutoClassify      bool              `json:"auto_classify"`
}

// updateGoalRequest changes only the fields present. An empty
// custom_percentages object reverts to the method defaults.
type updateGoalRequest struct {
	Name              *string            `json:"name"`
	Method            *string            `json:"method"`
	CustomPercentages *map[string]string `json:"custom_percentages"`
	TargetAmount      *string            `json:"target_amount"`
	ClearTargetAmount bool               `json:"clear_target_amount"`
	CurrentAmount     *string            `json:"current_amount"`
	StartDate         *string            `json:"start_date"`
	TargetDate        *string            `json:"target_date"`
	ClearTargetDate   bool               `json:"clear_target_date"`
}

type classificationRequest struct {
	Context  string `json:"context"`
	Category string `json:"category"`
	Type     string `json:"type"`
}

type savingsRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	const op = "create_goal"
	userID, ok := s.requireUser(w, r, op)
	if !ok {
		return
	}
	var req createGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	p := newRequestParser(s.present.f)
	in := services.NewGoalInput{
		UserID:            userID,
		Name:              req.Name,
		Method:            p.Method("method", req.Method),
		CustomPercentages: p.Percentages("custom_percentages", req.CustomPercentages),
		TargetAmount:      p.OptionalAmount("target_amount", req.TargetAmount),
		CurrentAmount:     p.Balance("current_amount", req.CurrentAmount),
		TargetDate:        p.OptionalDate("target_date", req.TargetDate),
		AutoClassify:      req.AutoClassify,
	}
	if strings.TrimSpace(req.StartDate) == "" {
		in.StartDate = core.DateOf(time.Now())
	} else {
		in.StartDate = p.Date("start_date", req.StartDate)
	}
	if err := p.Err(); err != nil {
		writeError(w, r, op, err)
		return
	}
	g, err := s.goals.CreateGoal(r.Context(), in)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/goals/"+g.ID.String()).
		Body(s.present.goal(g)).Write(w)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	const op = "list_goals"
	userID, ok := s.requireUser(w, r, op)
	if !ok {
		return
	}
	goals, err := s.goals.ListGoals(r.Context(), userID)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	out := make([]goalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, s.present.goal(g))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		NotFoundError("not found").Write(w)
		return
	}
	g, err := s.goals.GetGoal(r.Context(), id)
	if err != nil {
		writeError(w, r, "get_goal", err)
		return
	}
	NewJSONResponse().Body(s.present.goal(g)).Write(w)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	const op = "update_goal"
	id, ok := pathID(r, "id")
	if !ok {
		NotFoundError("not found").Write(w)
		return
	}
	var req updateGoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	p := newRequestParser(s.present.f)
	patch := services.GoalPatch{
		Name:              req.Name,
		TargetAmount:      p.OptionalAmount("target_amount", req.TargetAmount),
		ClearTargetAmount: req.ClearTargetAmount,
		StartDate:         p.OptionalDate("start_date", req.StartDate),
		TargetDate:        p.OptionalDate("target_date", req.TargetDate),
		ClearTargetDate:   req.ClearTargetDate,
	}
	if req.Method != nil {
		m := p.Method("method", *req.Method)
		patch.Method = &m
	}
	if req.CustomPercentages != nil {
		pct := p.Percentages("custom_percentages", *req.CustomPercentages)
		if pct == nil {
			pct = core.Percentages{}
		}
		patch.CustomPercentages = &pct
	}
	if req.CurrentAmount != nil {
		m := p.Balance("current_amount", *req.CurrentAmount)
		patch.CurrentAmount = &m
	}
	if err := p.Err(); err != nil {
		writeError(w, r, op, err)
		return
	}
	g, err := s.goals.UpdateGoal(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	NewJSONResponse().Body(s.present.goal(g)).Write(w)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	s.deleteEntry(w, r, "delete_goal", s.goals.DeleteGoal)
}

func (s *Server) handleSetClassification(w http.ResponseWriter, r *http.Request) {
	const op = "set_classification"
	id, ok := pathID(r, "id")
	if !ok {
		NotFoundError("not found").Write(w)
		return
	}
	var req classificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	p := newRequestParser(s.present.f)
	cctx := p.Context("context", req.Context)
	t := p.ExpenseType("type", req.Type)
	if err := p.Err(); err != nil {
		writeError(w, r, op, err)
		return
	}
	g, err := s.goals.SetClassification(r.Context(), id, req.Category, cctx, t)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	NewJSONResponse().Body(s.present.goal(g)).Write(w)
}

func (s *Server) handleAutoClassify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		NotFoundError("not found").Write(w)
		return
	}
	g, err := s.goals.AutoClassify(r.Context(), id)
	if err != nil {
		writeError(w, r, "auto_classify", err)
		return
	}
	NewJSONResponse().Body(s.present.goal(g)).Write(w)
}

// handleReport computes the allocation for ?month=YYYY-MM, defaulting to the
// current month.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	const op = "report"
	id, ok := pathID(r, "id")
	if !ok {
		NotFoundError("not found").Write(w)
		return
	}
	m := core.MonthOf(time.Now())
	if q := r.URL.Query().Get("month"); q != "" {
		p := newRequestParser(s.present.f)
		m = p.Month("month", q)
		if err := p.Err(); err != nil {
			writeError(w, r, op, err)
			return
		}
	}
	report, err := s.goals.Report(r.Context(), id, m)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	NewJSONResponse().Body(s.present.report(report)).Write(w)
}

func (s *Server) handleLogSavings(w http.ResponseWriter, r *http.Request) {
	const op = "log_savings"
	id, ok := pathID(r, "id")
	if !ok {
		NotFoundError("not found").Write(w)
		return
	}
	var req savingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, op, err)
		return
	}
	p := newRequestParser(s.present.f)
	m := p.Month("month", r.PathValue("month"))
	actual := p.Signed("amount", req.Amount)
	if err := p.Err(); err != nil {
		writeError(w, r, op, err)
		return
	}
	snap, err := s.goals.LogActualSavings(r.Context(), id, m, actual)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	flog.FromContext(r.Context()).Fields(r.Context(), slog.LevelDebug, "Month closed", flog.NewFields().
		WithOperation(flog.OpLog).
		WithMonth(m.String()).
		WithAmount(actual.Cents))
	NewJSONResponse().Body(s.present.snapshot(snap)).Write(w)
}
