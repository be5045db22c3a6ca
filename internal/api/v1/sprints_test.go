package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gestia/gestia/internal/api/v1"
	"github.com/gestia/gestia/internal/domain"
	"github.com/gestia/gestia/internal/sprint"
)

func mustDate(t *testing.T, value string) domain.CalendarDate {
	t.Helper()
	d, err := domain.ParseCalendarDate(value)
	require.NoError(t, err)
	return d
}

// ---------------------------------------------------------------------------
// TestCreateSprint
// ---------------------------------------------------------------------------

func TestCreateSprint(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		var createCalled bool
		_, api := humatest.New(t)
		svc := &mockSprintService{
			createFunc: func(_ context.Context, in sprint.CreateInput, actorID int64) (*domain.Sprint, error) {
				createCalled = true
				assert.Equal(t, int64(3), in.ProjectID)
				assert.Equal(t, "Sprint 1", in.Name)
				assert.Equal(t, "Validar el flujo de registro", in.Goal)
				assert.Equal(t, "2025-03-03", in.StartDate.String())
				assert.Equal(t, "2025-03-13", in.EndDate.String())
				assert.Equal(t, int64(7), actorID)
				return &domain.Sprint{
					ID:        11,
					ProjectID: in.ProjectID,
					Name:      in.Name,
					Goal:      in.Goal,
					StartDate: in.StartDate,
					EndDate:   in.EndDate,
					State:     domain.SprintStatePlanned,
					Active:    true,
				}, nil
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.PostCtx(actorCtx(7), "/sprints", map[string]any{
			"project_id": 3,
			"name":       "Sprint 1",
			"goal":       "Validar el flujo de registro",
			"start_date": "2025-03-03",
			"end_date":   "2025-03-13",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.True(t, createCalled, "sprint service Create must be invoked")

		var body domain.Sprint
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, int64(11), body.ID)
		assert.Equal(t, domain.SprintStatePlanned, body.State)
	})

	t.Run("malformed_date_is_422", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.PostCtx(actorCtx(7), "/sprints", map[string]any{
			"project_id": 3,
			"name":       "Sprint 1",
			"start_date": "03/03/2025",
			"end_date":   "2025-03-13",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})

	t.Run("missing_actor_is_403", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.Post("/sprints", map[string]any{
			"project_id": 3,
			"name":       "Sprint 1",
			"start_date": "2025-03-03",
			"end_date":   "2025-03-13",
		})

		assert.Equal(t, http.StatusForbidden, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestStartSprint
// ---------------------------------------------------------------------------

func TestStartSprint(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{
			startFunc: func(_ context.Context, id, actorID int64) (*domain.Sprint, error) {
				assert.Equal(t, int64(11), id)
				assert.Equal(t, int64(7), actorID)
				return &domain.Sprint{ID: 11, ProjectID: 3, State: domain.SprintStateActive, Active: true}, nil
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.PostCtx(actorCtx(7), "/sprints/11/start", map[string]any{})

		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.Sprint
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, domain.SprintStateActive, body.State)
	})

	t.Run("active_sprint_conflict_is_409", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{
			startFunc: func(_ context.Context, _, _ int64) (*domain.Sprint, error) {
				return nil, &domain.ActiveSprintConflictError{
					ProjectID:        3,
					ActiveSprintID:   10,
					ActiveSprintName: "Sprint 1",
				}
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.PostCtx(actorCtx(7), "/sprints/11/start", map[string]any{})

		assert.Equal(t, http.StatusConflict, resp.Code)
		assert.Contains(t, resp.Body.String(), "Sprint 1")
	})

	t.Run("double_start_is_400", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{
			startFunc: func(_ context.Context, _, _ int64) (*domain.Sprint, error) {
				return nil, &domain.InvalidStateError{Entity: "sprint", ID: 11, State: "Active", Op: "start"}
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.PostCtx(actorCtx(7), "/sprints/11/start", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("unknown_sprint_is_404", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{
			startFunc: func(_ context.Context, _, _ int64) (*domain.Sprint, error) {
				return nil, domain.ErrNotFound
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.PostCtx(actorCtx(7), "/sprints/999/start", map[string]any{})

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestCloseSprint
// ---------------------------------------------------------------------------

func TestCloseSprint(t *testing.T) {
	t.Parallel()

	t.Run("happy_path_with_evidence", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{
			closeFunc: func(_ context.Context, id int64, evidenceLink *string, actorID int64) (*domain.Sprint, error) {
				assert.Equal(t, int64(11), id)
				require.NotNil(t, evidenceLink)
				assert.Equal(t, "https://drive.example/review-s1", *evidenceLink)
				assert.Equal(t, int64(7), actorID)
				return &domain.Sprint{ID: 11, State: domain.SprintStateCompleted, EvidenceLink: evidenceLink}, nil
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.PostCtx(actorCtx(7), "/sprints/11/close", map[string]any{
			"evidence_link": "https://drive.example/review-s1",
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var body domain.Sprint
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, domain.SprintStateCompleted, body.State)
	})

	t.Run("close_from_planned_is_400", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{
			closeFunc: func(_ context.Context, _ int64, _ *string, _ int64) (*domain.Sprint, error) {
				return nil, &domain.InvalidStateError{Entity: "sprint", ID: 11, State: "Planned", Op: "close"}
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.PostCtx(actorCtx(7), "/sprints/11/close", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Contains(t, resp.Body.String(), "cannot close")
	})
}

// ---------------------------------------------------------------------------
// TestUpdateSprint
// ---------------------------------------------------------------------------

func TestUpdateSprint(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{
			editFunc: func(_ context.Context, id int64, patch sprint.Patch, actorID int64) (*domain.Sprint, error) {
				assert.Equal(t, int64(11), id)
				require.NotNil(t, patch.Goal)
				assert.Equal(t, "Nuevo objetivo", *patch.Goal)
				require.NotNil(t, patch.EndDate)
				assert.Equal(t, "2025-03-20", patch.EndDate.String())
				assert.Nil(t, patch.Name)
				assert.Equal(t, int64(7), actorID)
				return &domain.Sprint{ID: 11, Goal: *patch.Goal, State: domain.SprintStatePlanned}, nil
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.PatchCtx(actorCtx(7), "/sprints/11", map[string]any{
			"goal":     "Nuevo objetivo",
			"end_date": "2025-03-20",
		})

		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("edit_completed_is_400", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{
			editFunc: func(_ context.Context, _ int64, _ sprint.Patch, _ int64) (*domain.Sprint, error) {
				return nil, &domain.InvalidStateError{Entity: "sprint", ID: 11, State: "Completed", Op: "edit"}
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.PatchCtx(actorCtx(7), "/sprints/11", map[string]any{"goal": "x"})

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestSprintMetrics
// ---------------------------------------------------------------------------

func TestSprintMetrics(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{
			metricsFunc: func(_ context.Context, sprintID int64) (*sprint.Metrics, error) {
				assert.Equal(t, int64(11), sprintID)
				return &sprint.Metrics{
					SprintID:         11,
					State:            domain.SprintStateActive,
					TotalStories:     8,
					CompletedStories: 4,
					Velocity:         5,
					ProgressByPoints: 62.5,
					ProgressByCount:  50,
				}, nil
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.GetCtx(actorCtx(7), "/sprints/11/metrics")

		require.Equal(t, http.StatusOK, resp.Code)

		var body sprint.Metrics
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, 5, body.Velocity)
		assert.InEpsilon(t, 62.5, body.ProgressByPoints, 1e-9)
	})

	t.Run("unknown_sprint_is_404", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{
			metricsFunc: func(_ context.Context, _ int64) (*sprint.Metrics, error) {
				return nil, domain.ErrNotFound
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.GetCtx(actorCtx(7), "/sprints/999/metrics")

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestSprintBurndown
// ---------------------------------------------------------------------------

func TestSprintBurndown(t *testing.T) {
	t.Parallel()

	_, api := humatest.New(t)
	svc := &mockSprintService{
		burndownFunc: func(_ context.Context, sprintID int64) (*sprint.Burndown, error) {
			assert.Equal(t, int64(11), sprintID)
			return &sprint.Burndown{
				SprintID:    11,
				TotalPoints: 8,
				TotalDays:   10,
				Series: []sprint.BurndownPoint{
					{Date: mustDate(t, "2025-03-03"), IdealRemaining: 8},
					{Date: mustDate(t, "2025-03-04"), IdealRemaining: 7.2},
				},
			}, nil
		},
	}
	v1.RegisterSprintRoutes(api, svc)

	resp := api.GetCtx(actorCtx(7), "/sprints/11/burndown")

	require.Equal(t, http.StatusOK, resp.Code)

	var body sprint.Burndown
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 10, body.TotalDays)
	require.Len(t, body.Series, 2)
	assert.InEpsilon(t, 7.2, body.Series[1].IdealRemaining, 1e-9)
}

// ---------------------------------------------------------------------------
// TestDeleteSprint
// ---------------------------------------------------------------------------

func TestDeleteSprint(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		var deleteCalled bool
		_, api := humatest.New(t)
		svc := &mockSprintService{
			softDeleteFunc: func(_ context.Context, id, actorID int64) error {
				deleteCalled = true
				assert.Equal(t, int64(11), id)
				assert.Equal(t, int64(7), actorID)
				return nil
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.DeleteCtx(actorCtx(7), "/sprints/11")

		assert.Equal(t, http.StatusNoContent, resp.Code)
		assert.True(t, deleteCalled, "sprint service SoftDelete must be invoked")
	})

	t.Run("delete_active_is_400", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockSprintService{
			softDeleteFunc: func(_ context.Context, _, _ int64) error {
				return &domain.InvalidStateError{Entity: "sprint", ID: 11, State: "Active", Op: "delete"}
			},
		}
		v1.RegisterSprintRoutes(api, svc)

		resp := api.DeleteCtx(actorCtx(7), "/sprints/11")

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}
