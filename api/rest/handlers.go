package rest

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"flowforge/engine/internal/store"
	"flowforge/engine/pkg/types"
)

// healthCheck handles GET /health.
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// createWorkflow handles POST /api/v1/workflows.
func (s *Server) createWorkflow(c *fiber.Ctx) error {
	var wf types.Workflow
	if err := c.BodyParser(&wf); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to parse workflow: "+err.Error())
	}
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}
	if wf.Version == "" {
		wf.Version = types.DefinitionVersion
	}
	if err := s.validateDefinition(&wf); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.workflows.Save(c.Context(), &wf); err != nil {
		return err
	}
	s.refreshSchedule(c)
	return c.Status(fiber.StatusCreated).JSON(&wf)
}

// updateWorkflow handles PUT /api/v1/workflows/:id.
func (s *Server) updateWorkflow(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := s.workflows.Get(c.Context(), id); err != nil {
		return notFoundOr(err, "workflow")
	}

	var wf types.Workflow
	if err := c.BodyParser(&wf); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "failed to parse workflow: "+err.Error())
	}
	wf.ID = id
	if wf.Version == "" {
		wf.Version = types.DefinitionVersion
	}
	if err := s.validateDefinition(&wf); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := s.workflows.Save(c.Context(), &wf); err != nil {
		return err
	}
	s.refreshSchedule(c)
	return c.JSON(&wf)
}

// listWorkflows handles GET /api/v1/workflows.
func (s *Server) listWorkflows(c *fiber.Ctx) error {
	wfs, err := s.workflows.List(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(WorkflowListResponse{Workflows: wfs, Total: len(wfs)})
}

// getWorkflow handles GET /api/v1/workflows/:id.
func (s *Server) getWorkflow(c *fiber.Ctx) error {
	wf, err := s.workflows.Get(c.Context(), c.Params("id"))
	if err != nil {
		return notFoundOr(err, "workflow")
	}
	return c.JSON(wf)
}

// deleteWorkflow handles DELETE /api/v1/workflows/:id.
func (s *Server) deleteWorkflow(c *fiber.Ctx) error {
	if err := s.workflows.Delete(c.Context(), c.Params("id")); err != nil {
		return notFoundOr(err, "workflow")
	}
	s.refreshSchedule(c)
	return c.SendStatus(fiber.StatusNoContent)
}

// triggerRun handles POST /api/v1/workflows/:id/runs.
func (s *Server) triggerRun(c *fiber.Ctx) error {
	wf, err := s.workflows.Get(c.Context(), c.Params("id"))
	if err != nil {
		return notFoundOr(err, "workflow")
	}
	if !wf.Enabled {
		return fiber.NewError(fiber.StatusBadRequest, "workflow is disabled")
	}

	var body TriggerRunRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "failed to parse request: "+err.Error())
		}
	}
	userID := body.UserID
	if userID == "" {
		userID = wf.OwnerID
	}

	req := types.NewRunRequest(wf.ID, userID, types.TriggerManual, body.Payload)
	if err := s.queue.Enqueue(c.Context(), req); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(TriggerRunResponse{
		RunID:      req.RunID,
		WorkflowID: wf.ID,
		Status:     string(types.RunStatusPending),
	})
}

// listWorkflowRuns handles GET /api/v1/workflows/:id/runs.
func (s *Server) listWorkflowRuns(c *fiber.Ctx) error {
	filter := store.RunFilter{
		WorkflowID: c.Params("id"),
		Status:     types.RunStatus(c.Query("status")),
		Limit:      c.QueryInt("limit", 50),
	}
	runs, err := s.runs.List(c.Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(RunListResponse{Runs: runs, Total: len(runs)})
}

// getRun handles GET /api/v1/runs/:id.
func (s *Server) getRun(c *fiber.Ctx) error {
	run, err := s.runs.Get(c.Context(), c.Params("id"))
	if err != nil {
		return notFoundOr(err, "run")
	}
	return c.JSON(run)
}

// listModules handles GET /api/v1/modules.
func (s *Server) listModules(c *fiber.Ctx) error {
	modules := s.registry.List()
	return c.JSON(ModuleListResponse{Modules: modules, Total: len(modules)})
}

// searchModules handles GET /api/v1/modules/search?q=.
func (s *Server) searchModules(c *fiber.Ctx) error {
	q := c.Query("q")
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query parameter q is required")
	}
	modules := s.registry.Search(q)
	return c.JSON(ModuleListResponse{Modules: modules, Total: len(modules)})
}

// resilienceStates handles GET /api/v1/resilience.
func (s *Server) resilienceStates(c *fiber.Ctx) error {
	states := map[string]string{}
	if s.guards != nil {
		states = s.guards.States()
	}
	return c.JSON(ResilienceResponse{Dependencies: states})
}

// receiveWebhook handles POST /hooks/:path, dispatching every enabled
// webhook-triggered workflow listening on the path.
func (s *Server) receiveWebhook(c *fiber.Ctx) error {
	hookPath := c.Params("path")

	wfs, err := s.workflows.ListByTriggerType(c.Context(), types.TriggerWebhook)
	if err != nil {
		return err
	}

	var payload map[string]any
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "webhook payload must be a JSON object")
		}
	}

	var accepted []string
	rejected := 0
	for _, wf := range wfs {
		hook := wf.Trigger.Webhook
		if hook == nil || hook.Path != hookPath || !wf.Enabled {
			continue
		}
		// A secret mismatch only disqualifies this workflow; other
		// workflows on the same path keep their own secret checks.
		if hook.Secret != "" && c.Get("X-Webhook-Secret") != hook.Secret {
			rejected++
			continue
		}

		req := types.NewRunRequest(wf.ID, wf.OwnerID, types.TriggerWebhook, payload)
		if err := s.queue.Enqueue(c.Context(), req); err != nil {
			s.logger.Error("failed to enqueue webhook run",
				zap.String("workflow_id", wf.ID), zap.Error(err))
			continue
		}
		accepted = append(accepted, req.RunID)
	}

	if len(accepted) == 0 {
		if rejected > 0 {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid webhook secret")
		}
		return fiber.NewError(fiber.StatusNotFound, "no workflow listens on this hook")
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"runIds": accepted})
}

// validateDefinition checks structure and, when a registry is wired, that
// every referenced module path resolves.
func (s *Server) validateDefinition(wf *types.Workflow) error {
	if err := wf.Validate(); err != nil {
		return err
	}
	if s.registry != nil {
		return s.registry.ValidateWorkflow(wf)
	}
	return nil
}

// refreshSchedule rebuilds the cron schedule after a workflow mutation.
func (s *Server) refreshSchedule(c *fiber.Ctx) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Init(c.Context()); err != nil {
		s.logger.Error("failed to refresh schedule", zap.Error(err))
	}
}

func notFoundOr(err error, kind string) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, kind+" not found")
	}
	return err
}
