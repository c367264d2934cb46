package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harun/rudder/internal/observability"
	"github.com/harun/rudder/pkg/actions"
	"github.com/harun/rudder/pkg/scenario"
	"github.com/harun/rudder/pkg/schedule"
)

// registerBuiltinMethods registers the RPC surface. Methods whose backing
// component was not configured are left unregistered and answer with
// MethodNotFound.
func (s *Server) registerBuiltinMethods() {
	_ = s.router.RegisterMethod("action.execute", s.handleActionExecute)
	_ = s.router.RegisterMethod("actions.list", s.handleActionsList)
	_ = s.router.RegisterMethod("queue.status", s.handleQueueStatus)

	if s.scenarios != nil && s.loader != nil {
		_ = s.router.RegisterMethod("scenario.run", s.handleScenarioRun)
	}

	if s.history != nil {
		_ = s.router.RegisterMethod("history.list", s.handleHistoryList)
		_ = s.router.RegisterMethod("history.get", s.handleHistoryGet)
	}

	if s.scheduler != nil {
		_ = s.router.RegisterMethod("schedule.list", s.handleScheduleList)
		_ = s.router.RegisterMethod("schedule.add", s.handleScheduleAdd)
		_ = s.router.RegisterMethod("schedule.update", s.handleScheduleUpdate)
		_ = s.router.RegisterMethod("schedule.remove", s.handleScheduleRemove)
		_ = s.router.RegisterMethod("schedule.run", s.handleScheduleRun)
	}
}

// handleActionExecute runs a single action through the executor. The handler
// goroutine blocks until the browser worker finishes the operation, exactly
// like any other submitting caller.
func (s *Server) handleActionExecute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	name, ok := params["action"].(string)
	if !ok || name == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "action parameter is required and must be a string"}
	}

	var actionParams map[string]interface{}
	if raw, exists := params["params"]; exists && raw != nil {
		actionParams, ok = raw.(map[string]interface{})
		if !ok {
			return nil, &RPCError{Code: InvalidParams, Message: "params must be an object"}
		}
	}

	actor := clientIDFromContext(ctx)
	if actor == "" {
		actor = "rpc"
	} else {
		s.logger.Debug().
			Str("clientId", actor).
			Str("action", name).
			Msg("Client action request")
	}

	result, err := s.actions.Execute(ctx, name, actionParams)
	if err != nil {
		observability.RecordActionAudit(ctx, name, actor, "failure", map[string]interface{}{
			"error": err.Error(),
		})

		// Input problems are the caller's fault, not the server's.
		var inputErr *actions.InvalidInputError
		var configErr *actions.ConfigError
		var templateErr *actions.TemplateError
		if errors.As(err, &inputErr) || errors.As(err, &configErr) || errors.As(err, &templateErr) {
			return nil, &RPCError{Code: InvalidParams, Message: err.Error()}
		}
		return nil, err
	}

	observability.RecordActionAudit(ctx, name, actor, "success", nil)

	return map[string]interface{}{
		"action": name,
		"result": result,
	}, nil
}

// handleActionsList returns the registered action definitions.
func (s *Server) handleActionsList(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{"actions": s.actions.Registry().List()}, nil
}

// handleQueueStatus reports the executor queue and client counts.
func (s *Server) handleQueueStatus(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"depth":             s.executor.Depth(),
		"busy":              s.executor.Busy(),
		"connected_clients": s.clients.Count(),
	}, nil
}

// handleScenarioRun loads and runs a scenario. The scenario comes either
// from a server-side file ("path") or inline as a JSON object ("scenario").
// A run that executed but failed at a step still returns its result; only
// pre-run rejection surfaces as an RPC error.
func (s *Server) handleScenarioRun(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	var sc *scenario.Scenario
	var err error

	switch {
	case params["path"] != nil && params["scenario"] != nil:
		return nil, &RPCError{Code: InvalidParams, Message: "provide either path or scenario, not both"}
	case params["path"] != nil:
		path, ok := params["path"].(string)
		if !ok || path == "" {
			return nil, &RPCError{Code: InvalidParams, Message: "path must be a non-empty string"}
		}
		sc, err = s.loader.Load(path)
	case params["scenario"] != nil:
		data, marshalErr := json.Marshal(params["scenario"])
		if marshalErr != nil {
			return nil, &RPCError{Code: InvalidParams, Message: fmt.Sprintf("invalid scenario document: %v", marshalErr)}
		}
		sc, err = s.loader.Parse(data)
	default:
		return nil, &RPCError{Code: InvalidParams, Message: "path or scenario parameter is required"}
	}

	if err != nil {
		return nil, &RPCError{Code: InvalidParams, Message: err.Error()}
	}

	actor := clientIDFromContext(ctx)
	if actor == "" {
		actor = "rpc"
	}

	result, runErr := s.scenarios.Run(ctx, sc)
	if result == nil && runErr != nil {
		// Rejected up front: unknown action or bad step params.
		observability.RecordScenarioAudit(ctx, sc.Name, actor, "failure", map[string]interface{}{
			"error": runErr.Error(),
		})
		return nil, &RPCError{Code: InvalidParams, Message: runErr.Error()}
	}

	observability.RecordScenarioAudit(ctx, sc.Name, actor, result.Status, map[string]interface{}{
		"run_id": result.RunID,
		"steps":  len(result.Steps),
	})

	return result, nil
}

// handleHistoryList lists recorded runs, newest first.
func (s *Server) handleHistoryList(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	limit := 0
	if raw, ok := params["limit"].(float64); ok {
		limit = int(raw)
	}

	runs, err := s.history.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return map[string]interface{}{"runs": runs}, nil
}

// handleHistoryGet returns one recorded run with its steps.
func (s *Server) handleHistoryGet(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	id, ok := params["id"].(string)
	if !ok || id == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "id parameter is required and must be a string"}
	}

	run, err := s.history.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return run, nil
}

// handleScheduleList lists scheduled jobs, optionally filtered by enabled.
func (s *Server) handleScheduleList(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	var enabled *bool
	if raw, ok := params["enabled"].(bool); ok {
		enabled = &raw
	}

	return map[string]interface{}{"jobs": s.scheduler.ListJobs(enabled)}, nil
}

// handleScheduleAdd creates a scheduled job from the request params.
func (s *Server) handleScheduleAdd(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return nil, &RPCError{Code: InvalidParams, Message: fmt.Sprintf("invalid job parameters: %v", err)}
	}

	var add schedule.AddParams
	if err := json.Unmarshal(data, &add); err != nil {
		return nil, &RPCError{Code: InvalidParams, Message: fmt.Sprintf("invalid job parameters: %v", err)}
	}

	job, err := s.scheduler.AddJob(add)
	if err != nil {
		return nil, &RPCError{Code: InvalidParams, Message: err.Error()}
	}

	return job, nil
}

// handleScheduleUpdate patches a scheduled job. Absent fields stay as they
// are, so {"id": ..., "enabled": false} just disables the job.
func (s *Server) handleScheduleUpdate(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	id, ok := params["id"].(string)
	if !ok || id == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "id parameter is required and must be a string"}
	}
	delete(params, "id")

	data, err := json.Marshal(params)
	if err != nil {
		return nil, &RPCError{Code: InvalidParams, Message: fmt.Sprintf("invalid job patch: %v", err)}
	}

	var patch schedule.JobPatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return nil, &RPCError{Code: InvalidParams, Message: fmt.Sprintf("invalid job patch: %v", err)}
	}

	job, err := s.scheduler.UpdateJob(id, patch)
	if err != nil {
		return nil, &RPCError{Code: InvalidParams, Message: err.Error()}
	}

	return job, nil
}

// handleScheduleRemove deletes a scheduled job.
func (s *Server) handleScheduleRemove(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	id, ok := params["id"].(string)
	if !ok || id == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "id parameter is required and must be a string"}
	}

	if err := s.scheduler.RemoveJob(id); err != nil {
		return nil, err
	}

	return map[string]interface{}{"success": true}, nil
}

// handleScheduleRun triggers a job outside its schedule.
func (s *Server) handleScheduleRun(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	id, ok := params["id"].(string)
	if !ok || id == "" {
		return nil, &RPCError{Code: InvalidParams, Message: "id parameter is required and must be a string"}
	}

	mode := schedule.RunModeForce
	if raw, ok := params["mode"].(string); ok && raw != "" {
		switch schedule.RunMode(raw) {
		case schedule.RunModeDue, schedule.RunModeForce:
			mode = schedule.RunMode(raw)
		default:
			return nil, &RPCError{Code: InvalidParams, Message: fmt.Sprintf("invalid mode: %s", raw)}
		}
	}

	if err := s.scheduler.RunJob(id, mode); err != nil {
		return nil, err
	}

	return map[string]interface{}{"success": true}, nil
}
