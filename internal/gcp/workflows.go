package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/aqureshiest/parse-pdf/internal/models"
)

// WorkflowTrigger starts a Cloud Workflows execution for every freshly parsed document.
type WorkflowTrigger struct {
	executionsClient *executions.Client
	parent           string
}

// NewWorkflowTrigger creates the executions client for projects/<p>/locations/<l>/workflows/<id>.
func NewWorkflowTrigger(ctx context.Context, projectID, location, workflowID string) (*WorkflowTrigger, error) {
	if projectID == "" || location == "" || workflowID == "" {
		return nil, fmt.Errorf("NewWorkflowTrigger: projectID, location and workflowID cannot be empty")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &WorkflowTrigger{
		executionsClient: client,
		parent:           fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}, nil
}

// NotifyParsed hands the parse summary to the workflow as its execution argument.
func (t *WorkflowTrigger) NotifyParsed(ctx context.Context, event models.ParsedEvent) error {
	payloadBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: t.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	execution, err := t.executionsClient.CreateExecution(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	slog.Info("Workflow execution started.", "execution", execution.GetName(), "fingerprint", event.Fingerprint)
	return nil
}

func (t *WorkflowTrigger) Close() error {
	return t.executionsClient.Close()
}
