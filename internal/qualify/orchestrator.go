package qualify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

// orchestrator executes one phase at a time. It never touches run state;
// the Runner owns the state machine and feeds phases in plan order.
type orchestrator struct {
	deps Deps
	log  *logger.Logger
}

// runPhase executes every department workflow of the phase and, only
// when all of them succeed, persists their qualified rows. prior holds
// the outputs of all strictly earlier phases.
func (o *orchestrator) runPhase(ctx context.Context, projectID, runID uuid.UUID, phase Phase, prior []DepartmentOutput) ([]DepartmentOutput, error) {
	var outputs []DepartmentOutput
	var err error
	switch phase.Mode {
	case ModeSequential:
		outputs, err = o.runSequential(ctx, projectID, runID, phase, prior)
	default:
		outputs, err = o.runParallel(ctx, projectID, runID, phase, prior)
	}
	if err != nil {
		return nil, err
	}

	for _, out := range outputs {
		if perr := o.deps.Sink.PersistQualifiedRows(ctx, projectID, runID, out.Qualified); perr != nil {
			return nil, &PersistError{Department: out.Department, Err: perr}
		}
	}
	return outputs, nil
}

// runParallel fans the departments out concurrently and waits for every
// sibling to settle before judging the phase, so a failure report can
// name all failing departments. Siblings are never cancelled by another
// sibling's failure.
func (o *orchestrator) runParallel(ctx context.Context, projectID, runID uuid.UUID, phase Phase, prior []DepartmentOutput) ([]DepartmentOutput, error) {
	results := make([]*DepartmentOutput, len(phase.Departments))
	errs := make([]error, len(phase.Departments))

	var g errgroup.Group
	for i, dep := range phase.Departments {
		i, dep := i, dep
		g.Go(func() error {
			out, err := o.runDepartment(ctx, projectID, runID, phase, dep, prior)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()

	var failures []DepartmentFailure
	for i, dep := range phase.Departments {
		if errs[i] != nil {
			failures = append(failures, DepartmentFailure{Department: dep, Err: errs[i]})
		}
	}
	if len(failures) > 0 {
		return nil, &PhaseError{Phase: phase.Name, Failures: failures}
	}

	outputs := make([]DepartmentOutput, 0, len(results))
	for _, r := range results {
		outputs = append(outputs, *r)
	}
	return outputs, nil
}

// runSequential runs the departments one at a time. Each sees the prior
// phases' outputs plus everything earlier departments of this phase
// produced. The first failure stops the phase.
func (o *orchestrator) runSequential(ctx context.Context, projectID, runID uuid.UUID, phase Phase, prior []DepartmentOutput) ([]DepartmentOutput, error) {
	outputs := make([]DepartmentOutput, 0, len(phase.Departments))
	for _, dep := range phase.Departments {
		seen := make([]DepartmentOutput, 0, len(prior)+len(outputs))
		seen = append(seen, prior...)
		seen = append(seen, outputs...)

		out, err := o.runDepartment(ctx, projectID, runID, phase, dep, seen)
		if err != nil {
			return nil, &PhaseError{Phase: phase.Name, Failures: []DepartmentFailure{{Department: dep, Err: err}}}
		}
		outputs = append(outputs, *out)
	}
	return outputs, nil
}

func (o *orchestrator) runDepartment(ctx context.Context, projectID, runID uuid.UUID, phase Phase, department string, prior []DepartmentOutput) (*DepartmentOutput, error) {
	intake, err := o.deps.Intake.FetchIntakeRows(ctx, projectID, department)
	if err != nil {
		return nil, fmt.Errorf("fetch intake rows: %w", err)
	}

	o.log.Debug("department workflow starting",
		"project_id", projectID.String(),
		"run_id", runID.String(),
		"phase", phase.Name,
		"department", department,
		"intake_rows", len(intake),
	)

	raw, err := o.deps.Workflows.RunWorkflow(ctx, WorkflowRequest{
		Department: department,
		Kind:       "qualify:" + phase.Name,
		Payload: WorkflowPayload{
			ProjectID:  projectID,
			RunID:      runID,
			Phase:      phase.Name,
			Department: department,
			Intake:     intake,
			Prior:      prior,
		},
	})
	if err != nil {
		return nil, err
	}

	out, err := decodeOutput(raw)
	if err != nil {
		return nil, err
	}
	if out.Department == "" {
		out.Department = department
	}
	for i := range out.Qualified {
		if out.Qualified[i].Department == "" {
			out.Qualified[i].Department = department
		}
		if out.Qualified[i].Phase == "" {
			out.Qualified[i].Phase = phase.Name
		}
	}
	return out, nil
}

// decodeOutput normalizes the collaborator's result. Workers return a
// typed DepartmentOutput in-process and JSON bytes over the wire.
func decodeOutput(raw any) (*DepartmentOutput, error) {
	switch v := raw.(type) {
	case nil:
		return &DepartmentOutput{}, nil
	case *DepartmentOutput:
		if v == nil {
			return &DepartmentOutput{}, nil
		}
		return v, nil
	case DepartmentOutput:
		return &v, nil
	case json.RawMessage:
		return decodeOutputJSON(v)
	case []byte:
		return decodeOutputJSON(v)
	default:
		return nil, fmt.Errorf("unexpected workflow output type %T", raw)
	}
}

func decodeOutputJSON(data []byte) (*DepartmentOutput, error) {
	var out DepartmentOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode workflow output: %w", err)
	}
	return &out, nil
}
