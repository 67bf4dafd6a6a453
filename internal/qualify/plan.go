package qualify

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
)

const qualifyPlanEnv = "QUALIFY_PLAN_YAML"

//go:embed qualify_plan.yaml
var qualifyPlanFS embed.FS

type PhaseMode string

const (
	ModeParallel   PhaseMode = "parallel"
	ModeSequential PhaseMode = "sequential"
)

// Phase is one ordered stage of the qualification plan. Parallel phases
// fan their departments out concurrently; sequential phases run them one
// at a time, each seeing everything produced before it.
type Phase struct {
	Name        string    `yaml:"name" json:"name"`
	Mode        PhaseMode `yaml:"mode" json:"mode"`
	Departments []string  `yaml:"departments" json:"departments"`
}

type Plan struct {
	Name    string  `yaml:"plan" json:"plan"`
	Version int     `yaml:"version" json:"version"`
	Phases  []Phase `yaml:"phases" json:"phases"`
}

// Departments lists every department across all phases, in plan order.
func (p Plan) Departments() []string {
	out := make([]string, 0, 8)
	for _, phase := range p.Phases {
		out = append(out, phase.Departments...)
	}
	return out
}

// fallback plan used when YAML is missing or invalid
func defaultPlan() Plan {
	return Plan{
		Name:    "project_qualification",
		Version: 1,
		Phases: []Phase{
			{Name: "foundation", Mode: ModeParallel, Departments: []string{"character", "world", "visual"}},
			{Name: "narrative", Mode: ModeSequential, Departments: []string{"story"}},
			{Name: "production", Mode: ModeParallel, Departments: []string{"image_quality", "audio", "video", "production"}},
		},
	}
}

// LoadPlan reads the qualification plan, preferring the file named by
// QUALIFY_PLAN_YAML over the embedded copy, and falls back to the
// compiled-in default when neither parses and validates.
func LoadPlan(log *logger.Logger) Plan {
	plan, err := readPlan()
	if err != nil {
		if log != nil {
			log.Warn("qualify: plan load failed; using built-in default", "error", err)
		}
		return defaultPlan()
	}
	if err := ValidatePlan(plan); err != nil {
		if log != nil {
			log.Warn("qualify: plan invalid; using built-in default", "error", err)
		}
		return defaultPlan()
	}
	return plan
}

func readPlan() (Plan, error) {
	var data []byte
	var err error
	if path := strings.TrimSpace(os.Getenv(qualifyPlanEnv)); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = qualifyPlanFS.ReadFile("qualify_plan.yaml")
	}
	if err != nil {
		return Plan{}, err
	}
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func ValidatePlan(plan Plan) error {
	if strings.TrimSpace(plan.Name) == "" {
		return errors.New("plan name is required")
	}
	if len(plan.Phases) == 0 {
		return errors.New("no phases defined")
	}

	phaseNames := map[string]bool{}
	departments := map[string]string{}
	for _, phase := range plan.Phases {
		name := strings.TrimSpace(phase.Name)
		if name == "" {
			return errors.New("phase name is required")
		}
		if phaseNames[name] {
			return fmt.Errorf("duplicate phase name: %s", name)
		}
		phaseNames[name] = true

		switch phase.Mode {
		case ModeParallel, ModeSequential:
		default:
			return fmt.Errorf("phase %s: unknown mode %q", name, phase.Mode)
		}

		if len(phase.Departments) == 0 {
			return fmt.Errorf("phase %s: no departments", name)
		}
		for _, dep := range phase.Departments {
			dep = strings.TrimSpace(dep)
			if dep == "" {
				return fmt.Errorf("phase %s: empty department name", name)
			}
			if prev, exists := departments[dep]; exists {
				return fmt.Errorf("department %s appears in phases %s and %s", dep, prev, name)
			}
			departments[dep] = name
		}
	}
	return nil
}
