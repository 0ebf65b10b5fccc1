package core

// The startup validation suite checks configuration and gateway
// reachability before the server starts serving requests. Progress is
// printed to the console with colored status icons.

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/fatih/color"
)

// StepStatus represents the status of a validation step.
type StepStatus int

const (
	StepPassed StepStatus = iota
	StepFailed
	StepWarning
	StepSkipped
)

// ValidationStep represents a single validation step with its outcome.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
	Err     error
}

// SuiteResult represents the complete result of validation suite execution.
type SuiteResult struct {
	Steps       []ValidationStep
	PassedSteps int
	FailedSteps int
	Warnings    int
	Duration    time.Duration
	Success     bool
}

// ValidationSuite runs pre-flight checks against the loaded configuration:
// required credentials, gateway URL shape, and gateway reachability.
// Reachability failures are reported as warnings rather than errors so the
// service can start while the gateway is briefly unavailable.
type ValidationSuite struct {
	cfg          *Config
	output       io.Writer
	httpClient   *http.Client
	checkNetwork bool
	showProgress bool
}

// NewValidationSuite creates a ValidationSuite for the given configuration.
func NewValidationSuite(cfg *Config) *ValidationSuite {
	return &ValidationSuite{
		cfg:          cfg,
		output:       os.Stdout,
		httpClient:   GetHTTPClient(cfg, 10*time.Second),
		checkNetwork: true,
		showProgress: true,
	}
}

// WithOutput sets the output writer for progress messages.
func (s *ValidationSuite) WithOutput(w io.Writer) *ValidationSuite {
	s.output = w
	return s
}

// WithNetworkChecks enables or disables the gateway reachability check.
func (s *ValidationSuite) WithNetworkChecks(enabled bool) *ValidationSuite {
	s.checkNetwork = enabled
	return s
}

// WithShowProgress enables or disables console progress output.
func (s *ValidationSuite) WithShowProgress(show bool) *ValidationSuite {
	s.showProgress = show
	return s
}

// Validate runs all validation steps and returns the aggregate result.
func (s *ValidationSuite) Validate() SuiteResult {
	start := time.Now()

	if s.showProgress {
		s.printHeader("Startup Validation")
	}

	steps := []ValidationStep{
		s.checkCredentials(),
		s.checkGatewayURL(),
		s.checkGatewayReachable(),
	}

	result := SuiteResult{Steps: steps, Success: true, Duration: time.Since(start)}
	for _, step := range steps {
		if s.showProgress {
			s.printStep(step)
		}
		switch step.Status {
		case StepPassed:
			result.PassedSteps++
		case StepFailed:
			result.FailedSteps++
			result.Success = false
		case StepWarning:
			result.Warnings++
		}
	}

	if s.showProgress {
		s.printSummary(result)
	}

	return result
}

func (s *ValidationSuite) checkCredentials() ValidationStep {
	step := ValidationStep{Name: "API credentials"}
	switch {
	case s.cfg.ReplicateAPIToken == "":
		step.Status = StepFailed
		step.Err = ErrMissingAuth("replicate")
	case s.cfg.PromptAPIKey == "":
		step.Status = StepFailed
		step.Err = ErrMissingAuth("prompt")
	case s.cfg.ReplicateOwner == "":
		step.Status = StepFailed
		step.Err = ErrMissingConfig("REPLICATE_OWNER")
	default:
		step.Status = StepPassed
		step.Message = fmt.Sprintf("owner %s", s.cfg.ReplicateOwner)
	}
	return step
}

func (s *ValidationSuite) checkGatewayURL() ValidationStep {
	step := ValidationStep{Name: "Gateway URL"}
	parsed, err := url.Parse(s.cfg.ReplicateAPIBase)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		reason := "missing scheme or host"
		if err != nil {
			reason = err.Error()
		}
		step.Status = StepFailed
		step.Err = ErrInvalidGatewayURL(s.cfg.ReplicateAPIBase, reason)
		return step
	}
	step.Status = StepPassed
	step.Message = parsed.Host
	return step
}

func (s *ValidationSuite) checkGatewayReachable() ValidationStep {
	step := ValidationStep{Name: "Gateway reachability"}
	if !s.checkNetwork {
		step.Status = StepSkipped
		step.Message = "network checks disabled"
		return step
	}

	req, err := http.NewRequest(http.MethodGet, s.cfg.ReplicateAPIBase+"/account", nil)
	if err != nil {
		step.Status = StepFailed
		step.Err = err
		return step
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ReplicateAPIToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		step.Status = StepWarning
		step.Message = "gateway unreachable; training and generation will fail until it recovers"
		step.Err = err
		return step
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		step.Status = StepFailed
		step.Err = fmt.Errorf("gateway rejected credentials (HTTP %d)", resp.StatusCode)
		return step
	}

	step.Status = StepPassed
	step.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	return step
}

// printHeader prints a validation header.
func (s *ValidationSuite) printHeader(title string) {
	fmt.Fprintln(s.output)
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Fprintf(s.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(s.output)
}

// printStep prints a completed validation step with a status indicator.
func (s *ValidationSuite) printStep(step ValidationStep) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon = "✓"
		clr = color.New(color.FgGreen)
	case StepFailed:
		icon = "✗"
		clr = color.New(color.FgRed)
	case StepWarning:
		icon = "!"
		clr = color.New(color.FgYellow)
	case StepSkipped:
		icon = "○"
		clr = color.New(color.FgHiBlack)
	default:
		icon = "?"
		clr = color.New(color.FgWhite)
	}

	clr.Fprintf(s.output, "  %s %s", icon, step.Name)
	if step.Message != "" {
		color.New(color.FgHiBlack).Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)

	if step.Status == StepFailed && step.Err != nil {
		color.New(color.FgRed).Fprintf(s.output, "    └─ %s\n", step.Err.Error())
	}
}

// printSummary prints the validation summary.
func (s *ValidationSuite) printSummary(result SuiteResult) {
	fmt.Fprintln(s.output)
	if result.Success {
		successColor := color.New(color.FgGreen, color.Bold)
		successColor.Fprintf(s.output, "━━━ Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d warnings in %v)",
			result.PassedSteps, result.Warnings, result.Duration.Round(time.Millisecond))
		successColor.Fprintln(s.output, " ━━━")
	} else {
		failColor := color.New(color.FgRed, color.Bold)
		failColor.Fprintf(s.output, "━━━ Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)",
			result.PassedSteps, result.FailedSteps)
		failColor.Fprintln(s.output, " ━━━")
	}
	fmt.Fprintln(s.output)
}

// GetErrors returns all errors from failed steps.
func (r SuiteResult) GetErrors() []error {
	var errs []error
	for _, step := range r.Steps {
		if step.Status == StepFailed && step.Err != nil {
			errs = append(errs, step.Err)
		}
	}
	return errs
}
