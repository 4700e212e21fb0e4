package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/schema"
	"gopkg.in/yaml.v3"

	schemasassets "github.com/3leaps/ugcreel/internal/assets/schemas"
)

// ErrRequestValidation indicates a request failed schema validation.
var ErrRequestValidation = errors.New("video request validation failed")

// Request is a submission to create a new processing job.
type Request struct {
	AvatarPath string   `json:"avatar_path" yaml:"avatar_path"`
	DemoPath   string   `json:"demo_path,omitempty" yaml:"demo_path,omitempty"`
	Caption    *Caption `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// Caption holds overlay parameters from the editor.
type Caption struct {
	Text     string          `json:"text,omitempty" yaml:"text,omitempty"`
	Position CaptionPosition `json:"position,omitempty" yaml:"position,omitempty"`
	Font     CaptionFont     `json:"font,omitempty" yaml:"font,omitempty"`
}

// NewJob builds a processing job from the request, applying caption defaults.
func (r *Request) NewJob(id string, now time.Time) *Job {
	j := &Job{
		ID:              id,
		AvatarPath:      strings.TrimSpace(r.AvatarPath),
		DemoPath:        strings.TrimSpace(r.DemoPath),
		CaptionPosition: PositionBottom,
		CaptionFont:     FontSans,
		Status:          StatusProcessing,
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
	if r.Caption != nil {
		j.CaptionText = strings.TrimSpace(r.Caption.Text)
		if r.Caption.Position != "" {
			j.CaptionPosition = r.Caption.Position
		}
		if r.Caption.Font != "" {
			j.CaptionFont = r.Caption.Font
		}
	}
	return j
}

// RequestValidationError lists schema violations.
type RequestValidationError struct {
	Issues []string
}

// Error implements error interface.
func (e *RequestValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "invalid video request: " + e.Issues[0]
	}
	return fmt.Sprintf("invalid video request (%d issues): %s", len(e.Issues), strings.Join(e.Issues, "; "))
}

// Unwrap returns ErrRequestValidation.
func (e *RequestValidationError) Unwrap() error {
	return ErrRequestValidation
}

// LoadRequest reads a request file. Format is chosen by extension:
// .yaml/.yml for YAML, .json for JSON, otherwise YAML then JSON.
func LoadRequest(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("request file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read request file: %w", err)
	}
	return ParseRequest(data, path)
}

// ParseRequest validates raw bytes against the request schema and decodes
// them. Validation runs on the raw document so unknown fields are rejected.
func ParseRequest(data []byte, path string) (*Request, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("video request is empty")
	}

	jsonData, err := toJSON(data, path)
	if err != nil {
		return nil, err
	}
	if err := ValidateRequestRaw(jsonData); err != nil {
		return nil, err
	}

	var req Request
	if err := json.Unmarshal(jsonData, &req); err != nil {
		return nil, fmt.Errorf("decode video request: %w", err)
	}
	return &req, nil
}

var (
	validatorOnce sync.Once
	validator     *schema.Validator
	validatorErr  error
)

func getValidator() (*schema.Validator, error) {
	validatorOnce.Do(func() {
		if len(schemasassets.VideoRequestSchema) == 0 {
			validatorErr = errors.New("embedded video-request schema is empty")
			return
		}
		validator, validatorErr = schema.NewValidator(schemasassets.VideoRequestSchema)
		if validatorErr != nil {
			validatorErr = fmt.Errorf("failed to compile video-request schema: %w", validatorErr)
		}
	})
	return validator, validatorErr
}

// ValidateRequestRaw checks a JSON document against the request schema.
func ValidateRequestRaw(jsonData []byte) error {
	v, err := getValidator()
	if err != nil {
		return err
	}

	diags, err := v.ValidateJSON(jsonData)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	var issues []string
	for _, d := range diags {
		if d.Severity != schema.SeverityError {
			continue
		}
		if d.Pointer == "" {
			issues = append(issues, d.Message)
		} else {
			issues = append(issues, d.Pointer+": "+d.Message)
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return &RequestValidationError{Issues: issues}
}

func toJSON(data []byte, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var raw any
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid JSON in video request: %w", err)
		}
		return data, nil
	case ".yaml", ".yml":
		return yamlToJSON(data)
	default:
		// YAML is a superset of JSON.
		jsonData, err := yamlToJSON(data)
		if err == nil {
			return jsonData, nil
		}
		var raw any
		if jsonErr := json.Unmarshal(data, &raw); jsonErr == nil {
			return data, nil
		}
		return nil, fmt.Errorf("failed to parse video request (tried YAML and JSON): %w", err)
	}
}

func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid YAML in video request: %w", err)
	}
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to convert video request to JSON: %w", err)
	}
	return jsonData, nil
}
