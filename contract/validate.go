package contract

import (
	"fmt"
)

// Validate decides whether c can be synthesized into an immutable value
// type. Rules run in order and the first violation is returned:
//  1. every attribute, including inherited ones, must be read-only;
//  2. the contract must not declare behavior members.
func Validate(c *Contract) error {
	if c == nil {
		return fmt.Errorf("contract: description is nil")
	}
	shape := Inspect(c)
	return validateShape(c.QualifiedName(), shape)
}

func validateShape(name string, shape Shape) error {
	for _, attr := range shape.Attributes {
		if attr.Mutable {
			return &ValidationError{Kind: KindMutableAttribute, Contract: name, Member: attr.Name}
		}
	}
	if len(shape.Behaviors) > 0 {
		return &ValidationError{Kind: KindUnsupportedBehavior, Contract: name, Member: shape.Behaviors[0].Name}
	}
	return nil
}

// Result is the validation outcome of one contract in a file.
type Result struct {
	Contract *Contract
	Err      error
}

// Report captures validation results for every contract in a file.
type Report struct {
	Path    string
	Results []Result
}

// ValidateFile loads every contract declared in path (YAML or Go source) and
// validates each of them. Load failures are returned as the error; validation
// failures are recorded in the report.
func ValidateFile(path string) (*Report, error) {
	contracts, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	report := &Report{Path: path}
	for _, c := range contracts {
		report.Results = append(report.Results, Result{Contract: c, Err: Validate(c)})
	}
	return report, nil
}

// IsValid reports whether every contract in the file passed validation.
func (r *Report) IsValid() bool {
	if r == nil {
		return false
	}
	for _, result := range r.Results {
		if result.Err != nil {
			return false
		}
	}
	return true
}

// Failures returns only the failed results.
func (r *Report) Failures() []Result {
	if r == nil {
		return nil
	}
	var failed []Result
	for _, result := range r.Results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}
