// Package healthcheck implements the periodic identity pool health report.
// It logs how many client IDs are active and cooling down and warns when none
// can be used.
package healthcheck
