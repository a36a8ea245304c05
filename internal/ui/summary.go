package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/temirov/ngjest/internal/rules"
	"github.com/temirov/ngjest/internal/tree"
)

const (
	changesHeaderConstant             = "Changes:"
	warningsHeaderConstant            = "Warnings:"
	stepsHeaderConstant               = "Steps:"
	noChangesMessageConstant          = "No changes."
	dryRunNoticeConstant              = "Dry run: no files were written."
	notWrittenNoticeConstant          = "No files were written."
	changeLineTemplateConstant        = "  %-6s %s\n"
	warningLineTemplateConstant       = "  %s: %s\n"
	stepLineTemplateConstant          = "  %d. %s [%s]\n"
	failedStepLineTemplateConstant    = "  %d. %s [%s]: %v\n"
	lineTemplateConstant              = "%s\n"
	missingWriterMessageConstant      = "summary writer not configured"
	summaryWriteErrorTemplateConstant = "unable to write migration summary: %w"
)

var errMissingWriter = errors.New(missingWriterMessageConstant)

// MigrationSummary is the console-facing view of a migration run.
type MigrationSummary struct {
	Changes   []tree.Change
	Warnings  []rules.Warning
	Steps     []rules.StepReport
	DryRun    bool
	Committed bool
}

// SummaryRenderer writes migration summaries as plain text.
type SummaryRenderer struct {
	writer io.Writer
}

// NewSummaryRenderer constructs a renderer writing to writer.
func NewSummaryRenderer(writer io.Writer) *SummaryRenderer {
	return &SummaryRenderer{writer: writer}
}

// Render writes the change log, the warnings and the itemized step report.
func (renderer *SummaryRenderer) Render(summary MigrationSummary) error {
	if renderer == nil || renderer.writer == nil {
		return errMissingWriter
	}
	if _, writeError := io.WriteString(renderer.writer, FormatSummary(summary)); writeError != nil {
		return fmt.Errorf(summaryWriteErrorTemplateConstant, writeError)
	}
	return nil
}

// FormatSummary renders a summary as text.
func FormatSummary(summary MigrationSummary) string {
	var builder strings.Builder

	if len(summary.Changes) == 0 {
		fmt.Fprintf(&builder, lineTemplateConstant, noChangesMessageConstant)
	} else {
		fmt.Fprintf(&builder, lineTemplateConstant, changesHeaderConstant)
		for _, change := range summary.Changes {
			fmt.Fprintf(&builder, changeLineTemplateConstant, change.Kind, change.Path)
		}
	}

	if len(summary.Warnings) > 0 {
		fmt.Fprintf(&builder, lineTemplateConstant, warningsHeaderConstant)
		for _, warning := range summary.Warnings {
			fmt.Fprintf(&builder, warningLineTemplateConstant, warning.Rule, warning.Message)
		}
	}

	if len(summary.Steps) > 0 {
		fmt.Fprintf(&builder, lineTemplateConstant, stepsHeaderConstant)
		for _, step := range summary.Steps {
			if step.Err != nil {
				fmt.Fprintf(&builder, failedStepLineTemplateConstant, step.Index+1, step.Name, step.Status, step.Err)
				continue
			}
			fmt.Fprintf(&builder, stepLineTemplateConstant, step.Index+1, step.Name, step.Status)
		}
	}

	switch {
	case summary.DryRun:
		fmt.Fprintf(&builder, lineTemplateConstant, dryRunNoticeConstant)
	case !summary.Committed && (len(summary.Changes) > 0 || hasFailedStep(summary.Steps)):
		fmt.Fprintf(&builder, lineTemplateConstant, notWrittenNoticeConstant)
	}

	return builder.String()
}

func hasFailedStep(steps []rules.StepReport) bool {
	for _, step := range steps {
		if step.Status == rules.StepFailed {
			return true
		}
	}
	return false
}
