package resourcing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yaegashi/resourceprovisioner/domain/model"
	"github.com/yaegashi/resourceprovisioner/internal/naming"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput checks a resourcing request before any repository is touched.
// An acronym equal to mainBranch would commit and push to the review target.
func validateInput(in *HandleInput, mainBranch string) error {
	if in == nil {
		return fmt.Errorf("%w: HandleInput is required", model.ErrWorkspaceInvalid)
	}
	if in.Workspace == nil {
		return fmt.Errorf("%w: workspace is required", model.ErrWorkspaceInvalid)
	}
	if err := validate.Struct(in.Workspace); err != nil {
		return fmt.Errorf("%w: %s", model.ErrWorkspaceInvalid, describe(err))
	}
	if err := naming.ValidateAcronym(in.Workspace.Acronym); err != nil {
		return fmt.Errorf("%w: %w", model.ErrWorkspaceInvalid, err)
	}
	if mainBranch != "" && strings.EqualFold(in.Workspace.Acronym, mainBranch) {
		return fmt.Errorf("%w: acronym %q names the main branch", model.ErrWorkspaceInvalid, in.Workspace.Acronym)
	}
	if strings.TrimSpace(in.RequestingUser) == "" {
		return fmt.Errorf("%w: requesting user is required", model.ErrWorkspaceInvalid)
	}
	if len(in.Templates) == 0 {
		return fmt.Errorf("%w: at least one template is required", model.ErrTemplateInvalid)
	}
	for i, t := range in.Templates {
		if strings.TrimSpace(t.Name) == "" {
			return fmt.Errorf("%w: templates[%d] has no name", model.ErrTemplateInvalid, i)
		}
	}
	return nil
}

// describe flattens validator errors into "Field: tag" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}
