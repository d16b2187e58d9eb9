package config

import (
	"fmt"
	"strings"

	"github.com/hay-kot/criterio"
)

// Validate checks that the configuration is structurally valid.
// Pattern compilation has its own earlier failure path in Load.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("documents_dir", c.DocumentsDir, notEmpty),
		criterio.Run("base_branch", c.BaseBranch, notEmpty),
		criterio.Run("labels.sync_mode", string(c.Labels.SyncMode), validLabelMode),
		criterio.Run("project.status_field", c.Project.StatusField, notEmpty),
		criterio.Run("project.ticket_field", c.Project.TicketField, notEmpty),
	)
}

func notEmpty(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

func validLabelMode(v string) error {
	switch LabelMode(v) {
	case LabelModeMerge, LabelModeReplace:
		return nil
	default:
		return fmt.Errorf("must be %q or %q", LabelModeMerge, LabelModeReplace)
	}
}
