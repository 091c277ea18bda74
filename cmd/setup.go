package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tidalbridge/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes a config file from the embedded template at the --config path.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if err := shared.CreateConfigFile(path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	r.logger.Info("config file created", "path", path)
	return r.writeJSON(map[string]string{"config": path}, r.pretty)
}
