package client

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ExecuteSQL runs every statement in a SQL file sequentially on the
// session after variable substitution. Statements are separated by
// splitting on ';', which mis-splits statements carrying a literal
// semicolon inside a string. There is no transactional grouping: a
// failure leaves earlier statements applied.
func (c *Client) ExecuteSQL(ctx context.Context, filePath string, variables map[string]string) error {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("sql file %q: %w", filePath, err)
	}
	script, err := substituteVariables(string(raw), variables)
	if err != nil {
		return err
	}

	for _, statement := range strings.Split(strings.TrimSpace(script), ";") {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}
		c.logger.Debug("executing statement", slog.String("sql", statement))
		if err := c.session.Execute(ctx, statement); err != nil {
			return err
		}
	}
	return nil
}
